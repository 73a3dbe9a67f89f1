package io

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KyungWonPark/mps/internal/geom"
	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
)

// rowMajor returns the data of a 2-D array in C order
func rowMajor(data []float64, shape []int, columnMajor bool) []float64 {
	if !columnMajor || len(shape) != 2 {
		return data
	}

	rows, cols := shape[0], shape[1]
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = data[j*rows+i]
		}
	}
	return out
}

func readNpy(path string) ([]float64, []int, error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("[readNpy] failed to open %s: %w", path, err)
	}

	data, err := r.GetFloat64()
	if err != nil {
		return nil, nil, fmt.Errorf("[readNpy] failed to read %s: %w", path, err)
	}

	return rowMajor(data, r.Shape, r.ColumnMajor), r.Shape, nil
}

// ReadPoints reads an (m,2) or (2,m) float64 npy array as points
func ReadPoints(path string) ([]geom.Point, error) {
	data, shape, err := readNpy(path)
	if err != nil {
		return nil, err
	}

	pts, err := geom.FromFlat(data, shape)
	if err != nil {
		return nil, fmt.Errorf("[ReadPoints] %s: %w", path, err)
	}
	return pts, nil
}

// NpyToMatrix reads a 2-D float64 npy array as a matrix
func NpyToMatrix(path string) (*mat.Dense, error) {
	data, shape, err := readNpy(path)
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 || shape[0] == 0 || shape[1] == 0 {
		return nil, fmt.Errorf("[NpyToMatrix] %s: %w: shape %v", path, geom.ErrShape, shape)
	}

	return mat.NewDense(shape[0], shape[1], data), nil
}

func writeNpy(path string, shape []int, data []float64) error {
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("[writeNpy] failed to open %s: %w", path, err)
	}
	w.Shape = shape
	w.Version = 2

	if err := w.WriteFloat64(data); err != nil {
		return fmt.Errorf("[writeNpy] failed to write %s: %w", path, err)
	}
	return nil
}

// MatrixToNpy writes a matrix to a numpy npy file
func MatrixToNpy(path string, matrix mat.Matrix) error {
	rows, cols := matrix.Dims()
	dense := mat.DenseCopyOf(matrix)

	return writeNpy(path, []int{rows, cols}, dense.RawMatrix().Data)
}

// VectorToNpy writes a float64 slice to a one-dimensional numpy npy file
func VectorToNpy(path string, vec []float64) error {
	return writeNpy(path, []int{len(vec)}, vec)
}

// LoadPoints reads points from an npy file or, for a .csv path, from a
// two-column csv file.
func LoadPoints(path string) ([]geom.Point, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadPoints(path)
	}

	m, err := CSVToMatrix(path)
	if err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	pts, err := geom.FromFlat(m.RawMatrix().Data, []int{rows, cols})
	if err != nil {
		return nil, fmt.Errorf("[LoadPoints] %s: %w", path, err)
	}
	return pts, nil
}
