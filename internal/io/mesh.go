package io

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/KyungWonPark/mps/internal/geom"
	"gonum.org/v1/gonum/mat"
)

// LoadCells reads mesh cells, one row of zero-based point indices per cell,
// from a float64 npy file or, for a .csv path, a csv file
func LoadCells(path string) ([][]int, error) {
	var m *mat.Dense
	var err error
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		m, err = CSVToMatrix(path)
	} else {
		m, err = NpyToMatrix(path)
	}
	if err != nil {
		return nil, err
	}

	rows, cols := m.Dims()
	cells := make([][]int, rows)
	for i := range cells {
		cells[i] = make([]int, cols)
		for j := range cells[i] {
			v := m.At(i, j)
			if v < 0 || v != math.Trunc(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("[LoadCells] %s: %w: entry (%d,%d) = %g is not a point index", path, geom.ErrShape, i, j, v)
			}
			cells[i][j] = int(v)
		}
	}
	return cells, nil
}
