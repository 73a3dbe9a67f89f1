package io

import (
	"encoding/csv"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// MatrixToCSV saves a matrix as a csv file, preceded by an optional header line
func MatrixToCSV(path string, header []string, matrix mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("[MatrixToCSV] failed to open %s: %w", path, err)
	}
	defer f.Close()

	if len(header) > 0 {
		if _, err := fmt.Fprintf(f, "%s\n", strings.Join(header, ", ")); err != nil {
			return fmt.Errorf("[MatrixToCSV] failed to write %s: %w", path, err)
		}
	}

	rows, _ := matrix.Dims()

	stride := runtime.NumCPU()
	parsed := make([]string, stride)

	for row := 0; row < rows; row += stride {
		var wg sync.WaitGroup
		jobMark := stride

		if row+stride >= rows {
			jobMark = rows - row
		}

		wg.Add(jobMark)
		for offset := 0; offset < jobMark; offset++ {
			go parseLine(matrix, parsed, offset, row, &wg)
		}
		wg.Wait()

		for i := 0; i < jobMark; i++ {
			if _, err := fmt.Fprintf(f, "%s\n", parsed[i]); err != nil {
				return fmt.Errorf("[MatrixToCSV] failed to write %s: %w", path, err)
			}
		}
	}

	return f.Close()
}

func parseLine(matrix mat.Matrix, parsed []string, offset int, row int, wg *sync.WaitGroup) {
	_, cols := matrix.Dims()

	nums := make([]string, cols)
	for i := 0; i < cols; i++ {
		nums[i] = strconv.FormatFloat(matrix.At(row+offset, i), 'g', -1, 64)
	}
	parsed[offset] = strings.Join(nums, ", ")

	wg.Done()

	return
}

// CSVToMatrix reads a numeric csv file as a matrix. A first line that does
// not parse as numbers is taken as a header and skipped.
func CSVToMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("[CSVToMatrix] failed to open %s: %w", path, err)
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	csvReader.TrimLeadingSpace = true
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("[CSVToMatrix] failed to parse %s: %w", path, err)
	}

	var data []float64
	rows, cols := 0, 0
	for i, record := range records {
		vals := make([]float64, len(record))
		for j, field := range record {
			vals[j], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				break
			}
		}
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("[CSVToMatrix] %s line %d: %w", path, i+1, err)
		}
		if cols == 0 {
			cols = len(vals)
		}
		data = append(data, vals...)
		rows++
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("[CSVToMatrix] %s: no numeric rows", path)
	}

	return mat.NewDense(rows, cols, data), nil
}
