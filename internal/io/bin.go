package io

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// F64SliceToBin writes a float64 slice to a file as little-endian binary
func F64SliceToBin(path string, slice []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("[F64SliceToBin] failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, slice); err != nil {
		return fmt.Errorf("[F64SliceToBin] failed to write %s: %w", path, err)
	}
	return file.Close()
}

// BinToF64Slice reads a little-endian float64 file written by F64SliceToBin
func BinToF64Slice(path string) ([]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[BinToF64Slice] failed to read %s: %w", path, err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("[BinToF64Slice] %s: size %d is not a multiple of 8", path, len(raw))
	}

	slice := make([]float64, len(raw)/8)
	for i := range slice {
		slice[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return slice, nil
}
