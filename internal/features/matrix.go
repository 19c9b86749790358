// Package features turns fingerprints into the binary feature matrix used for clustering.
package features

import (
	"fmt"

	"github.com/kozaktomas/plant-doctor/internal/fingerprint"
)

// Matrix is an N x Dim matrix of 0/1 values. Row i belongs to the i-th fingerprint
// handed to Vectorize, and column j always means the same bit position.
type Matrix struct {
	rows [][]uint8
	dim  int
}

// Vectorize unpacks each 64-bit fingerprint into a row of 0/1 values, most significant bit first.
// No scaling or normalization is applied.
func Vectorize(hashes []uint64) *Matrix {
	rows := make([][]uint8, len(hashes))
	for i, h := range hashes {
		row := make([]uint8, fingerprint.Bits)
		for j := range fingerprint.Bits {
			row[j] = uint8(h >> (fingerprint.Bits - 1 - j) & 1)
		}
		rows[i] = row
	}
	return &Matrix{rows: rows, dim: fingerprint.Bits}
}

// FromRows builds a matrix from existing bit vectors. All rows must have the same
// length and contain only 0 and 1.
func FromRows(rows [][]uint8) (*Matrix, error) {
	if len(rows) == 0 {
		return &Matrix{}, nil
	}

	dim := len(rows[0])
	out := make([][]uint8, len(rows))
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), dim)
		}
		for j, v := range row {
			if v > 1 {
				return nil, fmt.Errorf("row %d column %d: value %d is not binary", i, j, v)
			}
		}
		out[i] = append([]uint8(nil), row...)
	}
	return &Matrix{rows: out, dim: dim}, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return len(m.rows)
}

// Dim returns the number of columns.
func (m *Matrix) Dim() int {
	return m.dim
}

// Row returns row i. The slice must not be modified.
func (m *Matrix) Row(i int) []uint8 {
	return m.rows[i]
}

// Bits packs the first 64 columns of row i back into an integer, MSB first.
func (m *Matrix) Bits(i int) uint64 {
	var h uint64
	for j, v := range m.rows[i] {
		if j == 64 {
			break
		}
		h = h<<1 | uint64(v)
	}
	return h
}

// Hamming counts the columns where rows i and j differ.
func (m *Matrix) Hamming(i, j int) int {
	a, b := m.rows[i], m.rows[j]
	d := 0
	for k := range a {
		if a[k] != b[k] {
			d++
		}
	}
	return d
}

// NormalizedHamming is the Hamming distance divided by the row length, in [0,1].
func (m *Matrix) NormalizedHamming(i, j int) float64 {
	if m.dim == 0 {
		return 0
	}
	return float64(m.Hamming(i, j)) / float64(m.dim)
}
