// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"sort"

	"github.com/gomlx/exceptions"
)

// OneHotEncoder expands selected categorical columns into one-hot indicator
// columns, leaving the remaining columns in place (in their original order,
// before the indicator blocks). Values unseen during Fit map to all-zeros.
//
// It implements the nam.Transformer interface.
type OneHotEncoder struct {
	columns    []int
	categories map[int][]float32 // column -> sorted distinct values.
}

// NewOneHotEncoder returns an unfitted encoder for the given column indices.
func NewOneHotEncoder(columns ...int) *OneHotEncoder {
	return &OneHotEncoder{columns: columns}
}

// Fit collects the distinct values of each encoded column.
func (e *OneHotEncoder) Fit(x [][]float32) *OneHotEncoder {
	if len(x) == 0 {
		exceptions.Panicf("tabular.OneHotEncoder: cannot fit on an empty matrix")
	}
	e.categories = make(map[int][]float32, len(e.columns))
	for _, col := range e.columns {
		if col < 0 || col >= len(x[0]) {
			exceptions.Panicf("tabular.OneHotEncoder: column %d out of range, matrix has %d columns", col, len(x[0]))
		}
		seen := make(map[float32]bool)
		for _, row := range x {
			seen[row[col]] = true
		}
		values := make([]float32, 0, len(seen))
		for value := range seen {
			values = append(values, value)
		}
		sort.Slice(values, func(a, b int) bool { return values[a] < values[b] })
		e.categories[col] = values
	}
	return e
}

// Transform expands the encoded columns of x. It returns a new matrix, the
// input is left untouched.
func (e *OneHotEncoder) Transform(x [][]float32) [][]float32 {
	if e.categories == nil {
		exceptions.Panicf("tabular.OneHotEncoder: Transform called before Fit")
	}
	encoded := make(map[int]bool, len(e.columns))
	for _, col := range e.columns {
		encoded[col] = true
	}
	out := make([][]float32, len(x))
	for ii, row := range x {
		var outRow []float32
		for col, value := range row {
			if !encoded[col] {
				outRow = append(outRow, value)
			}
		}
		for _, col := range e.columns {
			for _, category := range e.categories[col] {
				if row[col] == category {
					outRow = append(outRow, 1)
				} else {
					outRow = append(outRow, 0)
				}
			}
		}
		out[ii] = outRow
	}
	return out
}

// FitTransform fits the encoder on x and returns the expanded matrix.
func (e *OneHotEncoder) FitTransform(x [][]float32) [][]float32 {
	return e.Fit(x).Transform(x)
}
