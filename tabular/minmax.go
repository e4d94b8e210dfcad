// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package tabular

import "github.com/gomlx/exceptions"

// MinMaxScaler rescales every column to [0, 1] using the per-column minimum
// and maximum observed during Fit. Constant columns map to 0.
//
// It implements the nam.Transformer interface.
type MinMaxScaler struct {
	mins, maxs []float32
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit records the per-column minimum and maximum of x.
func (s *MinMaxScaler) Fit(x [][]float32) *MinMaxScaler {
	if len(x) == 0 {
		exceptions.Panicf("tabular.MinMaxScaler: cannot fit on an empty matrix")
	}
	numColumns := len(x[0])
	s.mins = make([]float32, numColumns)
	s.maxs = make([]float32, numColumns)
	copy(s.mins, x[0])
	copy(s.maxs, x[0])
	for _, row := range x[1:] {
		for col, value := range row {
			s.mins[col] = min(s.mins[col], value)
			s.maxs[col] = max(s.maxs[col], value)
		}
	}
	return s
}

// Transform rescales x with the ranges recorded by Fit. It returns a new
// matrix, the input is left untouched.
func (s *MinMaxScaler) Transform(x [][]float32) [][]float32 {
	if s.mins == nil {
		exceptions.Panicf("tabular.MinMaxScaler: Transform called before Fit")
	}
	out := make([][]float32, len(x))
	for ii, row := range x {
		if len(row) != len(s.mins) {
			exceptions.Panicf("tabular.MinMaxScaler: fitted with %d columns, got a row with %d", len(s.mins), len(row))
		}
		outRow := make([]float32, len(row))
		for col, value := range row {
			spread := s.maxs[col] - s.mins[col]
			if spread > 0 {
				outRow[col] = (value - s.mins[col]) / spread
			}
		}
		out[ii] = outRow
	}
	return out
}

// FitTransform fits the scaler on x and returns the rescaled matrix.
func (s *MinMaxScaler) FitTransform(x [][]float32) [][]float32 {
	return s.Fit(x).Transform(x)
}
