// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package rocauc

import (
	"math"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromScores(t *testing.T) {
	// Perfect ranking.
	assert.Equal(t, 1.0,
		FromScores([]float64{0, 0, 1, 1}, []float64{-2, -1, 1, 2}))

	// Perfectly inverted ranking.
	assert.Equal(t, 0.0,
		FromScores([]float64{1, 1, 0, 0}, []float64{-2, -1, 1, 2}))

	// All scores tied: chance level.
	assert.Equal(t, 0.5,
		FromScores([]float64{0, 1, 0, 1}, []float64{3, 3, 3, 3}))

	// One swapped pair out of four: 3 of 4 positive/negative pairs ranked
	// correctly.
	assert.InDelta(t, 0.75,
		FromScores([]float64{0, 1, 0, 1}, []float64{0.1, 0.4, 0.35, 0.8}), 1e-9)

	// Degenerate labels.
	assert.True(t, math.IsNaN(FromScores([]float64{1, 1}, []float64{0.2, 0.4})))
	assert.True(t, math.IsNaN(FromScores([]float64{0, 0}, []float64{0.2, 0.4})))
}

func TestFromScoresMismatchedLengths(t *testing.T) {
	require.Panics(t, func() { FromScores([]float64{1}, []float64{0.5, 0.6}) })
}

func TestMetricAccumulation(t *testing.T) {
	m := New("Holdout AUC", "#auc")
	assert.Equal(t, "Holdout AUC", m.Name())
	assert.Equal(t, "#auc", m.ShortName())

	// Two batches of (label, logit) pairs, as packed by UpdateGraph.
	m.UpdateGo(tensors.FromFlatDataAndDimensions([]float64{0, -2, 1, 2}, 2, 2))
	m.UpdateGo(tensors.FromFlatDataAndDimensions([]float64{0, -1, 1, 1}, 2, 2))
	auc := m.ReadGo().Value().(float64)
	assert.Equal(t, 1.0, auc)

	// Reset drops the accumulated pairs.
	m.Reset(nil)
	require.Panics(t, func() { m.ReadGo() })

	// After reset, a partially-wrong ranking gives a mid-range AUC.
	m.UpdateGo(tensors.FromFlatDataAndDimensions([]float64{0, 0.1, 1, 0.4, 0, 0.35, 1, 0.8}, 4, 2))
	assert.InDelta(t, 0.75, m.ReadGo().Value().(float64), 1e-9)
}
