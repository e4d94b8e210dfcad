// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package nam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarlyStopper(t *testing.T) {
	// With a patience of 2, the AUCs 0.70, 0.72, 0.71, 0.69, 0.68 stop
	// training right after the second epoch without improvement; the best
	// epoch is the second one (index 1).
	es := newEarlyStopper(2)
	aucs := []float64{0.70, 0.72, 0.71, 0.69, 0.68}
	var stoppedAt int
	for epoch, auc := range aucs {
		if es.observe(epoch, auc) {
			stoppedAt = epoch
			break
		}
	}
	assert.Equal(t, 3, stoppedAt)
	assert.Equal(t, 1, es.bestEpoch)
	assert.Equal(t, 0.72, es.bestMetric)
}

func TestEarlyStopperTiesFavorLaterEpoch(t *testing.T) {
	es := newEarlyStopper(3)
	require.False(t, es.observe(0, 0.8))
	require.False(t, es.observe(1, 0.7))
	require.False(t, es.observe(2, 0.8)) // Tie: refills patience, moves best.
	assert.Equal(t, 2, es.bestEpoch)
	require.False(t, es.observe(3, 0.75))
	require.False(t, es.observe(4, 0.75))
	require.True(t, es.observe(5, 0.75))
	assert.Equal(t, 2, es.bestEpoch)
	assert.Equal(t, 0.8, es.bestMetric)
}

func TestEarlyStopperNeverImproves(t *testing.T) {
	// The first observation always sets a best epoch.
	es := newEarlyStopper(1)
	require.False(t, es.observe(0, 0.5))
	require.True(t, es.observe(1, 0.4))
	assert.Equal(t, 0, es.bestEpoch)
}
