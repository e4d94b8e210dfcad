// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package initializers

import (
	"bytes"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

// sampleTruncatedNormal initializes a variable of the given dimensions with
// TruncatedNormalFn and returns its values.
func sampleTruncatedNormal(t *testing.T, seed int64, mean, stddev, lower, upper float64, dims ...int) []float64 {
	backend := graphtest.BuildTestBackend()
	ctx := context.New().WithInitializer(TruncatedNormalFn(seed, mean, stddev, lower, upper))
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		v := ctx.VariableWithShape("values", shapes.Make(dtypes.Float64, dims...))
		return v.ValueGraph(g)
	})
	var flat []float64
	require.NotPanics(t, func() {
		values := exec.MustExec1()
		tensors.MustConstFlatData[float64](values, func(data []float64) {
			flat = append(flat, data...)
		})
	})
	return flat
}

func TestTruncatedNormalBounds(t *testing.T) {
	const (
		mean, stddev = 4.0, 0.5
		lower, upper = 3.0, 5.0
	)
	flat := sampleTruncatedNormal(t, 42, mean, stddev, lower, upper, 100, 10)
	require.Len(t, flat, 1000)
	var sum float64
	for _, x := range flat {
		require.GreaterOrEqual(t, x, lower)
		require.LessOrEqual(t, x, upper)
		sum += x
	}
	assert.InDelta(t, mean, sum/float64(len(flat)), 0.1)
}

func TestTruncatedNormalScalar(t *testing.T) {
	flat := sampleTruncatedNormal(t, 17, 0.0, 0.5, -1.0, 1.0)
	require.Len(t, flat, 1)
	assert.GreaterOrEqual(t, flat[0], -1.0)
	assert.LessOrEqual(t, flat[0], 1.0)
}

func TestTruncatedNormalDeterminism(t *testing.T) {
	a := sampleTruncatedNormal(t, 1377, 0.0, 0.5, -1.0, 1.0, 64)
	b := sampleTruncatedNormal(t, 1377, 0.0, 0.5, -1.0, 1.0, 64)
	assert.Equal(t, a, b)

	c := sampleTruncatedNormal(t, 1378, 0.0, 0.5, -1.0, 1.0, 64)
	assert.NotEqual(t, a, c)
}

func TestTruncatedNormalOutOfRangeMean(t *testing.T) {
	// Mean far outside the interval: samples collapse to the upper edge but
	// must remain within bounds. A warning is logged at construction.
	flat := sampleTruncatedNormal(t, 7, 10.0, 0.5, -1.0, 1.0, 32)
	for _, x := range flat {
		require.GreaterOrEqual(t, x, -1.0)
		require.LessOrEqual(t, x, 1.0)
	}
}

func TestTruncatedNormalOutOfRangeMeanWarns(t *testing.T) {
	var logs bytes.Buffer
	klog.LogToStderr(false)
	klog.SetOutput(&logs)
	defer klog.LogToStderr(true)

	// A mean more than 2 standard deviations outside the interval warns once
	// at construction, but still yields a usable initializer.
	TruncatedNormalFn(7, 10.0, 0.5, -1.0, 1.0)
	klog.Flush()
	assert.Contains(t, logs.String(), "outside of the interval")

	// An in-range mean is silent.
	logs.Reset()
	TruncatedNormalFn(7, 0.0, 0.5, -1.0, 1.0)
	klog.Flush()
	assert.Empty(t, logs.String())
}

func TestTruncatedNormalInvalidArgs(t *testing.T) {
	require.Panics(t, func() { TruncatedNormalFn(0, 0.0, 0.0, -1.0, 1.0) })
	require.Panics(t, func() { TruncatedNormalFn(0, 0.0, 0.5, 1.0, -1.0) })
}
