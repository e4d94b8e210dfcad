// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package nam

import (
	"math/rand/v2"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// randomMatrix returns values uniform in [0, 1), the expected input range of
// the model.
func randomMatrix(seed uint64, rows, cols int) [][]float32 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	x := make([][]float32, rows)
	for ii := range x {
		x[ii] = make([]float32, cols)
		for jj := range x[ii] {
			x[ii][jj] = rng.Float32()
		}
	}
	return x
}

// buildModelOutputs evaluates the untrained model in inference mode and
// returns logits and contributions.
func buildModelOutputs(t *testing.T, seed int64, deep bool, activation string, x [][]float32) (logits, contributions *tensors.Tensor) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	ctx.SetRNGStateFromSeed(seed)
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) []*Node {
		ctx.SetTraining(x.Graph(), false)
		logits, contributions := New(ctx.In("model"), x).
			Deep(deep).
			Activation(activation).
			Seed(seed).
			DoneWithContributions()
		return []*Node{logits, contributions}
	})
	outputs := exec.MustExec(tensors.FromValue(x))
	return outputs[0], outputs[1]
}

func TestModelShapesAndAdditivity(t *testing.T) {
	const batchSize, numFeatures = 16, 3
	x := randomMatrix(1, batchSize, numFeatures)
	logits, contributions := buildModelOutputs(t, 42, true, ActivationExU, x)

	require.Equal(t, []int{batchSize}, logits.Shape().Dimensions)
	require.Equal(t, []int{batchSize, numFeatures}, contributions.Shape().Dimensions)

	// The logit of each example is the sum of its feature contributions (the
	// output bias is zero before training).
	logitsFlat := tensors.MustCopyFlatData[float32](logits)
	contribsFlat := tensors.MustCopyFlatData[float32](contributions)
	for ii := 0; ii < batchSize; ii++ {
		var sum float32
		for jj := 0; jj < numFeatures; jj++ {
			sum += contribsFlat[ii*numFeatures+jj]
		}
		assert.InDelta(t, float64(sum), float64(logitsFlat[ii]), 1e-3)
	}
}

func TestModelDeterminism(t *testing.T) {
	x := randomMatrix(2, 8, 2)
	logitsA, _ := buildModelOutputs(t, 1377, true, ActivationExU, x)
	logitsB, _ := buildModelOutputs(t, 1377, true, ActivationExU, x)
	assert.Equal(t,
		tensors.MustCopyFlatData[float32](logitsA),
		tensors.MustCopyFlatData[float32](logitsB))

	logitsC, _ := buildModelOutputs(t, 1378, true, ActivationExU, x)
	assert.NotEqual(t,
		tensors.MustCopyFlatData[float32](logitsA),
		tensors.MustCopyFlatData[float32](logitsC))
}

func TestModelArchitectures(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, test := range []struct {
		name      string
		deep      bool
		firstDims []int
		lastScope string
		lastDims  []int
	}{
		{"deep", true, []int{1, 64}, "/model/feature_0/layer_3", []int{32, 1}},
		{"wide", false, []int{1, 1024}, "/model/feature_0/layer_1", []int{1024, 1}},
	} {
		t.Run(test.name, func(t *testing.T) {
			ctx := context.New()
			ctx.SetRNGStateFromSeed(0)
			exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) *Node {
				ctx.SetTraining(x.Graph(), false)
				return New(ctx.In("model"), x).Deep(test.deep).Done()
			})
			exec.MustExec(tensors.FromValue(randomMatrix(3, 4, 2)))

			weights := ctx.GetVariableByScopeAndName("/model/feature_0/layer_0", "weights")
			require.NotNil(t, weights)
			assert.Equal(t, test.firstDims, weights.Shape().Dimensions)

			// The [lastHidden, 1] output stage is an activation layer like the
			// rest of the stack.
			last := ctx.GetVariableByScopeAndName(test.lastScope, "weights")
			require.NotNil(t, last)
			assert.Equal(t, test.lastDims, last.Shape().Dimensions)

			// Each feature gets its own tower.
			assert.NotNil(t, ctx.GetVariableByScopeAndName("/model/feature_1/layer_0", "weights"))
		})
	}
}

func TestModelContributionsNonNegative(t *testing.T) {
	// Every stage of a per-feature tower ends in a rectifier (exu clamps to
	// [0, 1], relu at 0), so the contributions can never go negative.
	x := randomMatrix(6, 32, 3)
	for _, activation := range []string{ActivationExU, ActivationRelu} {
		for _, deep := range []bool{true, false} {
			_, contributions := buildModelOutputs(t, 7, deep, activation, x)
			tensors.MustConstFlatData[float32](contributions, func(flat []float32) {
				for _, value := range flat {
					require.GreaterOrEqual(t, value, float32(0),
						"activation=%s deep=%v", activation, deep)
				}
			})
		}
	}
}

func TestActivationLayerRanges(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x := randomMatrix(4, 32, 1)

	for _, test := range []struct {
		mode       string
		upperBound float64
	}{
		{ActivationExU, 1.0},
		{ActivationRelu, -1.0}, // No upper bound.
	} {
		t.Run(test.mode, func(t *testing.T) {
			ctx := context.New()
			exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) *Node {
				return activationLayer(ctx.In("layer"), x, 16, test.mode, 7)
			})
			output := exec.MustExec1(tensors.FromValue(x))
			tensors.MustConstFlatData[float32](output, func(flat []float32) {
				for _, value := range flat {
					assert.GreaterOrEqual(t, float64(value), 0.0)
					if test.upperBound > 0 {
						assert.LessOrEqual(t, float64(value), test.upperBound)
					}
				}
			})
		})
	}
}

func TestActivationLayerUnknownModePanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) *Node {
		return activationLayer(ctx.In("layer"), x, 4, "swish", 0)
	})
	require.Panics(t, func() { exec.MustExec(tensors.FromValue(randomMatrix(5, 2, 1))) })
}

func TestModelInvalidInputPanics(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	exec := context.MustNewExec(backend, ctx, func(ctx *context.Context, x *Node) *Node {
		return New(ctx.In("model"), x).Done()
	})
	// Rank-1 input: not a feature matrix.
	require.Panics(t, func() { exec.MustExec(tensors.FromValue([]float32{1, 2, 3})) })
}
