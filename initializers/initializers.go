// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package initializers provides variable initializers for neural additive
// models, complementing the ones in
// github.com/gomlx/gomlx/pkg/ml/context/initializers.
//
// The main export is TruncatedNormalFn, a normal distribution truncated to a
// closed interval, sampled by inverse transform (inverse CDF) so that no
// rejection loop is needed.
package initializers

import (
	"math"
	"math/rand/v2"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"k8s.io/klog/v2"
)

// normalCDF is Φ(x), the standard normal cumulative distribution function.
func normalCDF(x float64) float64 {
	return (1.0 + math.Erf(x/math.Sqrt2)) / 2.0
}

// TruncatedNormalFn returns an initializer that draws from a normal
// distribution with the given mean and stddev, truncated to [lower, upper].
//
// Sampling is done by inverse transform: the CDF values of the bounds are
// computed, a uniform value is drawn in the corresponding range, and mapped
// back through the inverse error function. A final clamp to [lower, upper]
// guards against floating point drift at the interval edges.
//
// Values are generated on the host with a generator seeded by seed, and
// enter the graph as a constant, so for a fixed seed and a fixed order of
// variable creation the resulting weights are reproducible.
//
// If mean is more than 2 standard deviations outside [lower, upper], the
// distribution of the samples is badly distorted and a warning is logged.
func TruncatedNormalFn(seed int64, mean, stddev, lower, upper float64) context.VariableInitializer {
	if stddev <= 0 {
		exceptions.Panicf("initializers.TruncatedNormalFn: stddev must be > 0, got %g", stddev)
	}
	if lower >= upper {
		exceptions.Panicf("initializers.TruncatedNormalFn: invalid interval [%g, %g]", lower, upper)
	}
	if mean < lower-2*stddev || mean > upper+2*stddev {
		klog.Warningf("initializers.TruncatedNormalFn: mean (%g) is more than 2 standard deviations (stddev=%g) "+
			"outside of the interval [%g, %g] -- the distribution of values may be incorrect", mean, stddev, lower, upper)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9E3779B97F4A7C15))

	// CDF of the bounds, mapped to the [-1, 1) domain of Erfinv.
	vLower := 2*normalCDF((lower-mean)/stddev) - 1
	vUpper := 2*normalCDF((upper-mean)/stddev) - 1

	return func(g *Graph, shape shapes.Shape) *Node {
		dtype := shape.DType
		if !dtype.IsFloat() {
			exceptions.Panicf("initializers.TruncatedNormalFn: only float variables are supported, requested shape %s", shape)
		}
		flat := make([]float64, shape.Size())
		for ii := range flat {
			v := vLower + rng.Float64()*(vUpper-vLower)
			x := math.Erfinv(v)
			x = x*stddev*math.Sqrt2 + mean
			flat[ii] = min(max(x, lower), upper)
		}
		values := tensors.FromFlatDataAndDimensions(flat, shape.Dimensions...)
		return ConvertDType(Const(g, values), dtype)
	}
}
