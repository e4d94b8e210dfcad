// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package nam

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	ctxinitializers "github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"

	"github.com/gomlx/nam/initializers"
)

// activationLayer builds one hidden layer of a per-feature subnetwork, with
// variables created in the given ctx scope. x is shaped [batch_size, in_features].
//
// In "exu" mode the layer computes h = (x - bias) * exp(weights), with the
// weights initialized with a truncated normal centered at 4 (so exp(weights)
// starts around e^4) and a scalar bias, and the output clipped to [0, 1]
// ("relu-n"). The exponentiated weights let the layer model sharp jumps with
// inputs in the unit range.
//
// In "relu" mode it is a standard dense layer with Xavier uniform weights, a
// truncated normal bias vector and a relu activation.
func activationLayer(ctx *context.Context, x *Node, units int, mode string, seed int64) *Node {
	g := x.Graph()
	dtype := x.DType()
	inFeatures := x.Shape().Dimensions[x.Rank()-1]

	switch mode {
	case ActivationExU:
		weightsVar := ctx.WithInitializer(initializers.TruncatedNormalFn(seed, 4.0, 0.5, 3.0, 5.0)).
			VariableWithShape("weights", shapes.Make(dtype, inFeatures, units))
		biasVar := ctx.WithInitializer(initializers.TruncatedNormalFn(seed+1, 0.0, 0.5, -1.0, 1.0)).
			VariableWithShape("bias", shapes.Make(dtype))
		h := DotProduct(Sub(x, biasVar.ValueGraph(g)), Exp(weightsVar.ValueGraph(g)))
		return ClipScalar(h, 0.0, 1.0)

	case ActivationRelu:
		weightsVar := ctx.WithInitializer(ctxinitializers.XavierUniformFn(ctx)).
			VariableWithShape("weights", shapes.Make(dtype, inFeatures, units))
		biasesVar := ctx.WithInitializer(initializers.TruncatedNormalFn(seed+1, 0.0, 0.5, -1.0, 1.0)).
			VariableWithShape("biases", shapes.Make(dtype, units))
		h := DotProduct(x, weightsVar.ValueGraph(g))
		h = Add(h, ExpandLeftToRank(biasesVar.ValueGraph(g), h.Rank()))
		return activations.Apply(activations.TypeRelu, h)
	}
	exceptions.Panicf("nam: unknown activation mode %q: valid values are %q and %q", mode, ActivationExU, ActivationRelu)
	return nil
}
