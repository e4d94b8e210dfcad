// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package amp provides mixed-precision training helpers in the form of an
// optimizers.Interface wrapper that applies static loss scaling: the loss is
// multiplied by a constant scale before the gradients are computed, and the
// gradients are divided by the same scale before the wrapped optimizer
// applies them. This keeps small gradient magnitudes representable when parts
// of the computation run in reduced precision, without changing the effective
// step.
//
// The optimization levels mirror the usual convention:
//
//	O0: no scaling, the inner optimizer is returned unchanged.
//	O1: loss scale 1024.
//	O2: loss scale 4096, for models with half-precision variables.
package amp

import (
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
)

// Loss scales of the optimization levels.
const (
	ScaleO1 = 1024.0
	ScaleO2 = 4096.0
)

// gradientStepper is the seam exposed by optimizers (Adam among them) that
// can apply externally computed gradients.
type gradientStepper interface {
	UpdateGraphWithGradients(ctx *context.Context, grads []*Node, lossDType dtypes.DType)
}

// scaledOptimizer wraps an inner optimizer with static loss scaling.
type scaledOptimizer struct {
	inner optimizers.Interface
	scale float64
}

// WrapOptimizer wraps inner with the loss scaling of the given optimization
// level ("O0", "O1" or "O2"). Any other level is an error.
func WrapOptimizer(inner optimizers.Interface, level string) (optimizers.Interface, error) {
	switch level {
	case "", "O0":
		return inner, nil
	case "O1":
		return &scaledOptimizer{inner: inner, scale: ScaleO1}, nil
	case "O2":
		return &scaledOptimizer{inner: inner, scale: ScaleO2}, nil
	}
	return nil, errors.Errorf("unknown optimization level %q: valid values are \"O0\", \"O1\" and \"O2\"", level)
}

// UpdateGraph adds the optimizer update to the graph: scale the loss, build
// the gradients of the trainable variables, unscale them and hand them to the
// inner optimizer.
//
// If the inner optimizer cannot take externally computed gradients, scaling
// would be pointless (the inner optimizer would recompute the gradients from
// the unscaled loss), so it is invoked unwrapped.
func (o *scaledOptimizer) UpdateGraph(ctx *context.Context, g *Graph, loss *Node) {
	stepper, ok := o.inner.(gradientStepper)
	if !ok {
		o.inner.UpdateGraph(ctx, g, loss)
		return
	}
	scaledLoss := MulScalar(loss, o.scale)
	grads := ctx.BuildTrainableVariablesGradientsGraph(scaledLoss)
	for ii, grad := range grads {
		grads[ii] = DivScalar(grad, o.scale)
	}
	stepper.UpdateGraphWithGradients(ctx, grads, loss.DType())
}

// Clear deletes the internal state of the inner optimizer.
func (o *scaledOptimizer) Clear(ctx *context.Context) error {
	return o.inner.Clear(ctx)
}
