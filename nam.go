// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package nam implements Neural Additive Models (NAM) for binary
// classification: one small subnetwork per input feature, whose scalar
// outputs ("contributions") are summed with a learned bias into the logit.
// Because each feature flows through its own subnetwork, the contribution of
// each feature to a prediction can be read off directly, making the model
// interpretable by construction.
//
// The graph-building entry point is New (in the style of the layer packages
// of github.com/gomlx/gomlx), and Classifier wraps it with a full training
// loop: stratified holdout split, Adam with loss scaling, exponential
// learning rate decay and early stopping on the holdout AUC.
//
// Reference: Agarwal et al., "Neural Additive Models: Interpretable Machine
// Learning with Neural Nets", NeurIPS 2021.
package nam

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
)

// Hidden layer sizes of each per-feature subnetwork.
var (
	deepHiddenLayers = []int{64, 64, 32}
	wideHiddenLayers = []int{1024}
)

// Config is created with New and can be adjusted with its methods, or by
// setting the corresponding hyperparameters in the context (ParamDeep,
// ParamActivation, ParamHiddenDropout, ParamFeatureDropout, ParamSeed).
type Config struct {
	ctx   *context.Context
	input *Node

	deep           bool
	activation     string
	hiddenDropout  float64
	featureDropout float64
	seed           int64
}

// New creates the configuration for a Neural Additive Model over input,
// shaped [batch_size, num_features]. Call Done (or DoneWithContributions) to
// build the computation graph and get the logits.
//
// Defaults are read from the context hyperparameters; see the Param*
// constants. Example:
//
//	func modelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
//		logits := nam.New(ctx.In("model"), inputs[0]).Deep(true).Done()
//		return []*Node{logits}
//	}
func New(ctx *context.Context, input *Node) *Config {
	if input.Rank() != 2 {
		exceptions.Panicf("nam: input must be shaped [batch_size, num_features], got shape %s", input.Shape())
	}
	if input.Shape().Dimensions[1] <= 0 {
		exceptions.Panicf("nam: input has no features, got shape %s", input.Shape())
	}
	return &Config{
		ctx:            ctx,
		input:          input,
		deep:           context.GetParamOr(ctx, ParamDeep, true),
		activation:     context.GetParamOr(ctx, ParamActivation, ActivationExU),
		hiddenDropout:  context.GetParamOr(ctx, ParamHiddenDropout, DefaultHiddenDropout),
		featureDropout: context.GetParamOr(ctx, ParamFeatureDropout, DefaultFeatureDropout),
		seed:           int64(context.GetParamOr(ctx, ParamSeed, DefaultSeed)),
	}
}

// Deep selects between the deep ([64, 64, 32]) and the wide ([1024]) hidden
// architecture of the per-feature subnetworks.
func (c *Config) Deep(deep bool) *Config {
	c.deep = deep
	return c
}

// Activation sets the activation mode of the first hidden layer of each
// subnetwork: ActivationExU or ActivationRelu. Subsequent hidden layers
// always use relu.
func (c *Config) Activation(activation string) *Config {
	c.activation = activation
	return c
}

// HiddenDropout sets the dropout rate applied after every hidden layer while
// training. Set to 0 to disable.
func (c *Config) HiddenDropout(rate float64) *Config {
	if rate < 0 || rate >= 1 {
		exceptions.Panicf("nam: invalid hidden dropout rate %g", rate)
	}
	c.hiddenDropout = rate
	return c
}

// FeatureDropout sets the dropout rate applied to the per-feature
// contributions while training. Set to 0 to disable.
func (c *Config) FeatureDropout(rate float64) *Config {
	if rate < 0 || rate >= 1 {
		exceptions.Panicf("nam: invalid feature dropout rate %g", rate)
	}
	c.featureDropout = rate
	return c
}

// Seed sets the seed used for the weight initializers.
func (c *Config) Seed(seed int64) *Config {
	c.seed = seed
	return c
}

// layerSeed derives a per-layer initializer seed, so every layer of every
// subnetwork draws an independent, reproducible stream.
func (c *Config) layerSeed(feature, layer int) int64 {
	return c.seed + int64(feature)*1009 + int64(layer)*17
}

// subnetwork builds the per-feature tower for input x shaped [batch_size, 1]
// and returns its contribution, shaped [batch_size, 1]. Every stage is an
// activation layer -- the hidden stack and the final [lastHidden, 1]
// projection alike, so the contribution is relu-clamped at 0 -- with dropout
// after each, including the last.
func (c *Config) subnetwork(ctx *context.Context, x *Node, feature int, dropoutRate *Node) *Node {
	sizes := wideHiddenLayers
	if c.deep {
		sizes = deepHiddenLayers
	}
	sizes = append(append([]int{}, sizes...), 1)
	h := x
	for ii, units := range sizes {
		layerCtx := ctx.Inf("layer_%d", ii)
		mode := ActivationRelu
		if ii == 0 {
			mode = c.activation
		}
		h = activationLayer(layerCtx, h, units, mode, c.layerSeed(feature, ii))
		if dropoutRate != nil {
			h = layers.DropoutNormalize(layerCtx, h, dropoutRate, true)
		}
	}
	return h
}

// DoneWithContributions builds the model graph and returns both the logits,
// shaped [batch_size], and the per-feature contributions, shaped
// [batch_size, num_features].
//
// While training (see context.Context.SetTraining) the contributions have
// feature dropout applied, and the logits are their sum: the training loss
// penalty and the summed logit see the same values, as intended. In inference
// both dropouts are no-ops and the contributions are exact.
func (c *Config) DoneWithContributions() (logits, contributions *Node) {
	ctx := c.ctx
	x := c.input
	g := x.Graph()
	dtype := x.DType()
	numFeatures := x.Shape().Dimensions[1]

	if c.activation != ActivationExU && c.activation != ActivationRelu {
		exceptions.Panicf("nam: unknown activation %q: valid values are %q and %q", c.activation, ActivationExU, ActivationRelu)
	}

	var hiddenDropout *Node
	if c.hiddenDropout > 0 {
		hiddenDropout = Scalar(g, dtype, c.hiddenDropout)
	}

	contribs := make([]*Node, numFeatures)
	for feature := range numFeatures {
		featureCtx := ctx.Inf("feature_%d", feature)
		column := Slice(x, AxisRange(), AxisRange(feature, feature+1))
		contribs[feature] = c.subnetwork(featureCtx, column, feature, hiddenDropout)
	}
	contributions = Concatenate(contribs, -1)
	if c.featureDropout > 0 {
		contributions = layers.DropoutNormalize(ctx.In("feature_dropout"), contributions,
			Scalar(g, dtype, c.featureDropout), true)
	}

	outputBiasVar := ctx.In("output").VariableWithValue("bias", tensors.FromShape(shapes.Make(dtype)))
	logits = Add(ReduceSum(contributions, -1), outputBiasVar.ValueGraph(g))
	return
}

// Done builds the model graph and returns the logits, shaped [batch_size].
func (c *Config) Done() *Node {
	logits, _ := c.DoneWithContributions()
	return logits
}
