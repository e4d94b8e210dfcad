// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package nam

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
)

const (
	// ParamDeep is the context hyperparameter selecting the deep architecture
	// (hidden layers [64, 64, 32]) over the wide one ([1024]). Default is true (bool).
	ParamDeep = "nam_deep"

	// ParamActivation is the context hyperparameter with the activation mode of
	// the first hidden layer of each per-feature subnetwork: "exu" or "relu".
	// Default is "exu" (string).
	ParamActivation = "nam_activation"

	// ParamHiddenDropout is the context hyperparameter with the dropout rate
	// applied after every hidden layer of the per-feature subnetworks.
	// Default is 0.1 (float64).
	ParamHiddenDropout = "nam_hidden_dropout"

	// ParamFeatureDropout is the context hyperparameter with the dropout rate
	// applied to the per-feature contributions before they are summed.
	// Default is 0.05 (float64).
	ParamFeatureDropout = "nam_feature_dropout"

	// ParamWeightDecay is the context hyperparameter with the L2 weight decay
	// passed to the Adam optimizer. Default is 0.0 (float64).
	ParamWeightDecay = "nam_weight_decay"

	// ParamOutputPenalty is the context hyperparameter with the weight of the
	// mean squared per-feature contribution added to the loss.
	// Default is 0.0 (float64).
	ParamOutputPenalty = "nam_output_penalty"

	// ParamSeed is the context hyperparameter with the seed used for weight
	// initialization, the train/holdout split and shuffling. Default is 1377 (int).
	ParamSeed = "nam_seed"
)

// Default hyperparameter values.
const (
	DefaultLearningRate    = 0.02
	DefaultBatchSize       = 1024
	DefaultSeed            = 1377
	DefaultHoldoutFraction = 0.176
	DefaultHiddenDropout   = 0.1
	DefaultFeatureDropout  = 0.05
	DefaultPatience        = 5
	DefaultMaxEpochs       = 1000
	DefaultOptLevel        = "O1"

	// lrDecayGamma is the per-epoch exponential learning rate decay factor.
	lrDecayGamma = 0.995
)

// Activation modes for the first hidden layer of each per-feature subnetwork.
const (
	ActivationExU  = "exu"
	ActivationRelu = "relu"
)

// Options configures a Classifier. The zero value is not usable, start from
// DefaultOptions or FromName.
type Options struct {
	// Deep selects the [64, 64, 32] hidden architecture; false selects the
	// single wide [1024] hidden layer.
	Deep bool

	// Activation mode of the first hidden layer: ActivationExU or ActivationRelu.
	Activation string

	// LearningRate of the Adam optimizer. It decays by a factor of 0.995
	// after every epoch.
	LearningRate float64

	// BatchSize of the training mini-batches. The last, incomplete batch of
	// each epoch is kept.
	BatchSize int

	// WeightDecay is the L2 regularization (lambda 1) applied by Adam.
	WeightDecay float64

	// OutputPenalty is the weight (lambda 2) of the mean squared per-feature
	// contribution added to the training loss.
	OutputPenalty float64

	// HiddenDropout is applied after every hidden layer while training.
	HiddenDropout float64

	// FeatureDropout is applied to the per-feature contributions while training.
	FeatureDropout float64

	// Seed drives weight initialization, the stratified split and shuffling.
	Seed int64

	// HoldoutFraction of the examples set aside for per-epoch evaluation and
	// early stopping.
	HoldoutFraction float64

	// Patience is the number of consecutive epochs without a new best holdout
	// AUC tolerated before training stops.
	Patience int

	// MaxEpochs caps training even if the holdout AUC keeps improving.
	MaxEpochs int

	// OptLevel is the mixed precision optimization level: "O0", "O1" or "O2".
	// See package amp.
	OptLevel string

	// Progress receives the per-epoch progress lines. Defaults to os.Stdout
	// when nil; set to io.Discard to silence.
	Progress io.Writer

	// CheckpointDir, if non-empty, is where the fitted model is saved at the
	// end of Fit.
	CheckpointDir string
}

// DefaultOptions returns the default hyperparameters: deep architecture with
// ExU first layers, learning rate 0.02, batch size 1024 and seed 1377.
func DefaultOptions() Options {
	return Options{
		Deep:            true,
		Activation:      ActivationExU,
		LearningRate:    DefaultLearningRate,
		BatchSize:       DefaultBatchSize,
		HiddenDropout:   DefaultHiddenDropout,
		FeatureDropout:  DefaultFeatureDropout,
		Seed:            DefaultSeed,
		HoldoutFraction: DefaultHoldoutFraction,
		Patience:        DefaultPatience,
		MaxEpochs:       DefaultMaxEpochs,
		OptLevel:        DefaultOptLevel,
	}
}

// FromName decodes a model name like
//
//	nam-d1-lr0.02-l10.0001-l20.001-l30.1-l40.05-r1377
//
// into Options. The leading token must be "nam". The remaining tokens are
// optional and keep their default when omitted:
//
//	d<0|1>    deep (1) or wide (0) architecture
//	lr<float> learning rate
//	l1<float> L2 weight decay
//	l2<float> output penalty
//	l3<float> hidden dropout rate
//	l4<float> feature dropout rate
//	r<int>    seed
//
// Any other token yields an error.
func FromName(name string) (Options, error) {
	opts := DefaultOptions()
	parts := strings.Split(name, "-")
	if parts[0] != "nam" {
		return opts, errors.Errorf("unsupported model name %q: it must start with \"nam\"", name)
	}
	for _, token := range parts[1:] {
		var err error
		switch {
		case strings.HasPrefix(token, "lr"):
			opts.LearningRate, err = strconv.ParseFloat(token[2:], 64)
		case strings.HasPrefix(token, "l1"):
			opts.WeightDecay, err = strconv.ParseFloat(token[2:], 64)
		case strings.HasPrefix(token, "l2"):
			opts.OutputPenalty, err = strconv.ParseFloat(token[2:], 64)
		case strings.HasPrefix(token, "l3"):
			opts.HiddenDropout, err = strconv.ParseFloat(token[2:], 64)
		case strings.HasPrefix(token, "l4"):
			opts.FeatureDropout, err = strconv.ParseFloat(token[2:], 64)
		case strings.HasPrefix(token, "d"):
			var deep int
			deep, err = strconv.Atoi(token[1:])
			opts.Deep = deep != 0
		case strings.HasPrefix(token, "r"):
			var seed int
			seed, err = strconv.Atoi(token[1:])
			opts.Seed = int64(seed)
		default:
			return opts, errors.Errorf("unsupported hyperparameter token %q in model name %q", token, name)
		}
		if err != nil {
			return opts, errors.Wrapf(err, "invalid hyperparameter token %q in model name %q", token, name)
		}
	}
	return opts, nil
}

// Name re-encodes the options in the format decoded by FromName.
func (o Options) Name() string {
	deep := 0
	if o.Deep {
		deep = 1
	}
	return fmt.Sprintf("nam-d%d-lr%g-l1%g-l2%g-l3%g-l4%g-r%d",
		deep, o.LearningRate, o.WeightDecay, o.OutputPenalty, o.HiddenDropout, o.FeatureDropout, o.Seed)
}

// validate checks the options for values that cannot be trained with.
func (o Options) validate() error {
	if o.Activation != ActivationExU && o.Activation != ActivationRelu {
		return errors.Errorf("unknown activation %q: valid values are %q and %q", o.Activation, ActivationExU, ActivationRelu)
	}
	if o.LearningRate <= 0 {
		return errors.Errorf("learning rate must be > 0, got %g", o.LearningRate)
	}
	if o.BatchSize <= 0 {
		return errors.Errorf("batch size must be > 0, got %d", o.BatchSize)
	}
	if o.HoldoutFraction <= 0 || o.HoldoutFraction >= 1 {
		return errors.Errorf("holdout fraction must be in (0, 1), got %g", o.HoldoutFraction)
	}
	for _, rate := range []float64{o.HiddenDropout, o.FeatureDropout} {
		if rate < 0 || rate >= 1 {
			return errors.Errorf("dropout rates must be in [0, 1), got hidden=%g feature=%g", o.HiddenDropout, o.FeatureDropout)
		}
	}
	if o.Patience <= 0 {
		return errors.Errorf("patience must be > 0, got %d", o.Patience)
	}
	if o.MaxEpochs <= 0 {
		return errors.Errorf("max epochs must be > 0, got %d", o.MaxEpochs)
	}
	return nil
}

// applyToContext publishes the options as context hyperparameters, so that
// the model builder (and anything else reading the context) sees them.
func (o Options) applyToContext(ctx *context.Context) {
	ctx.SetParam(ParamDeep, o.Deep)
	ctx.SetParam(ParamActivation, o.Activation)
	ctx.SetParam(ParamHiddenDropout, o.HiddenDropout)
	ctx.SetParam(ParamFeatureDropout, o.FeatureDropout)
	ctx.SetParam(ParamWeightDecay, o.WeightDecay)
	ctx.SetParam(ParamOutputPenalty, o.OutputPenalty)
	ctx.SetParam(ParamSeed, int(o.Seed))
	ctx.SetParam(optimizers.ParamLearningRate, o.LearningRate)
}
