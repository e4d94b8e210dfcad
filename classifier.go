// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package nam

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"

	"github.com/gomlx/nam/amp"
	"github.com/gomlx/nam/rocauc"
	"github.com/gomlx/nam/tabular"
)

// Transformer preprocesses a dense feature matrix. Implementations live in
// package tabular (MinMaxScaler, OneHotEncoder); a Classifier configured with
// one applies FitTransform during Fit and Transform on every prediction.
type Transformer interface {
	FitTransform(x [][]float32) [][]float32
	Transform(x [][]float32) [][]float32
}

// Classifier trains and serves a Neural Additive Model for binary
// classification. Create it with NewClassifier, train with Fit, then use
// Predict, PredictProbability, Logits or PredictPerFeature.
type Classifier struct {
	opts        Options
	backend     backends.Backend
	transformer Transformer

	ctx         *context.Context
	numFeatures int
	exec        *context.Exec

	// BestEpoch and BestAUC describe the early stopping outcome of the last
	// Fit: the epoch with the highest holdout AUC and its value.
	BestEpoch int
	BestAUC   float64
}

// NewClassifier creates an untrained classifier with the given options.
func NewClassifier(opts Options) *Classifier {
	if opts.Progress == nil {
		opts.Progress = os.Stdout
	}
	return &Classifier{opts: opts, BestEpoch: -1}
}

// WithBackend sets the backend to execute on. Defaults to backends.MustNew,
// which picks the best registered backend available.
func (c *Classifier) WithBackend(backend backends.Backend) *Classifier {
	c.backend = backend
	return c
}

// WithTransformer sets a preprocessing transformer, fitted together with the
// model and applied to every matrix passed to the prediction methods.
func (c *Classifier) WithTransformer(transformer Transformer) *Classifier {
	c.transformer = transformer
	return c
}

// Options returns a copy of the classifier's options.
func (c *Classifier) Options() Options { return c.opts }

// Context returns the context holding the fitted model variables, or nil if
// the classifier was never fitted.
func (c *Classifier) Context() *context.Context { return c.ctx }

// lossGraphFn returns the training loss: mean binary cross-entropy on the
// logits plus outputPenalty times the mean squared per-feature contribution.
func lossGraphFn(outputPenalty float64) func(labels, predictions []*Node) *Node {
	return func(labels, predictions []*Node) *Node {
		logits, contributions := predictions[0], predictions[1]
		loss := ReduceAllMean(losses.BinaryCrossentropyLogits(labels, []*Node{logits}))
		if outputPenalty > 0 {
			loss = Add(loss, MulScalar(ReduceAllMean(Square(contributions)), outputPenalty))
		}
		return loss
	}
}

// modelGraph is the train.ModelFn of the classifier: logits first, then the
// per-feature contributions.
func modelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	logits, contributions := New(ctx.In("model"), inputs[0]).DoneWithContributions()
	return []*Node{logits, contributions}
}

// Fit trains the model on the given feature matrix and binary (0/1) labels.
//
// It sets aside a stratified holdout slice, trains with Adam (learning rate
// decayed by 0.995 per epoch, loss scaling per Options.OptLevel) and stops
// early when the holdout AUC stops improving for Options.Patience epochs, or
// at Options.MaxEpochs. One progress line per epoch is written to
// Options.Progress.
//
// Calling Fit again retrains from scratch: all variables are reinitialized.
func (c *Classifier) Fit(x [][]float32, y []float32) error {
	opts := c.opts
	if err := opts.validate(); err != nil {
		return errors.WithMessage(err, "invalid options")
	}
	if len(x) == 0 {
		return errors.Errorf("cannot fit on an empty dataset")
	}
	if len(x) != len(y) {
		return errors.Errorf("got %d examples but %d labels", len(x), len(y))
	}
	if c.transformer != nil {
		x = c.transformer.FitTransform(x)
	}
	numFeatures := len(x[0])
	for ii, row := range x {
		if len(row) != numFeatures {
			return errors.Errorf("example %d has %d features, expected %d", ii, len(row), numFeatures)
		}
	}
	if c.backend == nil {
		c.backend = backends.MustNew()
	}

	trainX, trainY, holdoutX, holdoutY := tabular.StratifiedSplit(opts.Seed, x, y, opts.HoldoutFraction)

	// Fresh context per fit: refitting reinitializes every variable.
	ctx := context.New()
	if err := ctx.SetRNGStateFromSeed(opts.Seed); err != nil {
		return errors.WithMessage(err, "seeding the model RNG")
	}
	opts.applyToContext(ctx)

	var checkpoint *checkpoints.Handler
	if opts.CheckpointDir != "" {
		var err error
		checkpoint, err = checkpoints.Build(ctx).Dir(opts.CheckpointDir).Keep(3).Done()
		if err != nil {
			return errors.WithMessagef(err, "building checkpoint handler for %q", opts.CheckpointDir)
		}
	}

	adam := optimizers.Adam().LearningRate(opts.LearningRate).WeightDecay(opts.WeightDecay).Done()
	optimizer, err := amp.WrapOptimizer(adam, opts.OptLevel)
	if err != nil {
		return err
	}

	trainLossMetric := metrics.NewMeanMetric("Train loss", "#loss", metrics.LossMetricType,
		func(_ *context.Context, labels, predictions []*Node) *Node {
			return lossGraphFn(opts.OutputPenalty)(labels, predictions)
		}, nil)
	trainAccMetric := metrics.NewMeanBinaryLogitsAccuracy("Train accuracy", "#acc")
	holdoutLossMetric := metrics.NewMeanMetric("Holdout loss", "#loss", metrics.LossMetricType,
		func(_ *context.Context, labels, predictions []*Node) *Node {
			return lossGraphFn(opts.OutputPenalty)(labels, predictions)
		}, nil)
	holdoutAccMetric := metrics.NewMeanBinaryLogitsAccuracy("Holdout accuracy", "#acc")
	holdoutAUCMetric := rocauc.New("Holdout AUC", "#auc")

	trainer := train.NewTrainer(c.backend, ctx, modelGraph, lossGraphFn(opts.OutputPenalty), optimizer,
		[]metrics.Interface{trainLossMetric, trainAccMetric},
		[]metrics.Interface{holdoutLossMetric, holdoutAccMetric, holdoutAUCMetric})
	loop := train.NewLoop(trainer)

	trainDS, err := datasets.InMemoryFromData(c.backend, "train", []any{trainX}, []any{trainY})
	if err != nil {
		return errors.WithMessage(err, "building training dataset")
	}
	trainDS.BatchSize(min(opts.BatchSize, len(trainX)), false).
		Shuffle().WithRand(rand.New(rand.NewSource(opts.Seed)))
	holdoutDS, err := datasets.InMemoryFromData(c.backend, "holdout", []any{holdoutX}, []any{holdoutY})
	if err != nil {
		return errors.WithMessage(err, "building holdout dataset")
	}
	holdoutDS.BatchSize(min(opts.BatchSize, len(holdoutX)), false)

	fmt.Fprintln(opts.Progress, "Epoch \t Seconds \t LR \t \t Train Loss \t Train Acc \t Val AUC \t Val Loss \t Val Acc")
	stopper := newEarlyStopper(opts.Patience)
	learningRate := opts.LearningRate
	for epoch := 0; epoch < opts.MaxEpochs; epoch++ {
		startTime := time.Now()
		trainMetrics, err := loop.RunEpochs(trainDS, 1)
		if err != nil {
			return errors.WithMessagef(err, "training epoch %d", epoch)
		}
		holdoutMetrics, err := trainer.Eval(holdoutDS)
		if err != nil {
			return errors.WithMessagef(err, "evaluating holdout after epoch %d", epoch)
		}

		trainLoss := metricValue(trainer.TrainMetrics(), trainMetrics, trainLossMetric)
		trainAcc := metricValue(trainer.TrainMetrics(), trainMetrics, trainAccMetric)
		holdoutLoss := metricValue(trainer.EvalMetrics(), holdoutMetrics, holdoutLossMetric)
		holdoutAcc := metricValue(trainer.EvalMetrics(), holdoutMetrics, holdoutAccMetric)
		holdoutAUC := metricValue(trainer.EvalMetrics(), holdoutMetrics, holdoutAUCMetric)

		// Exponential learning rate decay, stepped once per epoch. The
		// progress line reports the freshly decayed rate.
		learningRate *= lrDecayGamma
		lrVar := optimizers.LearningRateVar(ctx, dtypes.Float32, learningRate)
		if err := lrVar.SetValue(tensors.FromScalar(float32(learningRate))); err != nil {
			return errors.WithMessagef(err, "updating learning rate after epoch %d", epoch)
		}
		fmt.Fprintf(opts.Progress, "%d \t %.1f \t\t %.2e \t %.4f \t %.4f \t %.4f \t %.4f \t %.4f\n",
			epoch, time.Since(startTime).Seconds(), learningRate,
			trainLoss, trainAcc, holdoutAUC, holdoutLoss, holdoutAcc)

		stop := stopper.observe(epoch, holdoutAUC)
		if stopper.bestEpoch == epoch && checkpoint != nil {
			if err := checkpoint.Save(); err != nil {
				return errors.WithMessagef(err, "saving checkpoint after epoch %d", epoch)
			}
		}
		if stop {
			fmt.Fprintf(opts.Progress, "Early stopping! The best epoch is %d with %.4f auc\n",
				stopper.bestEpoch, stopper.bestMetric)
			break
		}
	}

	c.ctx = ctx
	c.numFeatures = numFeatures
	c.exec = nil
	c.BestEpoch = stopper.bestEpoch
	c.BestAUC = stopper.bestMetric
	return nil
}

// metricValue finds the value of target among the metric values returned by
// the trainer, converted to float64.
func metricValue(registered []metrics.Interface, values []*tensors.Tensor, target metrics.Interface) float64 {
	for ii, metric := range registered {
		if metric == target {
			return tensorToFloat64(values[ii])
		}
	}
	exceptions.Panicf("metric %q not registered in the trainer", target.Name())
	return 0
}

func tensorToFloat64(t *tensors.Tensor) float64 {
	switch v := t.Value().(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	}
	exceptions.Panicf("expected a float scalar metric, got shape %s", t.Shape())
	return 0
}

// inferenceExec lazily builds the inference graph executor: logits,
// probabilities and per-feature contributions, with training mode off so the
// dropouts are no-ops.
func (c *Classifier) inferenceExec() *context.Exec {
	if c.ctx == nil {
		exceptions.Panicf("nam.Classifier: model is not fitted, call Fit first")
	}
	if c.exec == nil {
		c.exec = context.MustNewExec(c.backend, c.ctx.Reuse(), func(ctx *context.Context, x *Node) []*Node {
			ctx.SetTraining(x.Graph(), false)
			logits, contributions := New(ctx.In("model"), x).DoneWithContributions()
			return []*Node{logits, Sigmoid(logits), contributions}
		})
	}
	return c.exec
}

// infer runs the inference graph over x, after transforming it and checking
// its feature count against the fitted model. A mismatching feature count is
// a programming error and panics.
func (c *Classifier) infer(x [][]float32) (logits, probabilities, contributions *tensors.Tensor) {
	exec := c.inferenceExec()
	if c.transformer != nil {
		x = c.transformer.Transform(x)
	}
	if len(x) == 0 {
		exceptions.Panicf("nam.Classifier: empty feature matrix")
	}
	for _, row := range x {
		if len(row) != c.numFeatures {
			exceptions.Panicf("nam.Classifier: model was fitted with %d features, got a row with %d",
				c.numFeatures, len(row))
		}
	}
	outputs := exec.MustExec(tensors.FromValue(x))
	return outputs[0], outputs[1], outputs[2]
}

// Logits returns the raw additive logit of each example.
func (c *Classifier) Logits(x [][]float32) []float32 {
	logits, _, _ := c.infer(x)
	return tensors.MustCopyFlatData[float32](logits)
}

// PredictProbability returns the probability of the positive class,
// sigmoid(logit), for each example.
func (c *Classifier) PredictProbability(x [][]float32) []float32 {
	_, probabilities, _ := c.infer(x)
	return tensors.MustCopyFlatData[float32](probabilities)
}

// Predict returns the hard 0/1 prediction for each example, thresholding the
// probability at 0.5.
func (c *Classifier) Predict(x [][]float32) []float32 {
	predictions := c.Logits(x)
	for ii, logit := range predictions {
		if logit >= 0 {
			predictions[ii] = 1
		} else {
			predictions[ii] = 0
		}
	}
	return predictions
}

// PredictPerFeature returns the contribution of each feature to each
// example's logit: one row per example, one column per feature. The logit of
// an example is the sum of its row plus the model's output bias.
func (c *Classifier) PredictPerFeature(x [][]float32) [][]float32 {
	_, _, contributions := c.infer(x)
	flat := tensors.MustCopyFlatData[float32](contributions)
	numRows := contributions.Shape().Dimensions[0]
	numCols := contributions.Shape().Dimensions[1]
	rows := make([][]float32, numRows)
	for ii := range rows {
		rows[ii] = flat[ii*numCols : (ii+1)*numCols]
	}
	return rows
}

// OutputBias returns the learned scalar bias added to the summed feature
// contributions.
func (c *Classifier) OutputBias() float32 {
	if c.ctx == nil {
		exceptions.Panicf("nam.Classifier: model is not fitted, call Fit first")
	}
	biasVar := c.ctx.GetVariableByScopeAndName("/model/output", "bias")
	if biasVar == nil {
		exceptions.Panicf("nam.Classifier: output bias variable not found")
	}
	return biasVar.MustValue().Value().(float32)
}
