// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

// namdemo trains a Neural Additive Model on a CSV dataset (or on a built-in
// synthetic one) and prints the mean absolute contribution of each feature,
// the quantity that makes NAMs interpretable.
//
// Example:
//
//	namdemo -data heart.csv -label target -model nam-d1-lr0.02-r1377
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/janpfeifer/must"

	"github.com/gomlx/nam"
	"github.com/gomlx/nam/tabular"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagData  = flag.String("data", "", "CSV file with the dataset. If empty, a synthetic dataset is generated.")
	flagLabel = flag.String("label", "label", "Name of the label column: it must hold 0/1 values.")
	flagModel = flag.String("model", "nam", "Model name with hyperparameters, e.g. \"nam-d1-lr0.02-l20.001-r1377\".")

	flagMaxEpochs  = flag.Int("max_epochs", 100, "Maximum number of training epochs.")
	flagCheckpoint = flag.String("checkpoint", "", "Directory to save the model to. Empty means no checkpointing.")
	flagScale      = flag.Bool("scale", true, "Min-max scale the features to [0, 1] before training.")
)

func main() {
	flag.Parse()
	opts := must.M1(nam.FromName(*flagModel))
	opts.MaxEpochs = *flagMaxEpochs
	opts.CheckpointDir = *flagCheckpoint

	var (
		x            [][]float32
		y            []float32
		featureNames []string
	)
	if *flagData == "" {
		fmt.Println("No -data given, using a synthetic dataset.")
		x, y, featureNames = syntheticDataset(2000, opts.Seed)
	} else {
		x, y, featureNames = loadCSV(*flagData, *flagLabel)
	}
	fmt.Printf("Dataset: %d examples, %d features, model %q\n", len(x), len(featureNames), opts.Name())

	classifier := nam.NewClassifier(opts)
	if *flagScale {
		classifier.WithTransformer(tabular.NewMinMaxScaler())
	}
	must.M(classifier.Fit(x, y))
	fmt.Printf("\nBest epoch: %d (holdout AUC %.4f)\n\n", classifier.BestEpoch, classifier.BestAUC)

	// Mean absolute contribution of each feature over the dataset: a global
	// measure of how much each feature moves the predictions.
	contributions := classifier.PredictPerFeature(x)
	importance := make([]float64, len(featureNames))
	for _, row := range contributions {
		for feature, contribution := range row {
			importance[feature] += math.Abs(float64(contribution))
		}
	}
	fmt.Println("Feature importance (mean |contribution| to the logit):")
	for feature, name := range featureNames {
		fmt.Printf("\t%-24s %.4f\n", name, importance[feature]/float64(len(contributions)))
	}
}

// loadCSV reads the dataset with gota: every column except the label becomes
// a float feature.
func loadCSV(path, label string) (x [][]float32, y []float32, featureNames []string) {
	file := must.M1(os.Open(path))
	defer func() { _ = file.Close() }()
	df := dataframe.ReadCSV(file)
	must.M(df.Error())

	var columns [][]float64
	for _, name := range df.Names() {
		if name == label {
			continue
		}
		featureNames = append(featureNames, name)
		columns = append(columns, df.Col(name).Float())
	}
	if len(columns) == 0 {
		must.M(fmt.Errorf("no feature columns found in %q (label column %q)", path, label))
	}
	labels := df.Col(label).Float()

	x = make([][]float32, df.Nrow())
	y = make([]float32, df.Nrow())
	for row := range x {
		features := make([]float32, len(columns))
		for col, column := range columns {
			features[col] = float32(column[row])
		}
		x[row] = features
		y[row] = float32(labels[row])
	}
	return
}

// syntheticDataset generates a nonlinear binary problem where each feature
// contributes additively, the regime NAMs are made for.
func syntheticDataset(numExamples int, seed int64) (x [][]float32, y []float32, featureNames []string) {
	featureNames = []string{"x0_sine", "x1_square", "x2_linear", "x3_noise"}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)+1))
	for ii := 0; ii < numExamples; ii++ {
		features := make([]float32, 4)
		for jj := range features {
			features[jj] = rng.Float32()
		}
		score := math.Sin(3*float64(features[0])) +
			float64(features[1])*float64(features[1]) -
			0.5*float64(features[2])
		x = append(x, features)
		if score > 0.5 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return
}
