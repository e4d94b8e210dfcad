// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package tabular holds host-side helpers for dense tabular data: the
// stratified train/holdout split and the preprocessing transformers (min-max
// scaling and one-hot encoding) used around the nam classifier.
package tabular

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/gomlx/exceptions"
)

// StratifiedSplit splits the examples (x, y) into a training and a holdout
// set, drawing holdoutFraction of each label class into the holdout, so that
// both sides keep (approximately) the class proportions of the input. The
// shuffling is driven by seed; a fixed seed gives a fixed split.
//
// Each class keeps at least one training example; classes with a single
// example go entirely to the training set.
func StratifiedSplit(seed int64, x [][]float32, y []float32, holdoutFraction float64) (
	trainX [][]float32, trainY []float32, holdoutX [][]float32, holdoutY []float32) {
	if len(x) != len(y) {
		exceptions.Panicf("tabular.StratifiedSplit: got %d examples but %d labels", len(x), len(y))
	}
	if holdoutFraction <= 0 || holdoutFraction >= 1 {
		exceptions.Panicf("tabular.StratifiedSplit: holdoutFraction must be in (0, 1), got %g", holdoutFraction)
	}

	byClass := make(map[float32][]int)
	for ii, label := range y {
		byClass[label] = append(byClass[label], ii)
	}
	classes := make([]float32, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Slice(classes, func(a, b int) bool { return classes[a] < classes[b] })

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0xA5A5A5A5A5A5A5A5))
	var trainIdx, holdoutIdx []int
	for _, label := range classes {
		indices := byClass[label]
		rng.Shuffle(len(indices), func(a, b int) {
			indices[a], indices[b] = indices[b], indices[a]
		})
		numHoldout := int(math.Round(holdoutFraction * float64(len(indices))))
		if numHoldout >= len(indices) {
			numHoldout = len(indices) - 1
		}
		holdoutIdx = append(holdoutIdx, indices[:numHoldout]...)
		trainIdx = append(trainIdx, indices[numHoldout:]...)
	}

	// The per-class grouping above leaves both sides ordered by label.
	rng.Shuffle(len(trainIdx), func(a, b int) { trainIdx[a], trainIdx[b] = trainIdx[b], trainIdx[a] })
	rng.Shuffle(len(holdoutIdx), func(a, b int) { holdoutIdx[a], holdoutIdx[b] = holdoutIdx[b], holdoutIdx[a] })

	gather := func(indices []int) ([][]float32, []float32) {
		gx := make([][]float32, len(indices))
		gy := make([]float32, len(indices))
		for ii, idx := range indices {
			gx[ii] = x[idx]
			gy[ii] = y[idx]
		}
		return gx, gy
	}
	trainX, trainY = gather(trainIdx)
	holdoutX, holdoutY = gather(holdoutIdx)
	return
}
