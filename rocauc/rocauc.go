// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package rocauc computes the area under the ROC curve for binary
// classifiers, and adapts it to the train/metrics interfaces of
// github.com/gomlx/gomlx so it can be evaluated over a dataset.
//
// AUC is a ranking metric: it cannot be computed batch by batch and averaged.
// The Metric type therefore implements metrics.UpdateGo: the graph side only
// packs (label, logit) pairs, the accumulation and the final computation
// happen on the host.
package rocauc

import (
	"fmt"
	"math"
	"sort"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
)

// FromScores returns the area under the ROC curve for the given binary
// labels (positive if > 0.5) and scores (logits or probabilities, only their
// ordering matters). Tied scores receive their average rank, matching the
// usual Mann-Whitney U formulation.
//
// It returns NaN if there are no positive or no negative examples.
func FromScores(labels, scores []float64) float64 {
	if len(labels) != len(scores) {
		exceptions.Panicf("rocauc.FromScores: got %d labels and %d scores", len(labels), len(scores))
	}
	n := len(scores)
	order := make([]int, n)
	for ii := range order {
		order[ii] = ii
	}
	sort.Slice(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	// Ranks are 1-based; tied scores share the average of their ranks.
	ranks := make([]float64, n)
	for ii := 0; ii < n; {
		jj := ii
		for jj+1 < n && scores[order[jj+1]] == scores[order[ii]] {
			jj++
		}
		avgRank := float64(ii+jj)/2.0 + 1.0
		for kk := ii; kk <= jj; kk++ {
			ranks[order[kk]] = avgRank
		}
		ii = jj + 1
	}

	var numPositives, numNegatives int
	var sumPositiveRanks float64
	for ii, label := range labels {
		if label > 0.5 {
			numPositives++
			sumPositiveRanks += ranks[ii]
		} else {
			numNegatives++
		}
	}
	if numPositives == 0 || numNegatives == 0 {
		return math.NaN()
	}
	nPos := float64(numPositives)
	return (sumPositiveRanks - nPos*(nPos+1)/2.0) / (nPos * float64(numNegatives))
}

// Metric is a metrics.UpdateGo implementation of the ROC AUC over a full
// evaluation pass: UpdateGraph emits the (label, logit) pairs of each batch,
// UpdateGo accumulates them, and ReadGo returns the AUC over everything seen
// since the last Reset.
type Metric struct {
	name, shortName string
	labels, scores  []float64
}

// Compile-time check that Metric fulfills the host-side metric interface.
var _ metrics.UpdateGo = (*Metric)(nil)

// New creates an AUC metric with the given name and short name, for use as an
// evaluation metric of a train.Trainer.
func New(name, shortName string) *Metric {
	return &Metric{name: name, shortName: shortName}
}

func (m *Metric) Name() string { return m.name }

func (m *Metric) ShortName() string { return m.shortName }

func (m *Metric) MetricType() string { return "auc" }

func (m *Metric) ScopeName() string {
	return context.EscapeScopeName(m.name)
}

// UpdateGraph packs labels[0] and predictions[0] (the logits) into a
// [batch_size, 2] Float64 tensor, consumed host-side by UpdateGo.
func (m *Metric) UpdateGraph(ctx *context.Context, labels, predictions []*Node) *Node {
	_ = ctx
	logits := predictions[0]
	batchSize := logits.Shape().Size()
	labelsCol := Reshape(ConvertDType(labels[0], dtypes.Float64), batchSize, 1)
	logitsCol := Reshape(ConvertDType(logits, dtypes.Float64), batchSize, 1)
	return Concatenate([]*Node{labelsCol, logitsCol}, -1)
}

func (m *Metric) UpdateGo(pairs *tensors.Tensor) {
	tensors.MustConstFlatData(pairs, func(flat []float64) {
		for ii := 0; ii+1 < len(flat); ii += 2 {
			m.labels = append(m.labels, flat[ii])
			m.scores = append(m.scores, flat[ii+1])
		}
	})
}

func (m *Metric) ReadGo() *tensors.Tensor {
	if len(m.labels) == 0 {
		exceptions.Panicf("rocauc metric %q has seen no examples to read", m.Name())
	}
	return tensors.FromScalar(FromScores(m.labels, m.scores))
}

func (m *Metric) Reset(_ *context.Context) {
	m.labels = nil
	m.scores = nil
}

func (m *Metric) PrettyPrint(value *tensors.Tensor) string {
	return fmt.Sprintf("%.4f", value.Value())
}
