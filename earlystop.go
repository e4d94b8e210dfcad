// Copyright 2026 The GoMLX Authors.
// SPDX-License-Identifier: Apache-2.0

package nam

import "math"

// earlyStopper tracks the best holdout metric seen so far and a patience
// counter. A metric that matches or beats the best refills the patience (ties
// favor the later epoch); every other epoch burns one unit of patience, and
// training stops when it runs out.
type earlyStopper struct {
	budget     int
	patience   int
	bestEpoch  int
	bestMetric float64
}

func newEarlyStopper(budget int) *earlyStopper {
	return &earlyStopper{
		budget:     budget,
		patience:   budget,
		bestEpoch:  -1,
		bestMetric: math.Inf(-1),
	}
}

// observe registers the metric of the given epoch and reports whether
// training should stop.
func (es *earlyStopper) observe(epoch int, metric float64) (stop bool) {
	if metric >= es.bestMetric {
		es.bestMetric = metric
		es.bestEpoch = epoch
		es.patience = es.budget
		return false
	}
	es.patience--
	return es.patience <= 0
}
