package orchestrator

import (
	"context"
	"sort"

	"github.com/oss-vizier/core/pkg/model"
)

// ListOptimalTrials returns the Pareto frontier of the study's
// SUCCEEDED trials: MINIMIZE metrics are negated so every objective
// axis becomes "larger is better", then a trial survives iff no other
// considered trial dominates it on every axis.
func (o *Orchestrator) ListOptimalTrials(ctx context.Context, studyName string) ([]*model.Trial, error) {
	trials, err := o.store.ListTrials(ctx, studyName)
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, nil
	}

	study, err := o.store.LoadStudy(ctx, studyName)
	if err != nil {
		return nil, err
	}
	goalByMetric := make(map[string]model.Goal, len(study.Spec.Metrics))
	for _, m := range study.Spec.Metrics {
		goalByMetric[m.MetricID] = m.Goal
	}

	var considered []*model.Trial
	var vectors [][]float64
	for _, t := range trials {
		if t.State != model.TrialSucceeded || t.FinalMeasurement == nil {
			continue
		}
		if !hasAllMetrics(t.FinalMeasurement.Metrics, goalByMetric) {
			continue
		}
		vector := make([]float64, 0, len(study.Spec.Metrics))
		for _, m := range study.Spec.Metrics {
			v := t.FinalMeasurement.Metrics[m.MetricID]
			if m.Goal == model.GoalMinimize {
				v = -v
			}
			vector = append(vector, v)
		}
		considered = append(considered, t)
		vectors = append(vectors, vector)
	}
	if len(considered) == 0 {
		return nil, nil
	}

	n := len(considered)
	optimal := make([]*model.Trial, 0, n)
	for i := 0; i < n; i++ {
		dominated := false
		for j := 0; j < n && !dominated; j++ {
			if i == j {
				continue
			}
			dominated = dominates(vectors[j], vectors[i])
		}
		if !dominated {
			optimal = append(optimal, considered[i])
		}
	}

	// Deterministic output order so the result is invariant under
	// re-insertion order, independent of datastore iteration order.
	sort.Slice(optimal, func(i, j int) bool { return optimal[i].TrialID < optimal[j].TrialID })
	return optimal, nil
}

func hasAllMetrics(metrics map[string]float64, required map[string]model.Goal) bool {
	for id := range required {
		if _, ok := metrics[id]; !ok {
			return false
		}
	}
	return true
}

// dominates reports whether a dominates b: a is at least as good on
// every axis and strictly better on at least one.
func dominates(a, b []float64) bool {
	strictlyBetter := false
	for k := range a {
		if a[k] < b[k] {
			return false
		}
		if a[k] > b[k] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}
