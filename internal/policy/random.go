package policy

import (
	"context"
	"math/rand"

	"github.com/oss-vizier/core/pkg/model"
)

// RandomPolicy is the in-process default Policy: uniform random
// sampling over the declared search space, and a Policy that never
// recommends stopping. It gives cmd/vizier-master a real Policy to
// boot against without any external dependency; Dial swaps it out
// only when an operator supplies a remote endpoint.
type RandomPolicy struct{}

var _ Policy = RandomPolicy{}

// NewRandomPolicy returns the default in-process Policy.
func NewRandomPolicy() RandomPolicy {
	return RandomPolicy{}
}

// Suggest implements Policy by sampling req.Count independent points
// uniformly from the study's search space.
func (RandomPolicy) Suggest(_ context.Context, req SuggestRequest) (SuggestDecision, error) {
	params := req.Study.Spec.SearchSpace.Parameters
	suggestions := make([]Suggestion, req.Count)
	for i := range suggestions {
		suggestions[i] = Suggestion{Parameters: sampleParameters(params)}
	}
	return SuggestDecision{Suggestions: suggestions}, nil
}

// EarlyStop implements Policy. A uniform-random policy has no signal
// to justify stopping a trial early, so it always declines.
func (RandomPolicy) EarlyStop(_ context.Context, req EarlyStopRequest) (EarlyStopResult, error) {
	return EarlyStopResult{
		Decisions: []EarlyStopDecision{{TrialID: req.TrialID, ShouldStop: false}},
	}, nil
}

func sampleParameters(params []model.ParameterConfig) model.ParameterDict {
	dict := make(model.ParameterDict, len(params))
	for _, p := range params {
		switch p.Type {
		case model.ParameterTypeDouble:
			dict[p.Name] = model.FloatValue(sampleUniform(p.Bounds))
		case model.ParameterTypeInteger:
			dict[p.Name] = model.FloatValue(float64(int64(sampleUniform(p.Bounds))))
		case model.ParameterTypeCategorical, model.ParameterTypeDiscrete:
			if len(p.FeasibleValues) > 0 {
				dict[p.Name] = model.StringValue(p.FeasibleValues[rand.Intn(len(p.FeasibleValues))])
			}
		}
	}
	return dict
}

// sampleUniform draws from [bounds.Min, bounds.Max], defaulting to 0
// when bounds are absent (an unbounded parameter has no admissible
// range to sample from).
func sampleUniform(bounds *model.Bounds) float64 {
	if bounds == nil {
		return 0
	}
	return bounds.Min + rand.Float64()*(bounds.Max-bounds.Min)
}
