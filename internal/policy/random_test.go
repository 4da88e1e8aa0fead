package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-vizier/core/pkg/model"
)

func testDescriptor() StudyDescriptor {
	return StudyDescriptor{
		StudyName: "owners/o1/studies/s1",
		Spec: model.StudySpec{
			SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
				{Name: "x", Type: model.ParameterTypeDouble, Bounds: &model.Bounds{Min: 0, Max: 1}},
				{Name: "n", Type: model.ParameterTypeInteger, Bounds: &model.Bounds{Min: 1, Max: 10}},
				{Name: "color", Type: model.ParameterTypeCategorical, FeasibleValues: []string{"red", "green", "blue"}},
			}},
			Metrics: []model.MetricSpec{{MetricID: "m", Goal: model.GoalMaximize}},
		},
	}
}

func TestRandomPolicySuggestStaysInBounds(t *testing.T) {
	pol := NewRandomPolicy()
	decision, err := pol.Suggest(context.Background(), SuggestRequest{Study: testDescriptor(), Count: 50})
	require.NoError(t, err)
	require.Len(t, decision.Suggestions, 50)

	for _, s := range decision.Suggestions {
		x, err := s.Parameters["x"].AsFloat()
		require.NoError(t, err)
		require.GreaterOrEqual(t, x, 0.0)
		require.LessOrEqual(t, x, 1.0)

		n, err := s.Parameters["n"].AsFloat()
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1.0)
		require.LessOrEqual(t, n, 10.0)

		require.Contains(t, []string{"red", "green", "blue"}, s.Parameters["color"].AsString())
	}
}

func TestRandomPolicyEarlyStopNeverStops(t *testing.T) {
	pol := NewRandomPolicy()
	result, err := pol.EarlyStop(context.Background(), EarlyStopRequest{Study: testDescriptor(), TrialID: 3})
	require.NoError(t, err)
	require.Len(t, result.Decisions, 1)
	require.Equal(t, int64(3), result.Decisions[0].TrialID)
	require.False(t, result.Decisions[0].ShouldStop)
}

func TestDialEmptyEndpointReturnsRandomPolicy(t *testing.T) {
	pol, err := Dial("")
	require.NoError(t, err)
	require.IsType(t, RandomPolicy{}, pol)
}

func TestDialRemoteEndpointIsUnimplemented(t *testing.T) {
	_, err := Dial("pythia.internal:9090")
	require.Error(t, err)
}
