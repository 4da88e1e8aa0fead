package experimenter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-vizier/core/pkg/experimenter"
	"github.com/oss-vizier/core/pkg/model"
)

func TestShifterRejectsTooLargeShift(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x }}
	_, err := experimenter.NewShifter(inner, []float64{1.0})
	require.Error(t, err)
}

func TestShifterShrinksBounds(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x }}
	s, err := experimenter.NewShifter(inner, []float64{0.2})
	require.NoError(t, err)

	param := s.ProblemStatement().SearchSpace.Parameters[0]
	require.Equal(t, 0.0, param.Bounds.Min)
	require.InDelta(t, 0.8, param.Bounds.Max, 1e-9)
}

func TestShifterNegativeShiftShrinksLowerBound(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x }}
	s, err := experimenter.NewShifter(inner, []float64{-0.2})
	require.NoError(t, err)

	param := s.ProblemStatement().SearchSpace.Parameters[0]
	require.InDelta(t, 0.2, param.Bounds.Min, 1e-9)
	require.Equal(t, 1.0, param.Bounds.Max)
}

// Evaluating a shifted suggestion at x through the wrapper equals
// evaluating the inner experimenter at x+s; parameters are restored to
// x afterward.
func TestShifterEvaluateRoundTrip(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x * 3 }}
	s, err := experimenter.NewShifter(inner, []float64{0.2})
	require.NoError(t, err)

	shifted := &model.Trial{Parameters: model.ParameterDict{"x": model.FloatValue(0.3)}}
	require.NoError(t, s.Evaluate([]*model.Trial{shifted}))

	direct := &model.Trial{Parameters: model.ParameterDict{"x": model.FloatValue(0.5)}}
	require.NoError(t, inner.Evaluate([]*model.Trial{direct}))

	require.InDelta(t, direct.FinalMeasurement.Metrics["m"], shifted.FinalMeasurement.Metrics["m"], 1e-9)
	restored, _ := shifted.Parameters["x"].AsFloat()
	require.InDelta(t, 0.3, restored, 1e-9)
}
