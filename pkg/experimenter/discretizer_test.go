package experimenter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-vizier/core/pkg/experimenter"
	"github.com/oss-vizier/core/pkg/model"
)

func TestDiscretizerRejectsUnknownParameter(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x }}
	_, err := experimenter.NewDiscretizer(inner, map[string][]float64{"y": {0.5}}, false)
	require.Error(t, err)
}

func TestDiscretizerRejectsOutOfBoundsValue(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x }}
	_, err := experimenter.NewDiscretizer(inner, map[string][]float64{"x": {1.5}}, false)
	require.Error(t, err)
}

func TestDiscretizerRewritesSearchSpaceToCategorical(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x }}
	d, err := experimenter.NewDiscretizer(inner, map[string][]float64{"x": {0, 0.5, 1}}, false)
	require.NoError(t, err)

	rewritten := d.ProblemStatement()
	require.Len(t, rewritten.SearchSpace.Parameters, 1)
	param := rewritten.SearchSpace.Parameters[0]
	require.Equal(t, model.ParameterTypeCategorical, param.Type)
	require.ElementsMatch(t, []string{"0", "0.5", "1"}, param.FeasibleValues)
}

// Evaluating through the wrapper yields the same objective as directly
// evaluating the inner experimenter with the float image of the
// discrete value, and parameters are restored.
func TestDiscretizerEvaluateRoundTrip(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x * 2 }}
	d, err := experimenter.NewDiscretizer(inner, map[string][]float64{"x": {0, 0.5, 1}}, true)
	require.NoError(t, err)

	discretized := &model.Trial{Parameters: model.ParameterDict{"x": model.StringValue("0.5")}}
	require.NoError(t, d.Evaluate([]*model.Trial{discretized}))

	direct := &model.Trial{Parameters: model.ParameterDict{"x": model.FloatValue(0.5)}}
	require.NoError(t, inner.Evaluate([]*model.Trial{direct}))

	require.Equal(t, direct.FinalMeasurement.Metrics["m"], discretized.FinalMeasurement.Metrics["m"])
	require.Equal(t, model.StringValue("0.5"), discretized.Parameters["x"])
}

func TestDiscretizerCheckEvaluationRejectsInfeasibleValue(t *testing.T) {
	inner := &fakeExperimenter{spec: doubleSpec(0, 1), fn: func(x float64) float64 { return x }}
	d, err := experimenter.NewDiscretizer(inner, map[string][]float64{"x": {0, 0.5, 1}}, true)
	require.NoError(t, err)

	trial := &model.Trial{Parameters: model.ParameterDict{"x": model.FloatValue(0.3)}}
	err = d.Evaluate([]*model.Trial{trial})
	require.Error(t, err)
}
