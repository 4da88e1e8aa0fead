package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oss-vizier/core/pkg/model"
)

func TestValidateStudySpecAcceptsWellFormedParameters(t *testing.T) {
	err := validateStudySpec(model.StudySpec{SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
		{Name: "x", Type: model.ParameterTypeDouble, Bounds: &model.Bounds{Min: 0, Max: 1}},
		{Name: "color", Type: model.ParameterTypeCategorical, FeasibleValues: []string{"red", "blue"}},
	}}})
	require.NoError(t, err)
}

func TestValidateStudySpecAggregatesMultipleFailures(t *testing.T) {
	err := validateStudySpec(model.StudySpec{SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
		{Name: "x", Type: model.ParameterTypeDouble},
		{Name: "color", Type: model.ParameterTypeCategorical},
	}}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "x")
	require.Contains(t, err.Error(), "color")
}

func TestValidateStudySpecRejectsMissingName(t *testing.T) {
	err := validateStudySpec(model.StudySpec{SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
		{Type: model.ParameterTypeDouble, Bounds: &model.Bounds{Min: 0, Max: 1}},
	}}})
	require.Error(t, err)
}
