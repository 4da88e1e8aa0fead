package experimenter_test

import "github.com/oss-vizier/core/pkg/model"

// fakeExperimenter is a minimal Experimenter whose Evaluate writes a
// deterministic function of the "x" parameter as the final
// measurement, so wrapper round-trip laws can be checked by
// comparing objective values directly.
type fakeExperimenter struct {
	spec model.StudySpec
	fn   func(x float64) float64
}

func (f *fakeExperimenter) ProblemStatement() model.StudySpec { return f.spec }

func (f *fakeExperimenter) Evaluate(suggestions []*model.Trial) error {
	for _, s := range suggestions {
		x, _ := s.Parameters["x"].AsFloat()
		s.FinalMeasurement = &model.Measurement{Metrics: map[string]float64{"m": f.fn(x)}}
	}
	return nil
}

func doubleSpec(min, max float64) model.StudySpec {
	return model.StudySpec{
		SearchSpace: model.SearchSpace{Parameters: []model.ParameterConfig{
			{Name: "x", Type: model.ParameterTypeDouble, Bounds: &model.Bounds{Min: min, Max: max}},
		}},
		Metrics: []model.MetricSpec{{MetricID: "m", Goal: model.GoalMaximize}},
	}
}
