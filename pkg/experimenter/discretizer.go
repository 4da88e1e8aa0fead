package experimenter

import (
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/oss-vizier/core/pkg/model"
)

// Discretizer wraps an inner Experimenter, rewriting the listed
// parameters to CATEGORICAL with a fixed set of feasible values while
// preserving their original scale and external type. Currently only
// flat (non-conditional), DOUBLE-typed target parameters are
// supported.
type Discretizer struct {
	inner            Experimenter
	discretization   map[string][]float64
	checkEvaluation  bool
	problemStatement model.StudySpec
}

// NewDiscretizer validates discretization against inner's problem
// statement and builds the rewritten search space. checkEvaluation, if
// true, additionally verifies every incoming suggestion value is one
// of the declared feasible values.
func NewDiscretizer(
	inner Experimenter, discretization map[string][]float64, checkEvaluation bool,
) (*Discretizer, error) {
	spec := inner.ProblemStatement()
	if spec.SearchSpace.Conditional {
		return nil, model.FailedPreconditionf("discretizer: search space must not be conditional")
	}

	byName := make(map[string]model.ParameterConfig, len(spec.SearchSpace.Parameters))
	for _, p := range spec.SearchSpace.Parameters {
		byName[p.Name] = p
	}

	var errs *multierror.Error
	for name, values := range discretization {
		param, ok := byName[name]
		if !ok {
			errs = multierror.Append(errs, model.FailedPreconditionf(
				"discretizer: parameter %q not in search space", name))
			continue
		}
		if param.Type != model.ParameterTypeDouble {
			errs = multierror.Append(errs, model.FailedPreconditionf(
				"discretizer: parameter %q is not DOUBLE, cannot be discretized", name))
			continue
		}
		if param.Bounds == nil {
			errs = multierror.Append(errs, model.FailedPreconditionf(
				"discretizer: parameter %q has no bounds", name))
			continue
		}
		for _, v := range values {
			if v < param.Bounds.Min || v > param.Bounds.Max {
				errs = multierror.Append(errs, model.FailedPreconditionf(
					"discretizer: value %g for parameter %q is outside bounds [%g, %g]",
					v, name, param.Bounds.Min, param.Bounds.Max))
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	newParams := make([]model.ParameterConfig, 0, len(spec.SearchSpace.Parameters))
	for _, p := range spec.SearchSpace.Parameters {
		values, ok := discretization[p.Name]
		if !ok {
			newParams = append(newParams, p)
			continue
		}
		feasible := make([]string, len(values))
		for i, v := range values {
			feasible[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		newParams = append(newParams, model.ParameterConfig{
			Name:           p.Name,
			Type:           model.ParameterTypeCategorical,
			FeasibleValues: feasible,
			ScaleType:      p.ScaleType,
			ExternalType:   p.ExternalType,
		})
	}

	rewritten := spec
	rewritten.SearchSpace = model.SearchSpace{Parameters: newParams}

	return &Discretizer{
		inner:            inner,
		discretization:   discretization,
		checkEvaluation:  checkEvaluation,
		problemStatement: rewritten,
	}, nil
}

// ProblemStatement implements Experimenter.
func (d *Discretizer) ProblemStatement() model.StudySpec {
	return d.problemStatement
}

// Evaluate rewrites each discretized parameter to its float form,
// delegates to the inner experimenter, then restores the original
// discrete parameter values in place.
func (d *Discretizer) Evaluate(suggestions []*model.Trial) error {
	if d.checkEvaluation {
		for _, s := range suggestions {
			for name, value := range s.Parameters {
				values, ok := d.discretization[name]
				if !ok {
					continue
				}
				f, err := value.AsFloat()
				if err != nil || !containsFloat(values, f) {
					return model.FailedPreconditionf(
						"discretizer: value %v for parameter %q is not in the declared feasible set",
						value.AsString(), name)
				}
			}
		}
	}

	originals := make([]model.ParameterDict, len(suggestions))
	for i, s := range suggestions {
		originals[i] = s.Parameters
		rewritten := make(model.ParameterDict, len(s.Parameters))
		for name, value := range s.Parameters {
			if _, ok := d.discretization[name]; ok {
				f, _ := value.AsFloat()
				rewritten[name] = model.FloatValue(f)
				continue
			}
			rewritten[name] = value
		}
		s.Parameters = rewritten
	}

	err := d.inner.Evaluate(suggestions)

	for i, s := range suggestions {
		s.Parameters = originals[i]
	}
	return err
}

func containsFloat(values []float64, v float64) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
