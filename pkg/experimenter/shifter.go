package experimenter

import (
	"math"

	"github.com/oss-vizier/core/pkg/model"
)

// Shifter wraps an inner Experimenter over a flat DOUBLE search
// space, shrinking each axis's bounds so that adding the shift always
// keeps a value within the original bounds. Only flat, non-conditional
// DOUBLE search spaces are supported.
type Shifter struct {
	inner            Experimenter
	paramNames       []string
	shift            []float64
	problemStatement model.StudySpec
}

// NewShifter validates shift against inner's problem statement and
// builds the shrunken search space. shift must have length 1
// (broadcast to every dimension) or length equal to the number of
// search-space parameters.
func NewShifter(inner Experimenter, shift []float64) (*Shifter, error) {
	spec := inner.ProblemStatement()
	if spec.SearchSpace.Conditional {
		return nil, model.FailedPreconditionf("shifter: search space must not be conditional")
	}
	params := spec.SearchSpace.Parameters
	dimension := len(params)
	if dimension <= 0 {
		return nil, model.FailedPreconditionf("shifter: search space has no parameters")
	}

	broadcast, err := broadcastShift(shift, dimension)
	if err != nil {
		return nil, err
	}

	newParams := make([]model.ParameterConfig, dimension)
	names := make([]string, dimension)
	for i, p := range params {
		if p.Type != model.ParameterTypeDouble {
			return nil, model.FailedPreconditionf("shifter: parameter %q is not DOUBLE", p.Name)
		}
		if p.Bounds == nil {
			return nil, model.FailedPreconditionf("shifter: parameter %q has no bounds", p.Name)
		}
		s := broadcast[i]
		if math.Abs(s) >= p.Bounds.Max-p.Bounds.Min {
			return nil, model.FailedPreconditionf(
				"shifter: shift %g too large for parameter %q bounds [%g, %g]", s, p.Name, p.Bounds.Min, p.Bounds.Max)
		}
		bounds := *p.Bounds
		if s >= 0 {
			bounds.Max -= s
		} else {
			bounds.Min -= s
		}
		newParam := p
		newParam.Bounds = &bounds
		newParams[i] = newParam
		names[i] = p.Name
	}

	rewritten := spec
	rewritten.SearchSpace = model.SearchSpace{Parameters: newParams}

	return &Shifter{inner: inner, paramNames: names, shift: broadcast, problemStatement: rewritten}, nil
}

func broadcastShift(shift []float64, dimension int) ([]float64, error) {
	switch len(shift) {
	case dimension:
		out := make([]float64, dimension)
		copy(out, shift)
		return out, nil
	case 1:
		out := make([]float64, dimension)
		for i := range out {
			out[i] = shift[0]
		}
		return out, nil
	default:
		return nil, model.FailedPreconditionf(
			"shifter: shift of length %d is not broadcastable to dimension %d", len(shift), dimension)
	}
}

// ProblemStatement implements Experimenter.
func (s *Shifter) ProblemStatement() model.StudySpec {
	return s.problemStatement
}

// Evaluate adds the shift to each suggestion's parameters, delegates
// to the inner experimenter, then subtracts it again in place.
func (s *Shifter) Evaluate(suggestions []*model.Trial) error {
	s.offset(suggestions, 1)
	err := s.inner.Evaluate(suggestions)
	s.offset(suggestions, -1)
	return err
}

func (s *Shifter) offset(suggestions []*model.Trial, sign float64) {
	for _, suggestion := range suggestions {
		for i, name := range s.paramNames {
			value, ok := suggestion.Parameters[name]
			if !ok {
				continue
			}
			f, _ := value.AsFloat()
			suggestion.Parameters[name] = model.FloatValue(f + sign*s.shift[i])
		}
	}
}
