package model

import "time"

// MaxStudiesPerOwner is the per-owner study cap (2^31 - 1).
const MaxStudiesPerOwner = 2147483647

// Goal is the optimization direction of a metric.
type Goal int

const (
	// GoalUnspecified is the zero value; never valid on a stored MetricSpec.
	GoalUnspecified Goal = iota
	GoalMaximize
	GoalMinimize
)

func (g Goal) String() string {
	switch g {
	case GoalMaximize:
		return "MAXIMIZE"
	case GoalMinimize:
		return "MINIMIZE"
	default:
		return "UNSPECIFIED"
	}
}

// MetricSpec names one objective of a Study and the direction in which
// it is optimized.
type MetricSpec struct {
	MetricID string
	Goal     Goal
}

// ParameterType is the declared type of a search-space parameter.
type ParameterType int

const (
	ParameterTypeUnspecified ParameterType = iota
	ParameterTypeDouble
	ParameterTypeInteger
	ParameterTypeCategorical
	ParameterTypeDiscrete
)

func (t ParameterType) String() string {
	switch t {
	case ParameterTypeDouble:
		return "DOUBLE"
	case ParameterTypeInteger:
		return "INTEGER"
	case ParameterTypeCategorical:
		return "CATEGORICAL"
	case ParameterTypeDiscrete:
		return "DISCRETE"
	default:
		return "UNSPECIFIED"
	}
}

// Bounds is an inclusive [Min, Max] range for DOUBLE/INTEGER parameters.
type Bounds struct {
	Min, Max float64
}

// ParameterConfig describes one dimension of a Study's search space.
type ParameterConfig struct {
	Name string
	Type ParameterType

	// Bounds is set for DOUBLE/INTEGER parameters.
	Bounds *Bounds

	// FeasibleValues is set for CATEGORICAL/DISCRETE parameters. Values
	// are stored as strings; for CATEGORICAL values that must be
	// float-convertible (e.g. after discretization) the string is the
	// decimal rendering of the float.
	FeasibleValues []string

	// ScaleType records the original parameter's scaling (e.g. "LINEAR",
	// "LOG") so transforms that rewrite Bounds/FeasibleValues can
	// preserve it.
	ScaleType string

	// ExternalType is the type client code should present the value as,
	// which may differ from Type once a parameter has been discretized
	// (e.g. a DOUBLE rewritten to CATEGORICAL keeps ExternalType DOUBLE).
	ExternalType ParameterType

	DefaultValue *float64
}

// SearchSpace is the ordered set of a Study's parameters.
type SearchSpace struct {
	Parameters  []ParameterConfig
	Conditional bool
}

// StudySpec is the problem specification of a Study: its search space,
// metrics, and algorithm tag.
type StudySpec struct {
	SearchSpace SearchSpace
	Metrics     []MetricSpec
	Algorithm   string
}

// Study is an optimization problem, identified by (OwnerID, StudyID)
// where StudyID equals the client-provided DisplayName.
type Study struct {
	Name        string
	OwnerID     string
	StudyID     string
	DisplayName string
	Spec        StudySpec
	CreateTime  time.Time
	Metadata    []MetadataItem
}
