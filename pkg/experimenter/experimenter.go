// Package experimenter implements benchmarking parameter-space
// transforms: composable wrappers over an inner Experimenter that
// rewrite a problem statement's search space and transparently re-map
// suggestion parameters around a call to Evaluate.
package experimenter

import "github.com/oss-vizier/core/pkg/model"

// Experimenter is the contract every transform wraps and implements:
// it exposes the optimization problem it poses and can evaluate a
// batch of suggested trials in place (writing each trial's
// FinalMeasurement).
type Experimenter interface {
	ProblemStatement() model.StudySpec
	Evaluate(suggestions []*model.Trial) error
}
