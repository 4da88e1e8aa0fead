package orchestrator

import (
	"context"

	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/model"
)

// CreateTrial allocates the next trial id, forces REQUESTED unless the
// caller supplied SUCCEEDED (to allow back-filling completed trials),
// clears client_id, and persists.
func (o *Orchestrator) CreateTrial(ctx context.Context, studyName string, trial *model.Trial) (*model.Trial, error) {
	study, err := resources.ParseStudy(studyName)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}

	var result *model.Trial
	err = o.locks.WithStudyLock(studyName, func() error {
		trialID, err := o.store.ReserveNextTrialID(ctx, studyName)
		if err != nil {
			return err
		}
		trial.OwnerID = study.OwnerID
		trial.StudyID = study.StudyID
		trial.TrialID = trialID
		trial.Name = resources.TrialName(study.OwnerID, study.StudyID, trialID)
		if trial.State != model.TrialSucceeded {
			trial.State = model.TrialRequested
		}
		trial.ClientID = ""
		trial.StartTime = o.now()
		if err := o.store.CreateTrial(ctx, trial); err != nil {
			return err
		}
		result = trial
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTrial is a direct datastore passthrough.
func (o *Orchestrator) GetTrial(ctx context.Context, name string) (*model.Trial, error) {
	return o.store.GetTrial(ctx, name)
}

// ListTrials is a direct datastore passthrough.
func (o *Orchestrator) ListTrials(ctx context.Context, studyName string) ([]*model.Trial, error) {
	return o.store.ListTrials(ctx, studyName)
}

// DeleteTrial is a direct datastore passthrough.
func (o *Orchestrator) DeleteTrial(ctx context.Context, name string) error {
	return o.store.DeleteTrial(ctx, name)
}

// AddTrialMeasurement appends a measurement to a trial's history. It
// is allowed on a terminal trial but has no lifecycle effect: the
// measurement is still recorded, the state untouched.
func (o *Orchestrator) AddTrialMeasurement(
	ctx context.Context, trialName string, measurement model.Measurement,
) (*model.Trial, error) {
	parsed, err := resources.ParseTrial(trialName)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	studyName := parsed.Study().Name()

	var result *model.Trial
	err = o.locks.WithStudyLock(studyName, func() error {
		trial, err := o.store.GetTrial(ctx, trialName)
		if err != nil {
			return err
		}
		trial.Measurements = append(trial.Measurements, measurement)
		if err := o.store.UpdateTrial(ctx, trial); err != nil {
			return err
		}
		result = trial
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteTrialRequest is the input to CompleteTrial.
type CompleteTrialRequest struct {
	FinalMeasurement *model.Measurement
	TrialInfeasible  bool
	InfeasibleReason string
}

// CompleteTrial moves a trial to SUCCEEDED, adopting either the
// supplied final measurement or the last intermediate measurement.
// trial_infeasible overrides a successful completion.
func (o *Orchestrator) CompleteTrial(
	ctx context.Context, trialName string, req CompleteTrialRequest,
) (*model.Trial, error) {
	parsed, err := resources.ParseTrial(trialName)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	studyName := parsed.Study().Name()

	var result *model.Trial
	err = o.locks.WithStudyLock(studyName, func() error {
		trial, err := o.store.GetTrial(ctx, trialName)
		if err != nil {
			return err
		}

		switch {
		case req.FinalMeasurement != nil && len(req.FinalMeasurement.Metrics) > 0:
			trial.FinalMeasurement = req.FinalMeasurement
			trial.State = model.TrialSucceeded
		case !req.TrialInfeasible:
			if len(trial.Measurements) == 0 {
				return model.InvalidArgumentf(
					"trial %q has no final_measurement and no intermediate measurements to adopt", trialName)
			}
			last := trial.Measurements[len(trial.Measurements)-1]
			trial.FinalMeasurement = &last
			trial.State = model.TrialSucceeded
		}

		if req.TrialInfeasible {
			trial.State = model.TrialInfeasible
			trial.InfeasibleReason = req.InfeasibleReason
		}

		if err := o.store.UpdateTrial(ctx, trial); err != nil {
			return err
		}
		result = trial
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StopTrial sets a trial's state to STOPPING. Terminal trials
// (SUCCEEDED, INFEASIBLE) are left unmodified.
func (o *Orchestrator) StopTrial(ctx context.Context, trialName string) (*model.Trial, error) {
	parsed, err := resources.ParseTrial(trialName)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	studyName := parsed.Study().Name()

	var result *model.Trial
	err = o.locks.WithStudyLock(studyName, func() error {
		trial, err := o.store.GetTrial(ctx, trialName)
		if err != nil {
			return err
		}
		if trial.State.IsTerminal() {
			result = trial
			return nil
		}
		trial.State = model.TrialStopping
		if err := o.store.UpdateTrial(ctx, trial); err != nil {
			return err
		}
		result = trial
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
