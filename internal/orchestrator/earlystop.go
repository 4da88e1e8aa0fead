package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/oss-vizier/core/internal/policy"
	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/logger"
	"github.com/oss-vizier/core/pkg/model"
)

// CheckTrialEarlyStoppingState returns the cached early-stopping
// decision for a trial, recomputing it through the Policy when the
// per-trial operation is missing or its DONE result has outlived the
// recycle period. It runs under the study's operation lock (the same
// lock SuggestTrials uses, so the two never interleave for a study).
func (o *Orchestrator) CheckTrialEarlyStoppingState(ctx context.Context, trialName string) (bool, error) {
	trial, err := resources.ParseTrial(trialName)
	if err != nil {
		return false, model.InvalidArgumentf("%s", err)
	}
	studyName := trial.Study().Name()
	opName := resources.EarlyStoppingOperationName(trial.OwnerID, trial.StudyID, trial.TrialID)

	log := o.logCtx(logger.Context{
		"owner_id": trial.OwnerID, "study_id": trial.StudyID, "trial_id": trial.TrialID,
	})

	var shouldStop bool
	err = o.locks.WithOperationLock(studyName, func() error {
		op, err := o.store.GetEarlyStoppingOperation(ctx, opName)
		switch {
		case model.IsNotFound(err):
			op = &model.EarlyStoppingOperation{
				Name:       opName,
				OwnerID:    trial.OwnerID,
				StudyID:    trial.StudyID,
				TrialID:    trial.TrialID,
				Status:     model.EarlyStoppingActive,
				ShouldStop: false,
				CreateTime: o.now(),
			}
			if err := o.store.CreateEarlyStoppingOperation(ctx, op); err != nil {
				return err
			}
		case err != nil:
			return err
		case op.Status == model.EarlyStoppingActive:
			log.Debug("early stopping op already active, returning cached decision")
			o.metric.EarlyStopCacheHits.Inc()
			shouldStop = op.ShouldStop
			return nil
		case op.Age(o.now()) < o.recyclePeriod:
			log.Debug("early stopping op recently completed, returning cached decision")
			o.metric.EarlyStopCacheHits.Inc()
			shouldStop = op.ShouldStop
			return nil
		default:
			op.Status = model.EarlyStoppingActive
			op.ShouldStop = false
			if err := o.store.UpdateEarlyStoppingOperation(ctx, op); err != nil {
				return err
			}
		}

		// Consult the Policy.
		o.metric.EarlyStopRecomputes.Inc()
		study, err := o.store.LoadStudy(ctx, studyName)
		if err != nil {
			return err
		}
		descriptor, err := o.studyDescriptor(ctx, studyName, study)
		if err != nil {
			return err
		}

		o.events.Record("early_stop", studyName, uuid.New().String())
		timer := o.metric.PolicyLatency.WithLabelValues("early_stop")
		start := o.now()
		result, err := o.pol.EarlyStop(ctx, policy.EarlyStopRequest{Study: descriptor, TrialID: trial.TrialID})
		timer.Observe(o.now().Sub(start).Seconds())
		if err != nil {
			return model.Internalf("requesting early stopping decision from policy: %s", err)
		}

		if err := o.applyMetadataDelta(ctx, studyName, result.Metadata); err != nil {
			return err
		}

		sawRequested := false
		for _, decision := range result.Decisions {
			if decision.TrialID == trial.TrialID {
				sawRequested = true
			}
			innerName := resources.EarlyStoppingOperationName(trial.OwnerID, trial.StudyID, decision.TrialID)
			inner, err := o.store.GetEarlyStoppingOperation(ctx, innerName)
			if model.IsNotFound(err) {
				inner = &model.EarlyStoppingOperation{
					Name:       innerName,
					OwnerID:    trial.OwnerID,
					StudyID:    trial.StudyID,
					TrialID:    decision.TrialID,
					CreateTime: o.now(),
				}
				if err := o.store.CreateEarlyStoppingOperation(ctx, inner); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
			inner.ShouldStop = decision.ShouldStop
			inner.Status = model.EarlyStoppingDone
			inner.CompletionTime = o.now()
			if err := o.store.UpdateEarlyStoppingOperation(ctx, inner); err != nil {
				return err
			}
		}

		// The Policy is not required to include the requested trial in
		// its batched decisions. An omitted requested trial is left
		// should_stop=false, status=DONE rather than stuck ACTIVE
		// forever.
		if !sawRequested {
			log.Warn("policy early-stop decisions omitted the requested trial")
			op.Status = model.EarlyStoppingDone
			op.ShouldStop = false
			op.CompletionTime = o.now()
			if err := o.store.UpdateEarlyStoppingOperation(ctx, op); err != nil {
				return err
			}
		}

		final, err := o.store.GetEarlyStoppingOperation(ctx, opName)
		if err != nil {
			return err
		}
		shouldStop = final.ShouldStop
		return nil
	})
	if err != nil {
		return false, err
	}
	return shouldStop, nil
}
