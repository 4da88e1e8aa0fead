package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oss-vizier/core/internal/db"
	"github.com/oss-vizier/core/internal/policy"
	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/logger"
	"github.com/oss-vizier/core/pkg/model"
)

// SuggestTrials fills a suggestion request from three sources in
// order: trials already assigned to the client, the pool of REQUESTED
// trials, and fresh Policy suggestions. It runs under the study's
// operation lock and is idempotent: while a non-done operation exists
// for the (study, client) pair, retries return it unchanged, and once
// the latest operation is done a retry returns it again as long as it
// carried suggestionCount trials that are all still ACTIVE for the
// client.
func (o *Orchestrator) SuggestTrials(
	ctx context.Context, studyName, clientID string, suggestionCount int,
) (*model.SuggestionOperation, error) {
	study, err := resources.ParseStudy(studyName)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	if suggestionCount < 1 {
		return nil, model.InvalidArgumentf("suggestion_count must be >= 1, got %d", suggestionCount)
	}

	log := o.logCtx(logger.Context{
		"owner_id": study.OwnerID, "study_id": study.StudyID, "client_id": clientID,
	})

	var result *model.SuggestionOperation
	err = o.locks.WithOperationLock(studyName, func() error {
		// Step 1: idempotency check.
		active, err := o.store.ListSuggestionOperations(ctx, studyName, clientID, db.NotDone)
		if err != nil && !model.IsNotFound(err) {
			return err
		}
		if len(active) > 0 {
			log.Debug("returning existing non-done suggestion operation")
			result = active[0]
			return nil
		}

		studyRecord, err := o.store.LoadStudy(ctx, studyName)
		if err != nil {
			return err
		}

		// Step 2: create a fresh operation.
		maxOp, err := o.store.MaxSuggestionOperationNumber(ctx, studyName, clientID)
		if err != nil {
			return err
		}
		// A retry after the latest operation completed gets that operation
		// back while its suggestionCount trials are all still ACTIVE here.
		if prev, err := o.store.GetSuggestionOperation(ctx, resources.SuggestionOperationName(
			study.OwnerID, study.StudyID, clientID, maxOp)); err == nil && prev.Err == nil &&
			prev.Response != nil && len(prev.Response.Trials) == suggestionCount {
			reusable := true
			for _, t := range prev.Response.Trials {
				cur, err := o.store.GetTrial(ctx, t.Name)
				reusable = reusable && err == nil && cur.State == model.TrialActive && cur.ClientID == clientID
			}
			if reusable {
				result = prev
				return nil
			}
		}
		startTime := o.now()
		op := &model.SuggestionOperation{
			Name:       resources.SuggestionOperationName(study.OwnerID, study.StudyID, clientID, maxOp+1),
			OwnerID:    study.OwnerID,
			StudyID:    study.StudyID,
			ClientID:   clientID,
			OpNumber:   maxOp + 1,
			Done:       false,
			CreateTime: startTime,
		}
		if err := o.store.CreateSuggestionOperation(ctx, op); err != nil {
			return err
		}

		allTrials, err := o.store.ListTrials(ctx, studyName)
		if err != nil {
			return err
		}

		// Step 3: source A, active reassignment.
		var output []*model.Trial
		for _, t := range allTrials {
			if t.State == model.TrialActive && t.ClientID == clientID {
				output = append(output, t)
			}
		}
		sort.Slice(output, func(i, j int) bool { return output[i].TrialID < output[j].TrialID })
		if len(output) >= suggestionCount {
			output = output[:suggestionCount]
			if err := o.finalizeSuggestSuccess(ctx, op, output, startTime, "active_reassigned", len(output)); err != nil {
				return err
			}
			result = op
			return nil
		}

		// Step 4: source B, requested pool.
		var requested []*model.Trial
		for _, t := range allTrials {
			if t.State == model.TrialRequested {
				requested = append(requested, t)
			}
		}
		sort.Slice(requested, func(i, j int) bool { return requested[i].TrialID < requested[j].TrialID })
		promoted := 0
		for len(requested) > 0 && len(output) < suggestionCount {
			assigned := requested[0]
			requested = requested[1:]
			assigned.State = model.TrialActive
			assigned.ClientID = clientID
			assigned.StartTime = startTime
			if err := o.store.UpdateTrial(ctx, assigned); err != nil {
				return err
			}
			output = append(output, assigned)
			promoted++
		}
		if len(output) == suggestionCount {
			if err := o.finalizeSuggestSuccess(ctx, op, output, startTime, "requested_pool", promoted); err != nil {
				return err
			}
			result = op
			return nil
		}

		// Step 5: source C, the Policy.
		deficit := suggestionCount - len(output)
		descriptor, err := o.studyDescriptor(ctx, studyName, studyRecord)
		if err != nil {
			return err
		}

		decision, err := o.callSuggest(ctx, descriptor, deficit)
		if err != nil {
			if ferr := o.failSuggestOp(ctx, op, model.Internalf("requesting suggestions from policy: %s", err)); ferr != nil {
				return ferr
			}
			result = op
			return nil
		}
		if len(decision.Suggestions) < deficit {
			log.Warnf("requested %d suggestions from policy but received %d", deficit, len(decision.Suggestions))
		}

		if err := o.applyMetadataDelta(ctx, studyName, decision.Metadata); err != nil {
			if ferr := o.failSuggestOp(ctx, op, model.Internalf("applying policy metadata: %s", err)); ferr != nil {
				return ferr
			}
			result = op
			return nil
		}

		// Step 6: materialize suggestions into ACTIVE trials until the
		// request is satisfied.
		suggestions := decision.Suggestions
		var materialized int
		for len(suggestions) > 0 && len(output) < suggestionCount {
			s := suggestions[0]
			suggestions = suggestions[1:]
			trial, err := o.newTrialFromSuggestion(ctx, study, clientID, startTime, s)
			if err != nil {
				return err
			}
			output = append(output, trial)
			materialized++
		}

		// Step 7: overflow. Every distinct remaining suggestion is
		// persisted as its own REQUESTED trial, each with its own id, so
		// a later call can pick them up from source B.
		for _, s := range suggestions {
			if _, err := o.newRequestedTrialFromSuggestion(ctx, study, s); err != nil {
				return err
			}
		}

		if err := o.finalizeSuggestSuccess(ctx, op, output, startTime, "policy", materialized); err != nil {
			return err
		}
		result = op
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) studyDescriptor(
	ctx context.Context, studyName string, study *model.Study,
) (policy.StudyDescriptor, error) {
	maxID, err := o.store.MaxTrialID(ctx, studyName)
	if err != nil {
		return policy.StudyDescriptor{}, err
	}
	return policy.StudyDescriptor{
		StudyName:  studyName,
		Spec:       study.Spec,
		Algorithm:  study.Spec.Algorithm,
		MaxTrialID: maxID,
	}, nil
}

func (o *Orchestrator) callSuggest(
	ctx context.Context, descriptor policy.StudyDescriptor, count int,
) (policy.SuggestDecision, error) {
	o.events.Record("suggest", descriptor.StudyName, uuid.New().String())
	timer := o.metric.PolicyLatency.WithLabelValues("suggest")
	start := o.now()
	decision, err := o.pol.Suggest(ctx, policy.SuggestRequest{Study: descriptor, Count: count})
	timer.Observe(o.now().Sub(start).Seconds())
	return decision, err
}

func (o *Orchestrator) newTrialFromSuggestion(
	ctx context.Context, study resources.Study, clientID string, startTime time.Time, s policy.Suggestion,
) (*model.Trial, error) {
	trialID, err := o.store.ReserveNextTrialID(ctx, study.Name())
	if err != nil {
		return nil, err
	}
	trial := &model.Trial{
		Name:       resources.TrialName(study.OwnerID, study.StudyID, trialID),
		OwnerID:    study.OwnerID,
		StudyID:    study.StudyID,
		TrialID:    trialID,
		State:      model.TrialActive,
		ClientID:   clientID,
		Parameters: s.Parameters,
		StartTime:  startTime,
	}
	if err := o.store.CreateTrial(ctx, trial); err != nil {
		return nil, err
	}
	return trial, nil
}

func (o *Orchestrator) newRequestedTrialFromSuggestion(
	ctx context.Context, study resources.Study, s policy.Suggestion,
) (*model.Trial, error) {
	trialID, err := o.store.ReserveNextTrialID(ctx, study.Name())
	if err != nil {
		return nil, err
	}
	trial := &model.Trial{
		Name:       resources.TrialName(study.OwnerID, study.StudyID, trialID),
		OwnerID:    study.OwnerID,
		StudyID:    study.StudyID,
		TrialID:    trialID,
		State:      model.TrialRequested,
		Parameters: s.Parameters,
	}
	if err := o.store.CreateTrial(ctx, trial); err != nil {
		return nil, err
	}
	return trial, nil
}

func (o *Orchestrator) finalizeSuggestSuccess(
	ctx context.Context, op *model.SuggestionOperation, trials []*model.Trial, startTime time.Time,
	source string, count int,
) error {
	op.Done = true
	op.Response = &model.SuggestTrialsResponse{Trials: trials, StartTime: startTime}
	if err := o.store.UpdateSuggestionOperation(ctx, op); err != nil {
		return err
	}
	o.metric.SuggestionOperations.WithLabelValues("done").Inc()
	if count > 0 {
		o.metric.SuggestedTrials.WithLabelValues(source).Add(float64(count))
	}
	return nil
}

func (o *Orchestrator) failSuggestOp(ctx context.Context, op *model.SuggestionOperation, cause error) error {
	op.Done = true
	if e, ok := cause.(*model.Error); ok {
		op.Err = e
	} else {
		op.Err = &model.Error{Message: cause.Error()}
	}
	if err := o.store.UpdateSuggestionOperation(ctx, op); err != nil {
		return err
	}
	o.metric.SuggestionOperations.WithLabelValues("error").Inc()
	return nil
}

// applyMetadataDelta applies a policy.MetadataDelta via the datastore,
// used by both SuggestTrials and CheckTrialEarlyStoppingState.
func (o *Orchestrator) applyMetadataDelta(ctx context.Context, studyName string, delta policy.MetadataDelta) error {
	if len(delta.OnStudy) == 0 && len(delta.OnTrial) == 0 {
		return nil
	}
	return o.store.UpdateMetadata(ctx, studyName, delta.OnStudy, delta.OnTrial)
}
