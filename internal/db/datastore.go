// Package db defines the pluggable Datastore contract the orchestrator
// runs against and provides the in-memory reference implementation. A
// relational backend lives in the sibling internal/db/postgres package.
package db

import (
	"context"

	"github.com/oss-vizier/core/pkg/model"
)

// SuggestionOperationFilter selects which suggestion operations a
// ListSuggestionOperations call should return.
type SuggestionOperationFilter func(*model.SuggestionOperation) bool

// NotDone is the filter used by SuggestTrials' idempotency check: only
// operations that have not yet completed.
func NotDone(op *model.SuggestionOperation) bool { return !op.Done }

// Datastore is the transactional CRUD contract required by the
// orchestrator. Every method is atomic with respect to concurrent
// callers; implementations that wrap a single mutable in-memory store
// or a relational engine must both uphold this.
//
// ReserveNextTrialID in particular must be atomic independent of any
// lock the orchestrator itself holds: trial_id allocation must never
// collide between the CreateTrial path (fenced by the study lock) and
// the SuggestTrials path (fenced by the operation lock), and those are
// different locks.
type Datastore interface {
	CreateStudy(ctx context.Context, study *model.Study) error
	LoadStudy(ctx context.Context, name string) (*model.Study, error)
	ListStudies(ctx context.Context, ownerName string) ([]*model.Study, error)
	DeleteStudy(ctx context.Context, name string) error

	CreateTrial(ctx context.Context, trial *model.Trial) error
	GetTrial(ctx context.Context, name string) (*model.Trial, error)
	UpdateTrial(ctx context.Context, trial *model.Trial) error
	ListTrials(ctx context.Context, studyName string) ([]*model.Trial, error)
	DeleteTrial(ctx context.Context, name string) error
	MaxTrialID(ctx context.Context, studyName string) (int64, error)
	ReserveNextTrialID(ctx context.Context, studyName string) (int64, error)

	CreateSuggestionOperation(ctx context.Context, op *model.SuggestionOperation) error
	GetSuggestionOperation(ctx context.Context, name string) (*model.SuggestionOperation, error)
	UpdateSuggestionOperation(ctx context.Context, op *model.SuggestionOperation) error
	ListSuggestionOperations(
		ctx context.Context, studyName, clientID string, filter SuggestionOperationFilter,
	) ([]*model.SuggestionOperation, error)
	MaxSuggestionOperationNumber(ctx context.Context, studyName, clientID string) (int64, error)

	CreateEarlyStoppingOperation(ctx context.Context, op *model.EarlyStoppingOperation) error
	GetEarlyStoppingOperation(ctx context.Context, name string) (*model.EarlyStoppingOperation, error)
	UpdateEarlyStoppingOperation(ctx context.Context, op *model.EarlyStoppingOperation) error

	// UpdateMetadata atomically applies on-study and on-trial metadata
	// deltas. A MetadataItem referring to a trial that doesn't exist in
	// studyName surfaces as a not-found *model.Error, which the
	// orchestrator reports as a response field rather than a fault.
	UpdateMetadata(ctx context.Context, studyName string, onStudy, onTrial []model.MetadataItem) error
}
