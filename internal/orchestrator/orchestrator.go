// Package orchestrator implements the coordination core of the
// service: CreateStudy, SuggestTrials, CheckTrialEarlyStoppingState,
// and the other trial/study/metadata operations, serialized by keyed
// owner/study/operation locks and backed by a pluggable db.Datastore
// and policy.Policy.
package orchestrator

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/oss-vizier/core/internal/db"
	"github.com/oss-vizier/core/internal/lockmgr"
	"github.com/oss-vizier/core/internal/metrics"
	"github.com/oss-vizier/core/internal/policy"
	"github.com/oss-vizier/core/internal/resources"
	"github.com/oss-vizier/core/pkg/logger"
	"github.com/oss-vizier/core/pkg/model"
)

// DefaultEarlyStopRecyclePeriod is how long a DONE early-stopping
// operation stays cached before the next query recomputes it.
const DefaultEarlyStopRecyclePeriod = 60 * time.Second

// Orchestrator is the core service. It holds no per-request state;
// every RPC acquires whatever locks it needs, reads/writes the
// Datastore, optionally calls the Policy, and returns.
type Orchestrator struct {
	store  db.Datastore
	pol    policy.Policy
	locks  *lockmgr.Manager
	log    *logrus.Logger
	metric *metrics.Registry
	events *policy.DecisionLog

	recyclePeriod time.Duration
	now           func() time.Time
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger overrides the default logrus.Logger.
func WithLogger(log *logrus.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithMetrics overrides the default metrics.Registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *Orchestrator) { o.metric = reg }
}

// WithEarlyStopRecyclePeriod overrides DefaultEarlyStopRecyclePeriod.
func WithEarlyStopRecyclePeriod(d time.Duration) Option {
	return func(o *Orchestrator) { o.recyclePeriod = d }
}

// WithClock overrides time.Now, so tests can simulate the recycle
// period elapsing without sleeping.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New constructs an Orchestrator over store and pol.
func New(store db.Datastore, pol policy.Policy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		pol:           pol,
		locks:         lockmgr.New(),
		log:           logrus.StandardLogger(),
		metric:        metrics.NewRegistry(),
		events:        policy.NewDecisionLog(),
		recyclePeriod: DefaultEarlyStopRecyclePeriod,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Events returns the orchestrator's Policy decision log, for
// diagnostics.
func (o *Orchestrator) Events() *policy.DecisionLog {
	return o.events
}

func (o *Orchestrator) logCtx(fields logger.Context) *logrus.Entry {
	return logger.Entry(o.log, fields)
}

// CreateStudy creates a study, or returns the owner's existing study
// with the same display name so retries are safe.
// The incoming study must not carry a resource name, and must carry a
// non-empty DisplayName; the service assigns StudyID := DisplayName
// and the resource Name.
func (o *Orchestrator) CreateStudy(
	ctx context.Context, ownerName string, study *model.Study,
) (*model.Study, error) {
	owner, err := resources.ParseOwner(ownerName)
	if err != nil {
		return nil, model.InvalidArgumentf("%s", err)
	}
	if study.Name != "" {
		return nil, model.InvalidArgumentf(
			"study should not have a resource name; names can only be assigned by this service")
	}
	if study.DisplayName == "" {
		return nil, model.InvalidArgumentf("study display_name must be specified")
	}
	if err := validateStudySpec(study.Spec); err != nil {
		return nil, model.InvalidArgumentf("invalid study_spec: %s", err)
	}

	var result *model.Study
	err = o.locks.WithOwnerLock(ownerName, func() error {
		existing, err := o.store.ListStudies(ctx, ownerName)
		if err != nil && !model.IsNotFound(err) {
			return err
		}
		if len(existing) >= model.MaxStudiesPerOwner {
			return model.ResourceExhaustedf("maximum number of studies reached for owner %s", owner.OwnerID)
		}
		for _, candidate := range existing {
			if candidate.DisplayName == study.DisplayName {
				o.logCtx(logger.Context{"owner_id": owner.OwnerID}).
					Infof("found existing study with display_name=%s", study.DisplayName)
				result = candidate
				return nil
			}
		}

		study.OwnerID = owner.OwnerID
		study.StudyID = study.DisplayName
		study.Name = resources.StudyName(owner.OwnerID, study.StudyID)
		study.CreateTime = o.now()
		if err := o.store.CreateStudy(ctx, study); err != nil {
			return errors.Wrap(err, "creating study")
		}
		result = study
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetStudy is a direct datastore passthrough.
func (o *Orchestrator) GetStudy(ctx context.Context, name string) (*model.Study, error) {
	return o.store.LoadStudy(ctx, name)
}

// ListStudies is a direct datastore passthrough.
func (o *Orchestrator) ListStudies(ctx context.Context, ownerName string) ([]*model.Study, error) {
	return o.store.ListStudies(ctx, ownerName)
}

// DeleteStudy is a direct datastore passthrough.
func (o *Orchestrator) DeleteStudy(ctx context.Context, name string) error {
	return o.store.DeleteStudy(ctx, name)
}

// GetOperation is a direct datastore passthrough for a SuggestTrials
// long-running operation.
func (o *Orchestrator) GetOperation(ctx context.Context, name string) (*model.SuggestionOperation, error) {
	return o.store.GetSuggestionOperation(ctx, name)
}
