// Package policy defines the contract between the orchestrator and the
// external Policy backend: the black-box service that produces trial
// suggestions and early-stopping decisions. Besides the request/response
// shapes, the package holds RandomPolicy, an in-process default, and
// Dial, which selects it; no remote Policy client is implemented here.
package policy

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/oss-vizier/core/pkg/model"
)

// StudyDescriptor is the study context handed to the Policy on every
// call: the study's spec, its resource name, and the highest trial id
// allocated so far (used by some algorithms, e.g. evolutionary ones,
// to resume state).
type StudyDescriptor struct {
	StudyName  string
	Spec       model.StudySpec
	Algorithm  string
	MaxTrialID int64
}

// MetadataDelta is a set of on-study/on-trial metadata updates
// returned alongside a Policy decision, applied via
// db.Datastore.UpdateMetadata before any suggestion is materialized.
type MetadataDelta struct {
	OnStudy []model.MetadataItem
	OnTrial []model.MetadataItem
}

// Suggestion is one candidate parameter assignment produced by the
// Policy.
type Suggestion struct {
	Parameters model.ParameterDict
}

// SuggestRequest asks the Policy for Count suggestions.
type SuggestRequest struct {
	Study StudyDescriptor
	Count int
}

// SuggestDecision is the Policy's response to a SuggestRequest. It may
// legitimately contain fewer or more suggestions than Count; the
// orchestrator parks the excess as REQUESTED trials.
type SuggestDecision struct {
	Suggestions []Suggestion
	Metadata    MetadataDelta
}

// EarlyStopRequest asks the Policy whether the named trial (and
// optionally, implicitly, related batched trials) should stop.
type EarlyStopRequest struct {
	Study   StudyDescriptor
	TrialID int64
}

// EarlyStopDecision is one trial's stop/continue verdict. The Policy
// is not required to include the originally requested trial id.
type EarlyStopDecision struct {
	TrialID    int64
	ShouldStop bool
}

// EarlyStopResult is the Policy's response to an EarlyStopRequest.
type EarlyStopResult struct {
	Decisions []EarlyStopDecision
	Metadata  MetadataDelta
}

// Policy is the client-side contract for the external decision
// service. Both methods are treated as slow, possibly-failing calls:
// the orchestrator holds the study's operation lock for their
// duration, so at most one Policy call is outstanding per study.
type Policy interface {
	Suggest(ctx context.Context, req SuggestRequest) (SuggestDecision, error)
	EarlyStop(ctx context.Context, req EarlyStopRequest) (EarlyStopResult, error)
}

// Dial is the seam for swapping an in-process Policy for a remote
// one: an empty endpoint selects the in-process RandomPolicy default,
// a non-empty endpoint asks for a remote Policy. No remote transport
// is wired yet, so that path always returns an error.
func Dial(endpoint string) (Policy, error) {
	if endpoint == "" {
		return NewRandomPolicy(), nil
	}
	return nil, errors.Wrap(
		fmt.Errorf("no transport configured for endpoint %q", endpoint),
		"connecting to remote Policy: wire-level RPC framing is out of scope for this service",
	)
}
