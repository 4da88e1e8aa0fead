// Package policytest provides a scriptable policy.Policy test double
// used by the orchestrator's tests.
package policytest

import (
	"context"
	"sync"

	"github.com/oss-vizier/core/internal/policy"
)

// Fake is a policy.Policy whose responses are supplied by the test via
// SuggestFunc/EarlyStopFunc. Calls are recorded for assertions.
type Fake struct {
	SuggestFunc   func(ctx context.Context, req policy.SuggestRequest) (policy.SuggestDecision, error)
	EarlyStopFunc func(ctx context.Context, req policy.EarlyStopRequest) (policy.EarlyStopResult, error)

	mu             sync.Mutex
	SuggestCalls   []policy.SuggestRequest
	EarlyStopCalls []policy.EarlyStopRequest
}

// Suggest implements policy.Policy.
func (f *Fake) Suggest(ctx context.Context, req policy.SuggestRequest) (policy.SuggestDecision, error) {
	f.mu.Lock()
	f.SuggestCalls = append(f.SuggestCalls, req)
	f.mu.Unlock()
	if f.SuggestFunc == nil {
		return policy.SuggestDecision{}, nil
	}
	return f.SuggestFunc(ctx, req)
}

// EarlyStop implements policy.Policy.
func (f *Fake) EarlyStop(ctx context.Context, req policy.EarlyStopRequest) (policy.EarlyStopResult, error) {
	f.mu.Lock()
	f.EarlyStopCalls = append(f.EarlyStopCalls, req)
	f.mu.Unlock()
	if f.EarlyStopFunc == nil {
		return policy.EarlyStopResult{}, nil
	}
	return f.EarlyStopFunc(ctx, req)
}

// SuggestCallCount reports how many times Suggest was called.
func (f *Fake) SuggestCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.SuggestCalls)
}

// EarlyStopCallCount reports how many times EarlyStop was called.
func (f *Fake) EarlyStopCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.EarlyStopCalls)
}
