// Package metrics instruments the orchestrator: suggestion
// throughput, Policy latency, and early-stop recompute volume.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the collectors the orchestrator reports to. Callers
// that don't want global-registry side effects can construct one with
// NewRegistry and register it themselves.
type Registry struct {
	SuggestionOperations *prometheus.CounterVec
	SuggestedTrials      *prometheus.CounterVec
	PolicyLatency        *prometheus.HistogramVec
	EarlyStopRecomputes  prometheus.Counter
	EarlyStopCacheHits   prometheus.Counter
}

// NewRegistry constructs a Registry. outcome labels on
// SuggestionOperations are "done" or "error"; source labels on
// SuggestedTrials are "active_reassigned", "requested_pool", or
// "policy". For each successful operation SuggestedTrials is
// incremented at most once, under the source that completed it and by that
// source's trials only; trials an earlier source contributed to the
// same operation are not counted.
func NewRegistry() *Registry {
	return &Registry{
		SuggestionOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vizier",
			Subsystem: "orchestrator",
			Name:      "suggestion_operations_total",
			Help:      "SuggestTrials operations finalized, by outcome.",
		}, []string{"outcome"}),
		SuggestedTrials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vizier",
			Subsystem: "orchestrator",
			Name:      "suggested_trials_total",
			Help:      "Trials returned from SuggestTrials, by source.",
		}, []string{"source"}),
		PolicyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vizier",
			Subsystem: "policy",
			Name:      "call_latency_seconds",
			Help:      "Latency of calls to the Policy backend, by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		EarlyStopRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vizier",
			Subsystem: "early_stop",
			Name:      "recomputes_total",
			Help:      "CheckTrialEarlyStoppingState calls that consulted the Policy.",
		}),
		EarlyStopCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vizier",
			Subsystem: "early_stop",
			Name:      "cache_hits_total",
			Help:      "CheckTrialEarlyStoppingState calls served from a cached op.",
		}),
	}
}

// MustRegister registers every collector in r with reg.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.SuggestionOperations,
		r.SuggestedTrials,
		r.PolicyLatency,
		r.EarlyStopRecomputes,
		r.EarlyStopCacheHits,
	)
}
