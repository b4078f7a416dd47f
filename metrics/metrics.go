// Package metrics exposes the bridge's Prometheus instrumentation. All
// collectors are registered on the default registry so the query server's
// /metrics endpoint picks them up without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed engine cycles by outcome and reason.
	// Reason is empty for pushes.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibebridge_cycles_total",
		Help: "Completed bridge cycles by outcome and reason.",
	}, []string{"outcome", "reason"})

	// PushesTotal counts confirmed oracle writes by emitted signal.
	PushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibebridge_pushes_total",
		Help: "Confirmed oracle writes by signal.",
	}, []string{"signal"})

	// ConsecutiveFailures mirrors the engine's failure streak gauge.
	ConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibebridge_consecutive_failures",
		Help: "Consecutive fetch or transaction failures since the last confirmed push.",
	})

	// CycleDuration observes wall-clock cycle latency.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vibebridge_cycle_duration_seconds",
		Help:    "Wall-clock duration of bridge cycles.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// FetchAttemptsTotal counts individual scoring source requests.
	FetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibebridge_fetch_attempts_total",
		Help: "Scoring source fetch attempts by result.",
	}, []string{"result"})

	// LastPushedScore is the most recent score confirmed on-chain.
	LastPushedScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibebridge_last_pushed_score",
		Help: "Most recent sentiment score confirmed on the ledger.",
	})
)
