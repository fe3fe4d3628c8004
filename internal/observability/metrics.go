// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ravencube_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// CoordinatorLatency records the duration of coordinated writes, including
	// their side-effect stage.
	CoordinatorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ravencube_coordinator_latency_seconds",
		Help:    "Latency of coordinated multi-record writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	// SideEffectFailures counts best-effort side effects that failed after
	// their primary write committed.
	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ravencube_side_effect_failures_total",
		Help: "Side effects that failed after the primary write committed",
	}, []string{"effect"})

	// NotificationsEmitted counts persisted notifications by type.
	NotificationsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ravencube_notifications_emitted_total",
		Help: "Notifications persisted by type",
	}, []string{"type"})

	// NotificationsSuppressed counts notifications dropped before persistence.
	NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ravencube_notifications_suppressed_total",
		Help: "Notifications suppressed by reason",
	}, []string{"reason"})

	// ShieldDecisions counts abuse shield verdicts.
	ShieldDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ravencube_shield_decisions_total",
		Help: "Abuse shield decisions by verdict",
	}, []string{"decision"})

	// CacheLookups counts cache-aside lookups by keyspace and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ravencube_cache_lookups_total",
		Help: "Cache-aside lookups by keyspace and result",
	}, []string{"keyspace", "result"})
)

// TrackCoordinator returns a function that records the latency of a
// coordinated operation when called with its outcome (e.g. defer).
func TrackCoordinator(operation string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		CoordinatorLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
	}
}
