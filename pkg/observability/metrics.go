// Package observability exposes engine metrics and health over HTTP.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session metrics
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusforge_sessions_total",
			Help: "Total number of finished focus sessions",
		},
		[]string{"result"}, // completed | aborted
	)

	sessionSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusforge_session_seconds_total",
			Help: "Total credited focus seconds",
		},
	)

	// Reward metrics
	xpGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusforge_xp_granted_total",
			Help: "Total XP granted, multipliers included",
		},
	)

	coinsEarnedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusforge_coins_earned_total",
			Help: "Total coins earned, multipliers included",
		},
	)

	resourcesCollectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusforge_resources_collected_total",
			Help: "Total collectible resources mined to completion",
		},
		[]string{"tier"},
	)

	// Sync metrics
	mergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusforge_merges_total",
			Help: "Total aggregate merges performed during sync",
		},
		[]string{"aggregate"},
	)

	remotePushFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusforge_remote_push_failures_total",
			Help: "Remote store writes that were deferred for retry",
		},
	)

	remotePendingKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusforge_remote_pending_keys",
			Help: "Keys still awaiting a successful remote push",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all engine metrics with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			sessionsTotal,
			sessionSeconds,
			xpGrantedTotal,
			coinsEarnedTotal,
			resourcesCollectedTotal,
			mergesTotal,
			remotePushFailures,
			remotePendingKeys,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordSession records a finished session.
func RecordSession(completed bool, elapsedSec uint64) {
	result := "aborted"
	if completed {
		result = "completed"
	}
	sessionsTotal.WithLabelValues(result).Inc()
	sessionSeconds.Add(float64(elapsedSec))
}

// RecordRewards records a session payout.
func RecordRewards(xp, coins uint64) {
	xpGrantedTotal.Add(float64(xp))
	coinsEarnedTotal.Add(float64(coins))
}

// RecordResourceCollected records a mined-out collectible.
func RecordResourceCollected(tier string) {
	resourcesCollectedTotal.WithLabelValues(tier).Inc()
}

// RecordMerge records one aggregate merge during sync.
func RecordMerge(aggregate string) {
	mergesTotal.WithLabelValues(aggregate).Inc()
}

// RecordRemotePushFailure records a deferred remote write.
func RecordRemotePushFailure() {
	remotePushFailures.Inc()
}

// SetRemotePending updates the pending-key gauge.
func SetRemotePending(n int) {
	remotePendingKeys.Set(float64(n))
}
