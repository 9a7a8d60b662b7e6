// Package metrics exposes Prometheus metrics for relation maintenance runs.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for reconcile runs
const (
	OutcomeUnchanged = "unchanged"
	OutcomeChanged   = "changed"
	OutcomeFailed    = "failed"
)

var (
	registerOnce sync.Once

	relationsAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "editionlinks",
			Name:      "relations_added_total",
			Help:      "Edition to title relations added.",
		},
	)
	relationsRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "editionlinks",
			Name:      "relations_removed_total",
			Help:      "Edition to title relations removed.",
		},
	)
	publishGuard = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "editionlinks",
			Name:      "publish_guard_total",
			Help:      "Relation writes retried after unpublishing the edition.",
		},
		[]string{"success"},
	)
	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "editionlinks",
			Name:      "reconcile_runs_total",
			Help:      "Edition reconciliations by outcome.",
		},
		[]string{"outcome"},
	)
	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "editionlinks",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a single edition reconciliation in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(relationsAdded, relationsRemoved, publishGuard, reconcileRuns, reconcileDuration)
	})
}

func RecordRelationAdded() {
	RegisterMetrics()
	relationsAdded.Inc()
}

func RecordRelationRemoved() {
	RegisterMetrics()
	relationsRemoved.Inc()
}

func RecordPublishGuard(success bool) {
	RegisterMetrics()
	label := "false"
	if success {
		label = "true"
	}
	publishGuard.WithLabelValues(label).Inc()
}

func RecordReconcile(outcome string, duration time.Duration) {
	RegisterMetrics()
	reconcileRuns.WithLabelValues(outcome).Inc()
	reconcileDuration.Observe(duration.Seconds())
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
