// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications created, by category",
		},
		[]string{"category"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of dispatched notifications, by final status",
		},
		[]string{"category", "status"},
	)

	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Per-subscription delivery attempts, by outcome",
		},
		[]string{"outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dispatch_duration_seconds",
			Help: "Duration of notification fan-out in seconds",
		},
		[]string{"category"},
	)

	TriggerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trigger_ticks_total",
			Help: "Scheduler tick evaluations, by category and result",
		},
		[]string{"category", "result"},
	)

	TriggerCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trigger_candidates_total",
			Help: "Candidates yielded by trigger evaluators, by category",
		},
		[]string{"category"},
	)

	DedupHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_hits_total",
			Help: "Candidates dropped by the dedup guard, by layer (cache, ledger, constraint)",
		},
		[]string{"layer"},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "push_subscriptions_active",
			Help: "Number of active push subscriptions",
		},
	)
)
