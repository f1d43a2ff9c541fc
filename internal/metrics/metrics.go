package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the store and API; exposed via /metrics on the API server.
var (
	SubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "excusedesk_letters_submitted_total",
		Help: "Excuse letters accepted by the store.",
	})

	ReviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "excusedesk_letters_reviewed_total",
		Help: "Review decisions recorded, by outcome.",
	}, []string{"status"})

	SnapshotWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "excusedesk_snapshot_writes_total",
		Help: "Full snapshot writes performed after mutations.",
	})

	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "excusedesk_auth_failures_total",
		Help: "Failed reviewer or student credential checks.",
	})

	EventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "excusedesk_events_processed_total",
		Help: "Mutation events consumed by the worker, by action.",
	}, []string{"action"})
)
