package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "semla_evaluations_submitted_total",
			Help: "Total number of evaluation rows persisted",
		},
	)

	SubmissionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semla_submissions_rejected_total",
			Help: "Submissions rejected before persisting, by reason",
		},
		[]string{"reason"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semla_notifications_total",
			Help: "Evaluation invitations and reminders by outcome",
		},
		[]string{"kind", "result"},
	)

	RosterRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semla_roster_rows_total",
			Help: "Imported roster rows by outcome",
		},
		[]string{"result"},
	)

	FinalScoreHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semla_final_score",
			Help:    "Distribution of final report scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"method"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
