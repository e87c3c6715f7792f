package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationAttempts counts reservation requests by outcome
	// (reserved, quota_exceeded, no_tickets, lock_timeout, error).
	ReservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "reservation_attempts_total",
			Help:      "The total number of reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TicketsReserved counts tickets that reached reserved state.
	TicketsReserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "tickets_reserved_total",
			Help:      "The total number of tickets reserved",
		},
	)

	// TicketRollbacks counts tickets released by reservation rollback.
	TicketRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "ticket_rollbacks_total",
			Help:      "The total number of tickets rolled back after a failed reservation",
		},
	)

	// MessagesProcessed The total number of processed messages (counter)
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processed_total",
			Help:      "The total number of processed messages",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingFailed total number of message processing failures (counter)
	MessagesProcessingFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "messages",
			Name:      "processing_failed_total",
			Help:      "The total number of message processing failures",
		},
		[]string{"topic", "handler"},
	)

	// MessagesProcessingDuration The total time spent processing messages (summary with quantiles 0.5, 0.9, and 0.99)
	MessagesProcessingDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  "messages",
			Name:       "processing_duration_seconds",
			Help:       "The total time spent processing messages",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"topic", "handler"},
	)
)
