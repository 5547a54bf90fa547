package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingRequests counts booking attempts by outcome category
	BookingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "requests_total",
			Help:      "The total number of booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	// BookingCancellations counts cancellation attempts by outcome category
	BookingCancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "cancellations_total",
			Help:      "The total number of cancellation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// TicketsMoved counts seats taken from ("booked") or returned to ("released") the ledger
	TicketsMoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "tickets_total",
			Help:      "Seats moved through the capacity ledger",
		},
		[]string{"direction"},
	)

	// LedgerDuration is the time spent inside one atomic ledger operation
	LedgerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booking",
			Name:      "ledger_duration_seconds",
			Help:      "Time spent in atomic ledger operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

const OutcomeSuccess = "success"
