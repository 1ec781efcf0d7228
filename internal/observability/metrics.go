// Package observability holds the Prometheus metrics exposed on
// /metrics. Counters are registered at init via promauto and
// incremented directly from the packages that own the events.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsCreated counts successful seat claims.
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merobus_bookings_created_total",
		Help: "Number of bookings successfully created.",
	})

	// SeatConflicts counts booking attempts rejected because a
	// requested seat was already claimed.
	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merobus_seat_conflicts_total",
		Help: "Number of booking attempts rejected due to seat conflicts.",
	})

	// PaymentsCompleted counts verified payment callbacks.
	PaymentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merobus_payments_completed_total",
		Help: "Number of payments verified and completed.",
	})

	// TripsEnded counts finished trips by timing category.
	TripsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "merobus_trips_ended_total",
		Help: "Number of trips ended, labeled by timing category.",
	}, []string{"category"})

	// LiveConnections tracks currently connected websocket users.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "merobus_live_connections",
		Help: "Number of websocket user sessions currently connected.",
	})
)
