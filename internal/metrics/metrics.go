package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	seatSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_seat_selections_total",
			Help: "Seat selection attempts by result",
		},
		[]string{"operation", "result"},
	)

	autoAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_auto_assignments_total",
			Help: "Automatic seat assignments by result",
		},
		[]string{"result"},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_passengers_total",
			Help: "Per-passenger check-in outcomes",
		},
		[]string{"outcome"},
	)

	notificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_notification_failures_total",
			Help: "Notification requests that could not be delivered",
		},
		[]string{"kind", "reason"},
	)

	httpRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkin_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func SeatSelection(operation, result string) {
	seatSelections.WithLabelValues(operation, result).Inc()
}

func AutoAssignment(result string) {
	autoAssignments.WithLabelValues(result).Inc()
}

func CheckIn(outcome string) {
	checkIns.WithLabelValues(outcome).Inc()
}

func NotificationFailure(kind, reason string) {
	notificationFailures.WithLabelValues(kind, reason).Inc()
}

func ObserveRequest(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Observe(seconds)
}
