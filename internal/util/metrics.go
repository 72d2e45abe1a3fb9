package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_replayed_total",
		Help: "Total number of idempotent booking replays",
	})

	BookingConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Total number of booking attempts rejected by a seat conflict",
	}, []string{"reason"})

	BookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_confirmed_total",
		Help: "Total number of bookings confirmed by payment",
	})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of bookings cancelled by callers",
	})

	BookingsRescheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_rescheduled_total",
		Help: "Total number of rescheduled bookings",
	})

	BookingsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_expired_total",
		Help: "Total number of unpaid bookings cancelled by the expiry sweep",
	})

	SeatHoldLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "seat_hold_latency_seconds",
		Help:    "Latency of seat hold acquisition",
		Buckets: prometheus.DefBuckets,
	})

	PricingFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_fallback_total",
		Help: "Total number of prices that fell back to a stored price",
	}, []string{"operation"})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts",
	})

	PaymentFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_failed_total",
		Help: "Total number of declined payments",
	})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment processing",
		Buckets: prometheus.DefBuckets,
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "expiry_sweep_duration_seconds",
		Help:    "Duration of one expiry sweep pass",
		Buckets: prometheus.DefBuckets,
	})

	SweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expiry_sweep_errors_total",
		Help: "Total number of bookings the expiry sweep failed to process",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_events_published_total",
		Help: "Total number of booking events published",
	}, []string{"event_type", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
