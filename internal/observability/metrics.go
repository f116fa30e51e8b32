package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequested = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "rides_requested_total", Help: "Total ride requests accepted"})
	RidesFinalized = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "rides_finalized_total", Help: "Total rides finalized"})
	RidesExpired   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "rides_expired_total", Help: "Total rides expired unclaimed"})

	RidesCancelled = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "rides_cancelled_total", Help: "Total rides cancelled"},
		[]string{"reason"},
	)

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "broadcasts_total", Help: "Total offer broadcasts started"})
	OffersSent      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "offers_sent_total", Help: "Total offers delivered to drivers"})

	AcceptsWon = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "accepts_won_total", Help: "Total accepted claims that won the ride"})
	AcceptsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "accepts_rejected_total", Help: "Total rejected accept attempts"},
		[]string{"reason"},
	)

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "delivery_failures_total", Help: "Total per-recipient push delivery failures"})

	SessionsConnected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "ride_dispatch", Name: "sessions_connected", Help: "Currently connected websocket sessions"},
		[]string{"role"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
