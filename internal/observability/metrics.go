package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WalkTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pawmarket", Name: "walk_transitions_total", Help: "Walk lifecycle transitions by outcome"},
		[]string{"transition", "outcome"},
	)
	LocationUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: "pawmarket", Name: "location_updates_total", Help: "Accepted walk location updates"},
	)
	WalkersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{Namespace: "pawmarket", Name: "walkers_online", Help: "Number of walkers currently online"},
	)
	NotifyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pawmarket", Name: "notify_failures_total", Help: "Side-effect handler failures (best-effort, never surfaced)"},
		[]string{"handler"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pawmarket", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pawmarket",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
