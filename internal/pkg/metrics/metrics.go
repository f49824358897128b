package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ginauditor_http_requests_total",
		Help: "The total number of HTTP requests served",
	}, []string{"method", "route", "status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ginauditor_http_latency_seconds",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	CleanupRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ginauditor_audit_cleanup_removed_total",
		Help: "Audit rows removed by retention cleanup",
	})
)
