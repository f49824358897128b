package auditor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collectors struct {
	records    *prometheus.CounterVec
	dropped    prometheus.Counter
	sinkErrors *prometheus.CounterVec
	build      prometheus.Histogram
}

// newCollectors registers the auditor metrics on reg. A nil reg keeps them
// unregistered.
func newCollectors(reg prometheus.Registerer) *collectors {
	factory := promauto.With(reg)
	return &collectors{
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auditor_records_total",
			Help: "Audit records dispatched to sinks",
		}, []string{"action"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "auditor_records_dropped_total",
			Help: "Audit records dropped because the queue was full or closed",
		}),
		sinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auditor_sink_errors_total",
			Help: "Sink failures while handling an audit record",
		}, []string{"sink"}),
		build: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditor_build_seconds",
			Help:    "Time spent building an audit record",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
		}),
	}
}
