package eventsink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the sink's Prometheus instrumentation (§4.11: "metric
// counter dropped_events"), following the promauto registration style used
// throughout this monorepo's service-facing packages.
type metrics struct {
	eventsEnqueued *prometheus.CounterVec
	eventsDropped  *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		eventsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mukernel_sink_events_enqueued_total",
			Help: "Total number of events accepted onto the sink's queue, by kind.",
		}, []string{"kind"}),
		eventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mukernel_sink_events_dropped_total",
			Help: "Total number of events dropped because the sink's queue was full, by kind.",
		}, []string{"kind"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mukernel_sink_queue_depth",
			Help: "Current number of buffered events awaiting the drainer.",
		}),
	}
}
