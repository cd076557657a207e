package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unsgw_events_total",
			Help: "Inbound event envelopes by source and acceptance",
		},
		[]string{"source", "status"}, // http|kafka , accepted|rejected
	)

	AttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unsgw_publish_attempts_total",
			Help: "Per-broker publish attempts by outcome and transport",
		},
		[]string{"outcome", "transport"}, // published|failed , auto|mqtt|emqx|hivemq
	)

	PublishLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "unsgw_publish_latency_seconds",
			Help:    "Whole-adapter-call publish latency by transport",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"transport"},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EventsTotal,
		AttemptsTotal,
		PublishLatency,
	)
}
