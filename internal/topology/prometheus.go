package topology

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TopologyLoadingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "busfeed",
		Subsystem: "topology",
		Name:      "load_durations_seconds",
		Help:      "route topology refresh latency distributions.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 1.5, 15),
	})

	TopologyLoadingErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "busfeed",
		Subsystem: "topology",
		Name:      "loading_errors",
		Help:      "current number of route topology refresh failures",
	})
)
