package vehicles

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BusesLoadingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "busfeed",
		Subsystem: "buses",
		Name:      "load_durations_seconds",
		Help:      "vehicle feed ingestion latency distributions.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 1.5, 15),
	})

	BusesLoadingErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "busfeed",
		Subsystem: "buses",
		Name:      "loading_errors",
		Help:      "current number of vehicle feed ingestion failures",
	})
)
