package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/urbanplatform/busfeed"
	"github.com/urbanplatform/busfeed/internal/manager"
	"github.com/urbanplatform/busfeed/internal/topology"
	"github.com/urbanplatform/busfeed/internal/vehicles"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type LoadingStatus struct {
	LastUpdate time.Time `json:"last_update"`
}

// StatusResponse defines the object returned by the /status endpoint
type StatusResponse struct {
	Status  string        `json:"status,omitempty"`
	Version string        `json:"version,omitempty"`
	Buses   LoadingStatus `json:"buses,omitempty"`
}

var (
	httpDurations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "busfeed",
		Subsystem: "http",
		Name:      "durations_seconds",
		Help:      "http request latency distributions.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 1.5, 15),
	},
		[]string{"handler", "code"},
	)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "busfeed",
		Subsystem: "http",
		Name:      "in_flight",
		Help:      "current number of http request being served",
	},
	)
)

func StatusHandler(manager *manager.DataManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var lastBusesDataUpdate time.Time
		if manager.GetBusesContext() != nil {
			lastBusesDataUpdate = manager.GetBusesContext().GetLastBusesDataUpdate()
		}

		c.JSON(http.StatusOK, StatusResponse{
			"ok",
			busfeed.BusfeedVersion,
			LoadingStatus{lastBusesDataUpdate},
		})
	}
}

func SetupRouter(manager *manager.DataManager, r *gin.Engine) *gin.Engine {
	if r == nil {
		r = gin.New()
	}
	r.Use(instrumentGin())
	r.Use(gin.Recovery())
	pprof.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/status", StatusHandler(manager))

	return r
}

func instrumentGin() gin.HandlerFunc {
	return func(c *gin.Context) {
		begin := time.Now()
		httpInFlight.Inc()
		c.Next()
		httpInFlight.Dec()
		observer := httpDurations.With(prometheus.Labels{"handler": c.HandlerName(), "code": strconv.Itoa(c.Writer.Status())})
		observer.Observe(time.Since(begin).Seconds())
	}
}

func init() {
	prometheus.MustRegister(httpDurations)
	prometheus.MustRegister(httpInFlight)
	prometheus.MustRegister(vehicles.BusesLoadingDuration)
	prometheus.MustRegister(vehicles.BusesLoadingErrors)
	prometheus.MustRegister(topology.TopologyLoadingDuration)
	prometheus.MustRegister(topology.TopologyLoadingErrors)
}
