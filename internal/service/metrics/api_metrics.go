package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "windowopt",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of optimization endpoints",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windowopt",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by optimization endpoint and code",
		},
		[]string{"endpoint", "code"},
	)

	RefreshThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "windowopt",
			Subsystem: "api",
			Name:      "refresh_throttled_total",
			Help:      "Refresh requests rejected by the per-symbol rate limiter",
		},
	)
)

// Register adds the endpoint metrics to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, RefreshThrottled)
	})
}
