package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	sweepDuration *prometheus.HistogramVec
	candidates    *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		sweepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowopt_sweep_duration_seconds",
				Help:    "Duration of one parameter sweep",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		candidates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowopt_candidates_evaluated_total",
				Help: "Total number of window candidates backtested",
			},
			[]string{"kind"},
		),
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowopt_refresh_total",
				Help: "Optimization runs by symbol and outcome",
			},
			[]string{"symbol", "outcome"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowopt_cache_lookups_total",
				Help: "Result cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windowopt_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windowopt_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSweep records one finished sweep of the given strategy kind.
func (r *Recorder) RecordSweep(kind string, candidates int, seconds float64) {
	r.sweepDuration.WithLabelValues(kind).Observe(seconds)
	r.candidates.WithLabelValues(kind).Add(float64(candidates))
}

// RecordRefresh records the outcome (ok, error, busy) of an optimization run.
func (r *Recorder) RecordRefresh(symbol, outcome string) {
	r.refreshes.WithLabelValues(symbol, outcome).Inc()
}

// RecordCache records a cache hit, miss or error.
func (r *Recorder) RecordCache(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
