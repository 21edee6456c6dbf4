package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of the bootstrap pipeline. A nil *Metrics is valid and records nothing, so
// components can be built without a registry in tests.
type Metrics struct {
	BootstrapOutcomes *prometheus.CounterVec
	BootstrapDuration prometheus.Histogram
	FetchResults      *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
	CacheReads        *prometheus.CounterVec
	CacheWrites       *prometheus.CounterVec
	Hydrated          prometheus.Gauge
}

// New registers the collectors on reg. Use prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BootstrapOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brokerfront_bootstrap_outcomes_total",
			Help: "Bootstrap passes by terminal outcome",
		}, []string{"outcome"}),
		BootstrapDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "brokerfront_bootstrap_duration_seconds",
			Help:    "Duration of a bootstrap pass, resolve to publish",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		FetchResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brokerfront_config_fetch_total",
			Help: "Broker config lookups by result",
		}, []string{"result"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "brokerfront_config_fetch_duration_seconds",
			Help:    "Duration of broker config lookups against the backend",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		CacheReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brokerfront_cache_reads_total",
			Help: "Cache reads by tier and result",
		}, []string{"tier", "result"}),
		CacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "brokerfront_cache_writes_total",
			Help: "Cache writes by tier and result",
		}, []string{"tier", "result"}),
		Hydrated: f.NewGauge(prometheus.GaugeOpts{
			Name: "brokerfront_cache_hydrated",
			Help: "1 once the durable tier has been hydrated into memory",
		}),
	}
}

func (m *Metrics) ObserveBootstrap(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.BootstrapOutcomes.WithLabelValues(outcome).Inc()
	m.BootstrapDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveFetch(result string, start time.Time) {
	if m == nil {
		return
	}
	m.FetchResults.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) CacheRead(tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheReads.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) CacheWrite(tier string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CacheWrites.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) SetHydrated(done bool) {
	if m == nil {
		return
	}
	if done {
		m.Hydrated.Set(1)
	} else {
		m.Hydrated.Set(0)
	}
}
