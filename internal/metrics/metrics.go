package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/incidence-forecast/internal/incidence"
)

// Metrics holds the Prometheus collectors for the forecast service. It
// implements incidence.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	StageOutcomes    *prometheus.CounterVec
	ForecastsTotal   *prometheus.CounterVec
	ForecastDuration prometheus.Histogram
	CacheRequests    *prometheus.CounterVec
	DatasetReloads   *prometheus.CounterVec
}

// New creates and registers all metrics on a private registry, together with
// the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "incidence_resolver_stage_total",
				Help: "Acquisition cascade stage outcomes",
			},
			[]string{"stage", "outcome"},
		),
		ForecastsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "incidence_forecasts_total",
				Help: "Forecasts produced, by method",
			},
			[]string{"method"},
		),
		ForecastDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "incidence_forecast_duration_seconds",
			Help:    "Time to resolve a history and forecast it",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		CacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "incidence_cache_requests_total",
				Help: "Forecast cache lookups, by result",
			},
			[]string{"result"},
		),
		DatasetReloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "incidence_dataset_reloads_total",
				Help: "Local dataset reloads, by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveStage counts one cascade stage outcome.
func (m *Metrics) ObserveStage(stage incidence.Stage, outcome string) {
	m.StageOutcomes.WithLabelValues(string(stage), outcome).Inc()
}

// ObserveForecast counts a produced forecast and its latency.
func (m *Metrics) ObserveForecast(method string, d time.Duration) {
	m.ForecastsTotal.WithLabelValues(method).Inc()
	m.ForecastDuration.Observe(d.Seconds())
}

// ObserveCache counts a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveReload counts a dataset reload attempt.
func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.DatasetReloads.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
