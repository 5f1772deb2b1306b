package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tubeometer"

// PromCollectors are the Prometheus series exported on /metrics/prometheus
type PromCollectors struct {
	Registry *prometheus.Registry

	// Analyses counts ranking runs by pipeline.
	Analyses *prometheus.CounterVec

	// AlternativesScored counts alternatives ranked by pipeline.
	AlternativesScored *prometheus.CounterVec

	// AnalysisDuration measures ranking run duration.
	AnalysisDuration *prometheus.HistogramVec

	// QuotaUnits counts YouTube Data API units charged by endpoint.
	QuotaUnits *prometheus.CounterVec

	// WeightWarnings counts weight sets that failed soft validation.
	WeightWarnings *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
}

// NewPromCollectors registers the collectors on a fresh registry
func NewPromCollectors() *PromCollectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PromCollectors{
		Registry: reg,
		Analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Total number of ranking runs",
			},
			[]string{"pipeline"},
		),
		AlternativesScored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alternatives_scored_total",
				Help:      "Total number of alternatives ranked",
			},
			[]string{"pipeline"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of ranking runs in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"pipeline"},
		),
		QuotaUnits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "youtube_quota_units_total",
				Help:      "YouTube Data API quota units charged",
			},
			[]string{"endpoint"},
		),
		WeightWarnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weight_warnings_total",
				Help:      "Weight sets that did not sum to 1.0",
			},
			[]string{"pipeline"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status class",
			},
			[]string{"route", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (p *PromCollectors) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}
