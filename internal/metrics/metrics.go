// Package metrics holds the Prometheus collectors for the parser and its
// HTTP surface.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	m.ParseRequests.WithLabelValues("comparison", "auto_generate").Inc()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "expdesign"

// Metrics groups every collector the service exports
type Metrics struct {
	// ParseRequests counts parsed utterances.
	// Labels: intent, strategy (auto_generate|generate_with_confirm|request_clarification)
	ParseRequests *prometheus.CounterVec

	// ParseDuration measures one ParseInput call in seconds
	ParseDuration prometheus.Histogram

	// ExtractionConfidence is the distribution of overall extraction confidence
	ExtractionConfidence prometheus.Histogram

	// ValidationIssues counts validation messages attached to parse results.
	// Labels: intent
	ValidationIssues *prometheus.CounterVec

	// BatchSize is the number of items per batch parse
	BatchSize prometheus.Histogram

	// TemplateApplications counts applyTemplate calls.
	// Labels: template, status (success|not_found)
	TemplateApplications *prometheus.CounterVec

	// HTTPRequestDuration measures API latency.
	// Labels: method, route, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts API requests.
	// Labels: method, route, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// RateLimited counts requests rejected by the per-IP limiter
	RateLimited prometheus.Counter
}

// New creates every collector and registers it with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ParseRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_requests_total",
				Help:      "Total number of parsed inputs by intent and generation strategy",
			},
			[]string{"intent", "strategy"},
		),

		ParseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Duration of a single parse in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		ExtractionConfidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_confidence",
			Help:      "Distribution of overall extraction confidence",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),

		ValidationIssues: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Total number of validation messages by intent",
			},
			[]string{"intent"},
		),

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of inputs per batch parse",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		}),

		TemplateApplications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "template_applications_total",
				Help:      "Total number of template applications by template and status",
			},
			[]string{"template", "status"},
		),

		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP API requests in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route", "status_code"},
		),

		HTTPRequestCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP API requests",
			},
			[]string{"method", "route", "status_code"},
		),

		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}),
	}
}
