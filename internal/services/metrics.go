package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Annotation metrics
	AnnotationRequests prometheus.Counter
	AnnotationFailures *prometheus.CounterVec
	AnnotationLatency  prometheus.Histogram

	// Store metrics
	DreamsSaved     prometheus.Counter
	PersistFailures prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. Call once at startup;
// services that run without it (tests) simply skip metric updates.
func InitMetrics() *Metrics {
	metrics := &Metrics{
		AnnotationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dreamweaver_annotation_requests_total",
			Help: "Total number of annotation calls issued to the generation service",
		}),

		AnnotationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dreamweaver_annotation_failures_total",
			Help: "Total number of failed annotation calls by leg",
		}, []string{"leg"}), // leg: "interpret" or "classify"

		AnnotationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dreamweaver_annotation_duration_seconds",
			Help:    "Annotation call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120}, // LLM calls can be slow
		}),

		DreamsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dreamweaver_dreams_saved_total",
			Help: "Total number of dreams confirmed and inserted",
		}),

		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dreamweaver_persist_failures_total",
			Help: "Total number of best-effort persistence writes that failed",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance, or nil if not initialized
func GetMetrics() *Metrics {
	return globalMetrics
}
