package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/aerolab/internal/domain"
)

// Generation and token-counting metrics.
var (
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "llm_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"provider", "model", "schema", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aerolab",
			Name:      "llm_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	TokenCountRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "token_count_requests_total",
			Help:      "Total number of token counting requests",
		},
		[]string{"model", "status"},
	)

	TokenCountDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aerolab",
			Name:      "token_count_duration_seconds",
			Help:      "Token counting request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"model"},
	)
)

var llmMetricsRegistered bool

// RegisterLLMMetrics registers generation metrics. Safe to call more than once.
func RegisterLLMMetrics() {
	if llmMetricsRegistered {
		return
	}
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(TokenCountRequestsTotal)
	prometheus.MustRegister(TokenCountDuration)
	llmMetricsRegistered = true
}

// ObserveGeneration records one generation call.
func ObserveGeneration(provider, model, schema string, elapsed time.Duration, err error) {
	LLMRequestsTotal.WithLabelValues(provider, model, schema, Status(err)).Inc()
	LLMRequestDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}

// ObserveTokenCount records one token counting call.
func ObserveTokenCount(model string, elapsed time.Duration, err error) {
	TokenCountRequestsTotal.WithLabelValues(model, Status(err)).Inc()
	TokenCountDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// Status maps an error to a low-cardinality status label.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrEmptyGeneration):
		return "empty"
	default:
		return "error"
	}
}
