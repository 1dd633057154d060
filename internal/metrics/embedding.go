package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/aerolab/internal/domain"
)

// Embedding Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "task", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aerolab",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "embedding_texts_total",
			Help:      "Total texts sent for embedding",
		},
		[]string{"provider", "model", "task"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed, when the provider reports them",
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "aerolab",
			Name:      "embedding_budget_tokens_remaining",
			Help:      "Embedding tokens left in the budget period, -1 when unlimited",
		},
		[]string{"provider", "period"}, // "daily" / "monthly"
	)
)

var registerEmbedding sync.Once

// RegisterEmbeddingMetrics registers embedding metrics. Safe to call more than once.
func RegisterEmbeddingMetrics() {
	registerEmbedding.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTextsTotal,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			EmbeddingBudgetTokensRemaining,
		)
	})
}

// EmbeddingCall is one finished provider request.
type EmbeddingCall struct {
	Provider string
	Model    string
	Task     string
	Texts    int
	// Tokens is zero when the provider reports no usage.
	Tokens  int
	Elapsed time.Duration
}

// ObserveEmbedding records one provider request and, on failure, its kind.
func ObserveEmbedding(c EmbeddingCall, err error) {
	task := c.Task
	if task == "" {
		task = "none"
	}
	EmbeddingRequestDuration.WithLabelValues(c.Provider, c.Model).Observe(c.Elapsed.Seconds())
	if err != nil {
		EmbeddingRequestsTotal.WithLabelValues(c.Provider, c.Model, task, "error").Inc()
		EmbeddingErrorsTotal.WithLabelValues(c.Provider, c.Model, ErrorType(err)).Inc()
		return
	}
	EmbeddingRequestsTotal.WithLabelValues(c.Provider, c.Model, task, "success").Inc()
	EmbeddingTextsTotal.WithLabelValues(c.Provider, c.Model, task).Add(float64(c.Texts))
	if c.Tokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(c.Provider, c.Model).Add(float64(c.Tokens))
	}
}

// ErrorType maps a provider error to the error_type label.
func ErrorType(err error) string {
	if errors.Is(err, domain.ErrRateLimited) {
		return "rate_limited"
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode > 0 {
		return "api_error"
	}
	return "request_failed"
}
