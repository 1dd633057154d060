package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/metrics"
)

// DefaultMaxAPIBatchSize caps how many texts go into one provider call.
const DefaultMaxAPIBatchSize = 100

// charsPerToken estimates usage for providers that report none.
const charsPerToken = 4

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	Usage(w Window) Usage
}

// BudgetedEmbedder checks the token budget before each provider call and
// records what the call consumed. Transport metrics stay in the provider
// packages; this layer owns the budget gauge only.
type BudgetedEmbedder struct {
	inner     domain.Embedder
	provider  string
	model     string
	budget    BudgetChecker
	batchSize int
	logger    *zap.Logger
}

// NewBudgetedEmbedder wraps inner. A nil budget disables enforcement.
func NewBudgetedEmbedder(
	inner domain.Embedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *BudgetedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetedEmbedder{
		inner:     inner,
		provider:  provider,
		model:     model,
		budget:    budget,
		batchSize: DefaultMaxAPIBatchSize,
		logger:    logger,
	}
}

// WithMaxBatchSize sets how many texts one provider call carries.
func (p *BudgetedEmbedder) WithMaxBatchSize(n int) *BudgetedEmbedder {
	if n > 0 {
		p.batchSize = n
	}
	return p
}

// Embed checks the budget, delegates to the inner embedder and records usage.
func (p *BudgetedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := p.check(ctx, 1); err != nil {
		return domain.EmbeddingResult{}, err
	}

	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.record(result.TotalTokens, text)
	return result, nil
}

// EmbedTask implements domain.TaskEmbedder. Texts are sent in chunks of
// the max batch size and the budget is re-checked before every chunk.
func (p *BudgetedEmbedder) EmbedTask(
	ctx context.Context, texts []string, task domain.TaskType,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	var out domain.BatchEmbeddingResult
	for offset := 0; offset < len(texts); offset += p.batchSize {
		if err := p.check(ctx, len(texts)); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}

		chunk := texts[offset:min(offset+p.batchSize, len(texts))]
		res, err := domain.EmbedWithTask(ctx, p.inner, chunk, task)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}

		p.record(res.TotalTokens, chunk...)
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.String("task", string(task)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// HealthCheck forwards to the inner embedder when it can check itself.
func (p *BudgetedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *BudgetedEmbedder) check(ctx context.Context, texts int) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.logger.Error("Budget exceeded",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Int("texts", texts),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *BudgetedEmbedder) record(reported int, texts ...string) {
	if p.budget == nil {
		return
	}
	tokens := int64(reported)
	if tokens <= 0 {
		tokens = EstimateTokens(texts...)
	}
	if tokens == 0 {
		return
	}
	p.budget.Record(tokens)
	for _, w := range Windows {
		metrics.EmbeddingBudgetTokensRemaining.
			WithLabelValues(p.provider, string(w)).
			Set(float64(p.budget.Usage(w).Remaining()))
	}
}

// EstimateTokens approximates usage at four characters per token, rounded up
// per text.
func EstimateTokens(texts ...string) int64 {
	var n int64
	for _, t := range texts {
		n += int64((len(t) + charsPerToken - 1) / charsPerToken)
	}
	return n
}
