package gemini

import (
	"context"
	"time"

	"google.golang.org/genai"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/metrics"
	"github.com/kailas-cloud/aerolab/internal/retry"
)

// TokenCounter counts model tokens with the CountTokens endpoint.
type TokenCounter struct {
	client *genai.Client
	cfg    Config
}

// NewTokenCounter creates a counter. Model defaults to gemini-2.0-flash.
func NewTokenCounter(ctx context.Context, cfg Config) (*TokenCounter, error) {
	client, err := newClient(ctx, &cfg, DefaultTokensModel)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{client: client, cfg: cfg}, nil
}

// CountTokens implements domain.TokenCounter.
func (c *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	start := time.Now()
	n, err := retry.Do(ctx, c.cfg.Retry, c.cfg.Logger, "gemini.count_tokens", func() (int, error) {
		resp, err := c.client.Models.CountTokens(ctx, c.cfg.Model, genai.Text(text), nil)
		if err != nil {
			return 0, classify("count tokens", err, domain.ErrGenerationProviderError)
		}
		return int(resp.TotalTokens), nil
	})
	metrics.ObserveTokenCount(c.cfg.Model, time.Since(start), err)
	return n, err
}
