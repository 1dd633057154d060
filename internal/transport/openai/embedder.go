package openai

import (
	"context"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/metrics"
	"github.com/kailas-cloud/aerolab/internal/retry"
)

// Embedder is an embedding provider using the OpenAI-compatible API (e.g. Nebius).
type Embedder struct {
	client *openai.Client
	cfg    Config
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	c := *cfg
	client := newClient(&c)
	return &Embedder{client: client, cfg: c}
}

// Model returns the configured model name.
func (e *Embedder) Model() string { return e.cfg.Model }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.embed(ctx, []string{text}, "")
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed embeds several texts in one request, preserving input order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return e.embed(ctx, texts, "")
}

// EmbedTask implements domain.TaskEmbedder. OpenAI-compatible APIs have no
// task types; the task only labels metrics.
func (e *Embedder) EmbedTask(ctx context.Context, texts []string, task domain.TaskType) (domain.BatchEmbeddingResult, error) {
	return e.embed(ctx, texts, string(task))
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(e.cfg.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.cfg.User,
	}
	if e.cfg.Dimensions > 0 {
		req.Dimensions = e.cfg.Dimensions
	}

	provider := e.cfg.Provider
	start := time.Now()

	resp, err := retry.Do(ctx, e.cfg.Retry, e.cfg.Logger, provider+".embed", func() (openai.EmbeddingResponse, error) {
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return resp, parseAPIError(provider, "embedding", err, domain.ErrEmbeddingProviderError)
		}
		if len(resp.Data) != len(texts) {
			return resp, fmt.Errorf("embedding response has %d vectors for %d texts: %w",
				len(resp.Data), len(texts), domain.ErrEmbeddingProviderError)
		}
		return resp, nil
	})

	call := metrics.EmbeddingCall{
		Provider: provider,
		Model:    e.cfg.Model,
		Task:     task,
		Texts:    len(texts),
		Tokens:   resp.Usage.TotalTokens,
		Elapsed:  time.Since(start),
	}
	metrics.ObserveEmbedding(call, err)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	// Providers may return data out of order.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
