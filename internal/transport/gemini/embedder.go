package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/metrics"
	"github.com/kailas-cloud/aerolab/internal/retry"
)

// Embedder vectorizes text with the Gemini embedding models.
type Embedder struct {
	client *genai.Client
	cfg    Config
}

// NewEmbedder creates an embedder. Model defaults to gemini-embedding-001.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	client, err := newClient(ctx, &cfg, DefaultEmbeddingModel)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, cfg: cfg}, nil
}

// Model returns the configured model name.
func (e *Embedder) Model() string { return e.cfg.Model }

// Embed implements domain.Embedder. Queries are the common single-text case.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.EmbedTask(ctx, []string{text}, domain.TaskRetrievalQuery)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

// EmbedTask implements domain.TaskEmbedder with one batch request.
// Gemini does not report token usage for embeddings.
func (e *Embedder) EmbedTask(ctx context.Context, texts []string, task domain.TaskType) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	config := &genai.EmbedContentConfig{TaskType: string(task)}
	if e.cfg.Dimensions > 0 {
		config.OutputDimensionality = genai.Ptr(int32(e.cfg.Dimensions))
	}

	model := e.cfg.Model
	start := time.Now()

	vectors, err := retry.Do(ctx, e.cfg.Retry, e.cfg.Logger, "gemini.embed", func() ([][]float32, error) {
		resp, err := e.client.Models.EmbedContent(ctx, model, contents, config)
		if err != nil {
			return nil, classify("embed content", err, domain.ErrEmbeddingProviderError)
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts: %w",
				len(resp.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
		}
		out := make([][]float32, len(resp.Embeddings))
		for i, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("empty embedding at %d: %w", i, domain.ErrEmbeddingProviderError)
			}
			out[i] = emb.Values
		}
		return out, nil
	})

	metrics.ObserveEmbedding(metrics.EmbeddingCall{
		Provider: ProviderName,
		Model:    model,
		Task:     string(task),
		Texts:    len(texts),
		Elapsed:  time.Since(start),
	}, err)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	return domain.BatchEmbeddingResult{Embeddings: vectors}, nil
}
