package domain

import (
	"context"
	"fmt"
)

// TaskType tells the embedding model how the vector will be used.
type TaskType string

// Supported embedding task types.
const (
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    TaskType = "RETRIEVAL_QUERY"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// TaskEmbedder vectorizes several texts in one call for a given task type.
type TaskEmbedder interface {
	EmbedTask(ctx context.Context, texts []string, task TaskType) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback calls Embed once per text. Used for providers without a
// native batch endpoint; the task type is lost on this path.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// EmbedWithTask prefers the task-aware path and falls back to plain Embed.
func EmbedWithTask(ctx context.Context, e Embedder, texts []string, task TaskType) (BatchEmbeddingResult, error) {
	if te, ok := e.(TaskEmbedder); ok {
		res, err := te.EmbedTask(ctx, texts, task)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed %s: %w", task, err)
		}
		if len(res.Embeddings) != len(texts) {
			return BatchEmbeddingResult{}, fmt.Errorf(
				"embed %s: got %d vectors for %d texts: %w",
				task, len(res.Embeddings), len(texts), ErrEmbeddingProviderError,
			)
		}
		return res, nil
	}
	return BatchFallback(ctx, e, texts)
}
