package docindex

import (
	"context"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/domain/document"
)

// ParentStore keeps whole documents by ID.
type ParentStore interface {
	MSet(ctx context.Context, docs []document.Document) error
	MGet(ctx context.Context, keys []string) ([]document.Document, error)
}

// ChunkRepository stores searchable child chunks and parent records.
type ChunkRepository interface {
	EnsureIndex(ctx context.Context, dim int) error
	Upsert(ctx context.Context, chunks []document.Chunk) error
	RecordParent(ctx context.Context, doc document.Document) error
	Search(ctx context.Context, vector []float32, k int) ([]document.Hit, error)
}

// Embedder vectorizes text. Implementations that also satisfy
// domain.TaskEmbedder receive the retrieval task type.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
