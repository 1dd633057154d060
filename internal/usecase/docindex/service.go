// Package docindex loads split documentation files into the vector store
// and answers retrieval queries with whole parent documents.
package docindex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/domain/batch"
	"github.com/kailas-cloud/aerolab/internal/domain/document"
)

// Defaults.
const (
	DefaultChunkSize   = 200
	DefaultOverlap     = 20
	DefaultBatchSize   = 32
	DefaultConcurrency = 4
	DefaultK           = 4
)

// Match is a parent document returned by Search with the score of its best
// matching chunk.
type Match struct {
	Document document.Document
	Score    float64
}

// Service indexes parent documents as embedded child chunks.
type Service struct {
	parents     ParentStore
	chunks      ChunkRepository
	embed       Embedder
	splitter    *RecursiveSplitter
	dim         int
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// New creates a docindex service. dim is the embedding dimension of the
// child index.
func New(parents ParentStore, chunks ChunkRepository, embed Embedder, dim int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		parents:     parents,
		chunks:      chunks,
		embed:       embed,
		splitter:    NewRecursiveSplitter(DefaultChunkSize, DefaultOverlap),
		dim:         dim,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
}

// WithSplitter replaces the chunk splitter.
func (s *Service) WithSplitter(sp *RecursiveSplitter) *Service {
	if sp != nil {
		s.splitter = sp
	}
	return s
}

// WithBatchSize sets how many chunks go into one embedding call.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithConcurrency sets how many documents are embedded at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// IndexDir loads every documentation file in dir and ingests it.
func (s *Service) IndexDir(ctx context.Context, dir string) ([]batch.Result, error) {
	docs, err := LoadDocuments(dir, s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loaded documents", zap.String("dir", dir), zap.Int("count", len(docs)))
	return s.Ingest(ctx, docs)
}

// Ingest stores each document as a parent and its chunks as embedded
// children. Per-document failures are reported in the results; the error is
// reserved for failures that stop the whole run. Once the provider reports a
// rate limit the remaining documents are skipped.
func (s *Service) Ingest(ctx context.Context, docs []document.Document) ([]batch.Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := s.chunks.EnsureIndex(ctx, s.dim); err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	results := make([]batch.Result, len(docs))
	var halted atomic.Bool

	it := iter.Iterator[document.Document]{MaxGoroutines: s.concurrency}
	it.ForEachIdx(docs, func(i int, doc *document.Document) {
		label := doc.Metadata.Filename
		if halted.Load() {
			results[i] = batch.NewError(doc.ID, label, fmt.Errorf("skipped: %w", domain.ErrRateLimited))
			return
		}
		n, err := s.ingestOne(ctx, doc)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				halted.Store(true)
			}
			s.logger.Warn("document not indexed", zap.String("file", label), zap.Error(err))
			results[i] = batch.NewError(doc.ID, label, err)
			return
		}
		s.logger.Debug("document indexed", zap.String("file", label), zap.Int("chunks", n))
		results[i] = batch.NewOK(doc.ID, label, n)
	})

	sum := batch.Summarize(results)
	s.logger.Info("ingest finished",
		zap.Int("documents", sum.Items),
		zap.Int("indexed", sum.OK),
		zap.Int("failed", sum.Failed),
		zap.Int("chunks", sum.Parts),
	)
	return results, nil
}

func (s *Service) ingestOne(ctx context.Context, doc *document.Document) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.parents.MSet(ctx, []document.Document{*doc}); err != nil {
		return 0, fmt.Errorf("store parent: %w", err)
	}
	if err := s.chunks.RecordParent(ctx, *doc); err != nil {
		return 0, err
	}

	pieces := s.splitter.Split(doc.Content)
	chunks := make([]document.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = document.Chunk{ID: ChunkID(doc.ID, i), DocID: doc.ID, Index: i, Content: p}
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		part := chunks[start:end]
		texts := make([]string, len(part))
		for i := range part {
			texts[i] = part[i].Content
		}
		res, err := domain.EmbedWithTask(ctx, s.embed, texts, domain.TaskRetrievalDocument)
		if err != nil {
			return 0, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		for i := range part {
			v := res.Embeddings[i]
			if s.dim > 0 && len(v) != s.dim {
				return 0, fmt.Errorf("chunk %d: got %d dims, index has %d: %w",
					start+i, len(v), s.dim, domain.ErrVectorDimMismatch)
			}
			part[i].Vector = v
		}
	}

	if err := s.chunks.Upsert(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// ChunkID names the i-th chunk of a document.
func ChunkID(docID string, i int) string {
	return fmt.Sprintf("%s-%04d", docID, i)
}

// Search embeds query, finds the k nearest chunks and returns their parent
// documents, best first, one per parent.
func (s *Service) Search(ctx context.Context, query string, k int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultK
	}

	res, err := domain.EmbedWithTask(ctx, s.embed, []string{query}, domain.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.chunks.Search(ctx, res.Embeddings[0], k)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hits))
	best := make(map[string]float64, len(hits))
	for _, h := range hits {
		if _, seen := best[h.Chunk.DocID]; seen {
			continue
		}
		best[h.Chunk.DocID] = h.Score
		ids = append(ids, h.Chunk.DocID)
	}

	docs, err := s.parents.MGet(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load parents: %w", err)
	}
	out := make([]Match, len(docs))
	for i, d := range docs {
		out[i] = Match{Document: d, Score: best[d.ID]}
	}
	return out, nil
}
