package docindex

import (
	"context"
	"sync"

	"github.com/kailas-cloud/aerolab/internal/domain"
	"github.com/kailas-cloud/aerolab/internal/domain/document"
)

const testDim = 3

type mockParentStore struct {
	mu   sync.Mutex
	docs map[string]document.Document

	msetFn func(ctx context.Context, docs []document.Document) error
	mgetFn func(ctx context.Context, keys []string) ([]document.Document, error)
}

func newMockParentStore() *mockParentStore {
	return &mockParentStore{docs: map[string]document.Document{}}
}

func (m *mockParentStore) MSet(ctx context.Context, docs []document.Document) error {
	if m.msetFn != nil {
		return m.msetFn(ctx, docs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *mockParentStore) MGet(ctx context.Context, keys []string) ([]document.Document, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []document.Document
	for _, k := range keys {
		if d, ok := m.docs[k]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockChunkRepo struct {
	mu       sync.Mutex
	chunks   []document.Chunk
	parents  []string
	ensured  int
	ensureFn func(ctx context.Context, dim int) error
	upsertFn func(ctx context.Context, chunks []document.Chunk) error
	searchFn func(ctx context.Context, vector []float32, k int) ([]document.Hit, error)
}

func (m *mockChunkRepo) EnsureIndex(ctx context.Context, dim int) error {
	m.mu.Lock()
	m.ensured = dim
	m.mu.Unlock()
	if m.ensureFn != nil {
		return m.ensureFn(ctx, dim)
	}
	return nil
}

func (m *mockChunkRepo) Upsert(ctx context.Context, chunks []document.Chunk) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, chunks)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockChunkRepo) RecordParent(_ context.Context, doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parents = append(m.parents, doc.ID)
	return nil
}

func (m *mockChunkRepo) Search(ctx context.Context, vector []float32, k int) ([]document.Hit, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, vector, k)
	}
	return nil, nil
}

func (m *mockChunkRepo) chunksOf(docID string) []document.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []document.Chunk
	for _, c := range m.chunks {
		if c.DocID == docID {
			out = append(out, c)
		}
	}
	return out
}

type embedCall struct {
	texts []string
	task  domain.TaskType
}

// mockEmbedder returns [len(text), 1, 0] for every text unless embedFn is set.
type mockEmbedder struct {
	mu      sync.Mutex
	calls   []embedCall
	dim     int
	embedFn func(texts []string, task domain.TaskType) (domain.BatchEmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := m.EmbedTask(ctx, []string{text}, "")
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

func (m *mockEmbedder) EmbedTask(_ context.Context, texts []string, task domain.TaskType) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, embedCall{texts: append([]string(nil), texts...), task: task})
	m.mu.Unlock()
	if m.embedFn != nil {
		return m.embedFn(texts, task)
	}
	dim := m.dim
	if dim == 0 {
		dim = testDim
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, dim)
		v[0] = float32(len(t))
		if dim > 1 {
			v[1] = 1
		}
		out[i] = v
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func testDoc(fullName, content string) document.Document {
	meta := document.ParseFilename(fullName + ".txt")
	meta.Source = "clean_docs/" + fullName + ".txt"
	return document.Document{ID: DocumentID(fullName), Content: content, Metadata: meta}
}

func newTestService() (*Service, *mockParentStore, *mockChunkRepo, *mockEmbedder) {
	parents := newMockParentStore()
	chunks := &mockChunkRepo{}
	emb := &mockEmbedder{}
	return New(parents, chunks, emb, testDim, nil), parents, chunks, emb
}
