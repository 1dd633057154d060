// Package chunk persists documentation chunks and parent records in the
// vector store.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/aerolab/internal/db"
	"github.com/kailas-cloud/aerolab/internal/domain/document"
)

// Collection names.
const (
	ChildCollection  = "child_chunks"
	ParentCollection = "parent_docs"
)

// Hash fields of a child chunk.
const (
	fieldDocID   = "doc_id"
	fieldContent = "content"
	fieldIndex   = "chunk_index"
)

// store is the consumer interface for chunks (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo stores chunks as hashes with a vector field.
type Repo struct {
	store  store
	prefix string
}

// New creates a chunk repository. keyPrefix namespaces keys and index names
// ("aerolab:" gives aerolab:child_chunks:<id>).
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) indexName(collection string) string {
	return strings.TrimSuffix(r.prefix, ":") + "_" + collection
}

func (r *Repo) keyPrefix(collection string) string {
	return r.prefix + collection + ":"
}

// ChildIndexName is the vector index over chunks.
func (r *Repo) ChildIndexName() string { return r.indexName(ChildCollection) }

// ParentIndexName is the index over parent records.
func (r *Repo) ParentIndexName() string { return r.indexName(ParentCollection) }

// EnsureIndex creates both collections. An existing index counts as success.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	child, err := db.NewIndex(r.ChildIndexName(), r.keyPrefix(ChildCollection)).
		Tag(fieldDocID).
		Text(fieldContent).
		Vector(db.DefaultVectorField, db.VectorSpec{Dim: dim}).
		Build()
	if err != nil {
		return fmt.Errorf("build %s index: %w", ChildCollection, err)
	}
	parent, err := db.NewIndex(r.ParentIndexName(), r.keyPrefix(ParentCollection)).
		Tag("type").
		Tag("parent").
		Numeric("length").
		Build()
	if err != nil {
		return fmt.Errorf("build %s index: %w", ParentCollection, err)
	}

	for _, def := range []*db.IndexDefinition{child, parent} {
		if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}

// Upsert writes chunks in one batch.
func (r *Repo) Upsert(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(chunks))
	for i, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("chunk %s has no vector", c.ID)
		}
		items[i] = db.HashSetItem{
			Key: r.keyPrefix(ChildCollection) + c.ID,
			Fields: map[string]string{
				fieldDocID:            c.DocID,
				fieldContent:          c.Content,
				fieldIndex:            strconv.Itoa(c.Index),
				db.DefaultVectorField: db.EncodeVector(c.Vector),
			},
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// RecordParent writes the parent_docs record for a document. The content
// itself lives in the parent document store.
func (r *Repo) RecordParent(ctx context.Context, doc document.Document) error {
	key := r.keyPrefix(ParentCollection) + doc.ID
	fields := map[string]string{
		"filename":  doc.Metadata.Filename,
		"full_name": doc.Metadata.FullName,
		"name":      doc.Metadata.Name,
		"type":      string(doc.Metadata.Type),
		"parent":    doc.Metadata.Parent,
		"source":    doc.Metadata.Source,
		"length":    strconv.Itoa(len(doc.Content)),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("record parent %s: %w", doc.ID, err)
	}
	return nil
}

// Parent reads a parent record back.
func (r *Repo) Parent(ctx context.Context, id string) (document.Metadata, error) {
	m, err := r.store.HGetAll(ctx, r.keyPrefix(ParentCollection)+id)
	if err != nil {
		return document.Metadata{}, fmt.Errorf("get parent %s: %w", id, err)
	}
	if len(m) == 0 {
		return document.Metadata{}, fmt.Errorf("parent %s: %w", id, db.ErrKeyNotFound)
	}
	return parseMetadata(m), nil
}

// ListParents pages parent records, optionally filtered by type.
func (r *Repo) ListParents(ctx context.Context, typ document.Type, offset, limit int) ([]document.Metadata, int, error) {
	q := &db.ListQuery{IndexName: r.ParentIndexName(), Offset: offset, Limit: limit}
	if typ != "" {
		q.Tags = map[string]string{"type": string(typ)}
	}
	res, err := r.store.SearchList(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list parents: %w", err)
	}
	out := make([]document.Metadata, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, parseMetadata(e.Fields))
	}
	return out, res.Total, nil
}

// Search returns the k chunks closest to vector, best first.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]document.Hit, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.ChildIndexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldDocID, fieldContent, fieldIndex},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", ChildCollection, err)
	}

	hits := make([]document.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		idx, _ := strconv.Atoi(e.Fields[fieldIndex])
		hits = append(hits, document.Hit{
			Chunk: document.Chunk{
				ID:      strings.TrimPrefix(e.Key, r.keyPrefix(ChildCollection)),
				DocID:   e.Fields[fieldDocID],
				Index:   idx,
				Content: e.Fields[fieldContent],
			},
			Score: e.Score,
		})
	}
	return hits, nil
}

func parseMetadata(m map[string]string) document.Metadata {
	return document.Metadata{
		Filename: m["filename"],
		FullName: m["full_name"],
		Name:     m["name"],
		Type:     document.Type(m["type"]),
		Parent:   m["parent"],
		Source:   m["source"],
	}
}
