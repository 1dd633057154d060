package chunk

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/aerolab/internal/db"
	"github.com/kailas-cloud/aerolab/internal/db/sqlite"
	"github.com/kailas-cloud/aerolab/internal/domain/document"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "aerolab.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	r := New(s, "aerolab:")
	require.NoError(t, r.EnsureIndex(context.Background(), 2))
	return r
}

func TestEnsureIndex_Idempotent(t *testing.T) {
	r := newTestRepo(t)
	require.NoError(t, r.EnsureIndex(context.Background(), 2))
	assert.Equal(t, "aerolab_child_chunks", r.ChildIndexName())
	assert.Equal(t, "aerolab_parent_docs", r.ParentIndexName())
}

func TestUpsertAndSearch(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, []document.Chunk{
		{ID: "c1", DocID: "d1", Index: 0, Content: "lift", Vector: []float32{1, 0}},
		{ID: "c2", DocID: "d1", Index: 1, Content: "drag", Vector: []float32{1, 1}},
		{ID: "c3", DocID: "d2", Index: 0, Content: "moment", Vector: []float32{0, 1}},
	}))

	hits, err := r.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Equal(t, "d1", hits[0].Chunk.DocID)
	assert.Equal(t, "lift", hits[0].Chunk.Content)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "c2", hits[1].Chunk.ID)
	assert.Equal(t, 1, hits[1].Chunk.Index)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestUpsert_Validation(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, nil))
	err := r.Upsert(ctx, []document.Chunk{{ID: "c1", DocID: "d1", Content: "x"}})
	assert.ErrorContains(t, err, "has no vector")
}

func TestParentRecords(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"Airplane.txt", "Airplane.draw.txt", "Wing.txt"} {
		meta := document.ParseFilename(name)
		meta.Source = "clean_docs/" + name
		doc, err := document.New("id-"+meta.FullName[:4]+"-"+meta.Name, "text of "+name, meta)
		require.NoError(t, err)
		require.NoError(t, r.RecordParent(ctx, doc))
	}

	got, err := r.Parent(ctx, "id-Airp-draw")
	require.NoError(t, err)
	assert.Equal(t, document.TypeMethod, got.Type)
	assert.Equal(t, "Airplane", got.Parent)
	assert.Equal(t, "clean_docs/Airplane.draw.txt", got.Source)

	classes, total, err := r.ListParents(ctx, document.TypeClass, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, classes, 2)

	_, total, err = r.ListParents(ctx, "", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	_, err = r.Parent(ctx, "missing")
	assert.True(t, errors.Is(err, db.ErrKeyNotFound))
}
