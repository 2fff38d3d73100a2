package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/sysagent/internal/testutil"
)

// TestStoreRoundTrip exercises the pgx querier against a real pgvector
// database: insert, search ordering, count, delete. Requires Docker; run
// with RUN_DB_TESTS=1.
func TestStoreRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)

	g := testutil.NewGenkit(t)
	mock := testutil.NewMockEmbedder(testutil.VectorDim())

	// Orthogonal base vectors give exact control over similarity: the
	// query matches "cpu" exactly and "memory" not at all.
	cpuVec := make([]float32, testutil.VectorDim())
	memVec := make([]float32, testutil.VectorDim())
	cpuVec[0] = 1
	memVec[1] = 1
	mock.SetVector("high cpu load troubleshooting", cpuVec)
	mock.SetVector("memory pressure and the oom killer", memVec)
	mock.SetVector("why is my cpu busy", cpuVec)

	store := New(NewPgxQuerier(db.Pool), mock.RegisterEmbedder(g), testutil.DiscardLogger())
	ctx := context.Background()

	docs := []Document{
		{ID: "doc-cpu", Content: "high cpu load troubleshooting", Metadata: map[string]any{"source": "runbook.md"}},
		{ID: "doc-mem", Content: "memory pressure and the oom killer"},
	}
	require.NoError(t, store.Add(ctx, docs))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	results, err := store.Search(ctx, "why is my cpu busy", WithTopK(2))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "high cpu load troubleshooting", results[0].Content, "cpu passage must rank first")
	assert.InDelta(t, 1.0, results[0].Similarity, 0.01, "exact-match similarity")
	assert.InDelta(t, 0.0, results[1].Similarity, 0.05, "orthogonal similarity")
	assert.Equal(t, "runbook.md", results[0].Metadata["source"])

	removed, err := store.DeleteCollectionEmbeddings(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

// TestSourceDocuments reads the reembed corpus table.
func TestSourceDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO data_vectors (text, metadata_) VALUES
		 ('passage one', '{"file_name": "a.md"}'),
		 ('passage two', NULL)`)
	require.NoError(t, err, "seeding corpus")

	q := NewPgxQuerier(db.Pool)
	docs, err := q.ListSourceDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "passage one", docs[0].Text)
	assert.Equal(t, "a.md", docs[0].Metadata["file_name"])
	assert.Nil(t, docs[1].Metadata)

	n, err := q.CountSourceDocuments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
