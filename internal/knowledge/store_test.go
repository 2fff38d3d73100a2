package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/sysagent/internal/testutil"
)

// fakeQuerier records calls and returns canned data.
type fakeQuerier struct {
	searchCollection string
	searchTopK       int
	searchResults    []Result
	searchErr        error

	inserted  []Document
	insertErr error

	deleted int64
	count   int64

	sources []SourceDocument
}

func (f *fakeQuerier) SearchEmbeddings(_ context.Context, collection string, _ pgvector.Vector, topK int) ([]Result, error) {
	f.searchCollection = collection
	f.searchTopK = topK
	return f.searchResults, f.searchErr
}

func (f *fakeQuerier) InsertEmbedding(_ context.Context, _ string, doc Document, _ pgvector.Vector) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, doc)
	return nil
}

func (f *fakeQuerier) DeleteCollectionEmbeddings(context.Context, string) (int64, error) {
	return f.deleted, nil
}

func (f *fakeQuerier) CountEmbeddings(context.Context, string) (int64, error) {
	return f.count, nil
}

func (f *fakeQuerier) ListSourceDocuments(context.Context) ([]SourceDocument, error) {
	return f.sources, nil
}

func (f *fakeQuerier) CountSourceDocuments(context.Context) (int64, error) {
	return int64(len(f.sources)), nil
}

func newTestEmbedder(t *testing.T) ai.Embedder {
	t.Helper()
	g := testutil.NewGenkit(t)
	return testutil.NewMockEmbedder(8).RegisterEmbedder(g)
}

func TestSearchDefaults(t *testing.T) {
	t.Parallel()

	fake := &fakeQuerier{
		searchResults: []Result{
			{Content: "check top output", Similarity: 0.91},
			{Content: "inspect runaway processes", Similarity: 0.82},
		},
	}
	store := New(fake, newTestEmbedder(t), nil)

	results, err := store.Search(context.Background(), "high cpu usage")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if fake.searchCollection != CollectionName {
		t.Errorf("collection = %q, want %q", fake.searchCollection, CollectionName)
	}
	if fake.searchTopK != DefaultTopK {
		t.Errorf("topK = %d, want %d", fake.searchTopK, DefaultTopK)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not ordered most similar first")
	}
}

func TestSearchWithTopK(t *testing.T) {
	t.Parallel()

	fake := &fakeQuerier{}
	store := New(fake, newTestEmbedder(t), nil)

	if _, err := store.Search(context.Background(), "disk full", WithTopK(7)); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if fake.searchTopK != 7 {
		t.Errorf("topK = %d, want 7", fake.searchTopK)
	}

	// Non-positive override keeps the default.
	if _, err := store.Search(context.Background(), "disk full", WithTopK(0)); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if fake.searchTopK != DefaultTopK {
		t.Errorf("topK = %d, want %d", fake.searchTopK, DefaultTopK)
	}
}

func TestSearchQuerierError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("connection refused")
	store := New(&fakeQuerier{searchErr: sentinel}, newTestEmbedder(t), nil)

	_, err := store.Search(context.Background(), "oom killer")
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want wrapped %v", err, sentinel)
	}
}

func TestSearchEmbedderError(t *testing.T) {
	t.Parallel()

	g := testutil.NewGenkit(t)
	broken := genkit.DefineEmbedder(g, "mock/broken-embedder", &ai.EmbedderOptions{},
		func(context.Context, *ai.EmbedRequest) (*ai.EmbedResponse, error) {
			return nil, fmt.Errorf("model unavailable")
		})

	store := New(&fakeQuerier{}, broken, nil)

	_, err := store.Search(context.Background(), "network latency")
	if err == nil || !strings.Contains(err.Error(), "embedding query") {
		t.Fatalf("error = %v, want embedding failure", err)
	}
}

func TestAdd(t *testing.T) {
	t.Parallel()

	fake := &fakeQuerier{}
	store := New(fake, newTestEmbedder(t), nil)

	docs := []Document{
		{ID: "a", Content: "systemd unit states"},
		{ID: "b", Content: "journalctl usage", Metadata: map[string]any{"source": "man"}},
	}
	if err := store.Add(context.Background(), docs); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(fake.inserted) != 2 {
		t.Fatalf("inserted = %d docs, want 2", len(fake.inserted))
	}
	if fake.inserted[1].ID != "b" {
		t.Errorf("insertion order not preserved: %v", fake.inserted)
	}
}

func TestAddInsertError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("disk full")
	store := New(&fakeQuerier{insertErr: sentinel}, newTestEmbedder(t), nil)

	err := store.Add(context.Background(), []Document{{ID: "x", Content: "c"}})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want wrapped %v", err, sentinel)
	}
}

func TestDeleteCollectionEmbeddings(t *testing.T) {
	t.Parallel()

	store := New(&fakeQuerier{deleted: 42}, newTestEmbedder(t), nil)

	n, err := store.DeleteCollectionEmbeddings(context.Background())
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if n != 42 {
		t.Errorf("removed = %d, want 42", n)
	}
}

func TestCount(t *testing.T) {
	t.Parallel()

	store := New(&fakeQuerier{count: 7}, newTestEmbedder(t), nil)

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if n != 7 {
		t.Errorf("count = %d, want 7", n)
	}
}
