// Package knowledge provides vector search over the troubleshooting
// knowledge base stored in PostgreSQL with pgvector.
package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/sysagent/internal/log"
)

// Querier defines the database operations Store needs. The interface is
// owned by the consumer so tests can substitute an in-memory fake; the pgx
// implementation lives in querier.go.
type Querier interface {
	// SearchEmbeddings returns the topK nearest passages to the query
	// vector in the collection, nearest first.
	SearchEmbeddings(ctx context.Context, collection string, query pgvector.Vector, topK int) ([]Result, error)

	// InsertEmbedding stores one embedded passage in the collection,
	// creating the collection row on first use.
	InsertEmbedding(ctx context.Context, collection string, doc Document, embedding pgvector.Vector) error

	// DeleteCollectionEmbeddings removes every passage in the collection.
	DeleteCollectionEmbeddings(ctx context.Context, collection string) (int64, error)

	// CountEmbeddings reports the number of passages in the collection.
	CountEmbeddings(ctx context.Context, collection string) (int64, error)

	// ListSourceDocuments reads the raw corpus rows used by reembed.
	ListSourceDocuments(ctx context.Context) ([]SourceDocument, error)

	// CountSourceDocuments reports the raw corpus size.
	CountSourceDocuments(ctx context.Context) (int64, error)
}

// Store performs embedding generation and similarity search over one
// collection. Safe for concurrent use.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *log.Logger
}

// New creates a Store. A nil logger discards store logging.
func New(querier Querier, embedder ai.Embedder, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// searchConfig holds resolved search parameters.
type searchConfig struct {
	topK    int
	timeout time.Duration
}

// SearchOption customizes a Search call.
type SearchOption func(*searchConfig)

// WithTopK overrides the number of passages returned.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithTimeout bounds the combined embed plus query time.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Search embeds the query text and returns the nearest passages from the
// knowledge base, most similar first.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := searchConfig{topK: DefaultTopK, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.queries.SearchEmbeddings(ctx, CollectionName, vec, cfg.topK)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge base: %w", err)
	}

	s.logger.Debug("knowledge search complete",
		"query_len", len(query), "top_k", cfg.topK, "results", len(results))
	return results, nil
}

// Add embeds and stores a batch of documents in the knowledge base.
func (s *Store) Add(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		vec, err := s.embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embedding document %s: %w", doc.ID, err)
		}
		if err := s.queries.InsertEmbedding(ctx, CollectionName, doc, vec); err != nil {
			return fmt.Errorf("storing document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// DeleteCollectionEmbeddings clears the knowledge base collection and
// returns the number of rows removed.
func (s *Store) DeleteCollectionEmbeddings(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteCollectionEmbeddings(ctx, CollectionName)
	if err != nil {
		return 0, fmt.Errorf("clearing collection %s: %w", CollectionName, err)
	}
	s.logger.Info("cleared knowledge base collection", "removed", n)
	return n, nil
}

// Count reports the number of passages currently in the knowledge base.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.queries.CountEmbeddings(ctx, CollectionName)
}

// SourceDocuments reads the raw corpus the reembed utility processes.
func (s *Store) SourceDocuments(ctx context.Context) ([]SourceDocument, error) {
	return s.queries.ListSourceDocuments(ctx)
}

// SourceCount reports the raw corpus size.
func (s *Store) SourceCount(ctx context.Context) (int64, error) {
	return s.queries.CountSourceDocuments(ctx)
}

// embed produces the vector for one text through the configured embedder.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("embedder returned no embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
