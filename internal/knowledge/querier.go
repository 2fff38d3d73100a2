package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DB is the subset of pgxpool.Pool the querier uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgxQuerier implements Querier against the langchain PGVector layout:
// langchain_pg_collection groups passages, langchain_pg_embedding holds the
// vectors. Neither table is owned by this program; no schema is created
// beyond the collection row itself.
type PgxQuerier struct {
	db DB

	mu          sync.Mutex
	collections map[string]string // name -> uuid
}

// NewPgxQuerier wraps a pgx pool (or compatible handle).
func NewPgxQuerier(db DB) *PgxQuerier {
	return &PgxQuerier{db: db, collections: make(map[string]string)}
}

func (q *PgxQuerier) SearchEmbeddings(ctx context.Context, collection string, query pgvector.Vector, topK int) ([]Result, error) {
	const sql = `
		SELECT e.document, e.cmetadata, 1 - (e.embedding <=> $1) AS similarity
		FROM langchain_pg_embedding e
		JOIN langchain_pg_collection c ON c.uuid = e.collection_id
		WHERE c.name = $2
		ORDER BY e.embedding <=> $1
		LIMIT $3`

	rows, err := q.db.Query(ctx, sql, query, collection, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r    Result
			meta []byte
		)
		if err := rows.Scan(&r.Content, &meta, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("decoding passage metadata: %w", err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (q *PgxQuerier) InsertEmbedding(ctx context.Context, collection string, doc Document, embedding pgvector.Vector) error {
	collectionID, err := q.collectionID(ctx, collection)
	if err != nil {
		return err
	}

	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encoding passage metadata: %w", err)
	}

	const sql = `
		INSERT INTO langchain_pg_embedding (id, collection_id, embedding, document, cmetadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    document = EXCLUDED.document,
		    cmetadata = EXCLUDED.cmetadata`

	if _, err := q.db.Exec(ctx, sql, id, collectionID, embedding, doc.Content, meta); err != nil {
		return fmt.Errorf("inserting embedding: %w", err)
	}
	return nil
}

func (q *PgxQuerier) DeleteCollectionEmbeddings(ctx context.Context, collection string) (int64, error) {
	const sql = `
		DELETE FROM langchain_pg_embedding
		WHERE collection_id IN (SELECT uuid FROM langchain_pg_collection WHERE name = $1)`

	tag, err := q.db.Exec(ctx, sql, collection)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *PgxQuerier) CountEmbeddings(ctx context.Context, collection string) (int64, error) {
	const sql = `
		SELECT COUNT(*)
		FROM langchain_pg_embedding e
		JOIN langchain_pg_collection c ON c.uuid = e.collection_id
		WHERE c.name = $1`

	var n int64
	if err := q.db.QueryRow(ctx, sql, collection).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (q *PgxQuerier) ListSourceDocuments(ctx context.Context) ([]SourceDocument, error) {
	rows, err := q.db.Query(ctx, `SELECT id, text, metadata_ FROM data_vectors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("reading source corpus: %w", err)
	}
	defer rows.Close()

	var docs []SourceDocument
	for rows.Next() {
		var (
			d    SourceDocument
			meta []byte
		)
		if err := rows.Scan(&d.ID, &d.Text, &meta); err != nil {
			return nil, fmt.Errorf("scanning source row: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &d.Metadata); err != nil {
				return nil, fmt.Errorf("decoding source metadata: %w", err)
			}
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (q *PgxQuerier) CountSourceDocuments(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM data_vectors`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// collectionID resolves (and memoizes) the collection's UUID, creating the
// collection row on first use so reembed works against an empty database.
func (q *PgxQuerier) collectionID(ctx context.Context, name string) (string, error) {
	q.mu.Lock()
	if id, ok := q.collections[name]; ok {
		q.mu.Unlock()
		return id, nil
	}
	q.mu.Unlock()

	const ensure = `
		INSERT INTO langchain_pg_collection (uuid, name, cmetadata)
		VALUES (gen_random_uuid(), $1, '{}')
		ON CONFLICT (name) DO NOTHING`
	if _, err := q.db.Exec(ctx, ensure, name); err != nil {
		return "", fmt.Errorf("ensuring collection %s: %w", name, err)
	}

	var id string
	err := q.db.QueryRow(ctx, `SELECT uuid FROM langchain_pg_collection WHERE name = $1`, name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("resolving collection %s: %w", name, err)
	}

	q.mu.Lock()
	q.collections[name] = id
	q.mu.Unlock()
	return id, nil
}
