// Package pgstore implements the PostgreSQL + pgvector storage backend.
// It holds the same chunk data as the local flat index but delegates
// similarity search to the database, so several processes can share one
// corpus.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/corpus"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/log"
)

// Connect creates a connection pool with pgvector types registered on every
// connection, and verifies connectivity before returning.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse database URL: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping database: %w", err)
	}

	return pool, nil
}

// Store reads and writes corpus chunks in the breslov_chunks table.
// It is safe for concurrent use.
type Store struct {
	pool      *pgxpool.Pool
	threshold float64
	logger    log.Logger
}

// New creates a Store. threshold is the minimum cosine similarity a row
// must reach to appear in Search results.
func New(pool *pgxpool.Pool, threshold float64, logger log.Logger) *Store {
	return &Store{pool: pool, threshold: threshold, logger: logger}
}

// AddChunks upserts chunks with their embeddings, keyed by chunk ID, so
// re-ingesting a book replaces its rows instead of duplicating them.
// vectors must be parallel to chunks with no nil entries.
func (s *Store) AddChunks(ctx context.Context, chunks []corpus.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("pgstore: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	const upsert = `
		INSERT INTO breslov_chunks
			(chunk_id, title, ref, chunk_index, total_chunks, hebrew, english, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chunk_id) DO UPDATE SET
			title = EXCLUDED.title,
			ref = EXCLUDED.ref,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			hebrew = EXCLUDED.hebrew,
			english = EXCLUDED.english,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`

	batch := &pgx.Batch{}
	for i, c := range chunks {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("pgstore: missing vector for chunk %q", c.ChunkID)
		}
		meta := c.Metadata()
		batch.Queue(upsert,
			c.ChunkID, c.Title, c.Ref, c.ChunkIndex, c.TotalChunks,
			meta.Hebrew, meta.English, c.Text, pgvector.NewVector(vectors[i]))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("pgstore: upsert chunk: %w", err)
		}
	}

	s.logger.Debug("upserted chunks", "count", len(chunks))
	return nil
}

// Search returns up to k passages by cosine similarity, best first. Rows
// below the similarity threshold are filtered out in the query.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]corpus.Passage, error) {
	if k <= 0 {
		return nil, nil
	}

	const q = `
		SELECT content, title, ref, hebrew, english,
		       1 - (embedding <=> $1) AS similarity
		FROM breslov_chunks
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(query), s.threshold, k)
	if err != nil {
		return nil, fmt.Errorf("pgstore: search: %w", err)
	}
	defer rows.Close()

	var out []corpus.Passage
	for rows.Next() {
		var p corpus.Passage
		var similarity float64
		if err := rows.Scan(&p.Text, &p.Meta.Title, &p.Meta.Ref, &p.Meta.Hebrew, &p.Meta.English, &similarity); err != nil {
			return nil, fmt.Errorf("pgstore: scan search row: %w", err)
		}
		p.Relevance = similarity
		p.Distance = 1 - similarity
		out = append(out, p)
	}
	return out, rows.Err()
}

// ByRef returns every chunk of a reference, ignoring case, in chunk order.
func (s *Store) ByRef(ctx context.Context, ref string) ([]corpus.Passage, error) {
	const q = `
		SELECT content, title, ref, hebrew, english
		FROM breslov_chunks
		WHERE lower(ref) = lower($1)
		ORDER BY chunk_index`

	rows, err := s.pool.Query(ctx, q, ref)
	if err != nil {
		return nil, fmt.Errorf("pgstore: lookup ref %q: %w", ref, err)
	}
	defer rows.Close()

	var out []corpus.Passage
	for rows.Next() {
		var p corpus.Passage
		if err := rows.Scan(&p.Text, &p.Meta.Title, &p.Meta.Ref, &p.Meta.Hebrew, &p.Meta.English); err != nil {
			return nil, fmt.Errorf("pgstore: scan ref row: %w", err)
		}
		p.Relevance = 1
		out = append(out, p)
	}
	return out, rows.Err()
}

// Clear deletes every chunk.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM breslov_chunks`); err != nil {
		return fmt.Errorf("pgstore: clear: %w", err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM breslov_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: count: %w", err)
	}
	return n, nil
}
