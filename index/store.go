package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/JxyV/Museum-RAG/database"
)

// Store is the vector collection the indexer writes and the retriever reads.
type Store interface {
	// Replace drops any prior contents of the collection and writes chunks
	// as the new collection body (full-rebuild semantics).
	Replace(ctx context.Context, chunks []Chunk) error
	// Search returns up to k chunks ordered by ascending L2 distance, ties
	// broken by chunk index. An empty or missing collection yields an empty
	// slice, not an error.
	Search(ctx context.Context, embedding []float32, k int) ([]ScoredChunk, error)
	// Drop removes the collection entirely.
	Drop(ctx context.Context) error
}

// PostgresStore keeps one named collection in a pgvector-backed table.
type PostgresStore struct {
	pool       *pgxpool.Pool
	collection string
	dimension  int

	// MaxDistance, when positive, is a relevance ceiling: hits farther than
	// this L2 distance are not returned.
	MaxDistance float64
}

func NewPostgresStore(pool *pgxpool.Pool, collection string, dimension int) *PostgresStore {
	return &PostgresStore{pool: pool, collection: collection, dimension: dimension}
}

func (s *PostgresStore) Replace(ctx context.Context, chunks []Chunk) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if err := database.DropCollection(ctx, s.pool, s.collection); err != nil {
		return err
	}
	if err := database.EnsureCollection(ctx, s.pool, s.collection, s.dimension); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	table, err := database.ChunkTable(s.collection)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source_name, page, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, table)
	for _, chunk := range chunks {
		if _, err := tx.Exec(ctx, stmt,
			chunk.ID, chunk.SourceName, chunk.Page, chunk.ChunkIndex,
			chunk.Text, pgvector.NewVector(chunk.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, embedding []float32, k int) ([]ScoredChunk, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}

	table, err := database.ChunkTable(s.collection)
	if err != nil {
		return nil, err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		if isUndefinedTable(err) {
			return []ScoredChunk{}, nil
		}
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, source_name, page, chunk_index, content,
		       (embedding <-> $1::vector) AS distance
		FROM %s
		ORDER BY embedding <-> $1::vector, chunk_index
		LIMIT $2
	`, table)

	rows, err := conn.Query(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		if isUndefinedTable(err) {
			return []ScoredChunk{}, nil
		}
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]ScoredChunk, 0, k)
	for rows.Next() {
		var (
			item     ScoredChunk
			distance float64
		)
		if err := rows.Scan(&item.Chunk.ID, &item.Chunk.SourceName, &item.Chunk.Page,
			&item.Chunk.ChunkIndex, &item.Chunk.Text, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		if s.MaxDistance > 0 && distance > s.MaxDistance {
			continue
		}
		item.Score = 1 / (1 + distance)
		results = append(results, item)
	}
	if rows.Err() != nil {
		if isUndefinedTable(rows.Err()) {
			return []ScoredChunk{}, nil
		}
		return nil, rows.Err()
	}
	return results, nil
}

func (s *PostgresStore) Drop(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	return database.DropCollection(ctx, s.pool, s.collection)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

var _ Store = (*PostgresStore)(nil)
