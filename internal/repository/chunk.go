package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/service"
)

// ChunkRepository handles persistence and retrieval of document chunks. It
// backs both search branches: vector similarity over the pgvector column and
// keyword relevance over the generated tsvector.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// InsertChunks inserts chunk rows. A nil embedding is stored as NULL and
// later completed by the backfill worker.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []*domain.StoredChunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var embedding any
		if c.Embedding != nil {
			embedding = pgvector.NewVector(c.Embedding)
		}

		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, collection_id, chunk_index, content, start_char, end_char, page_number, filename, file_type, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			c.ID,
			c.DocumentID,
			c.CollectionID,
			c.ChunkIndex,
			c.Text,
			c.StartChar,
			c.EndChar,
			c.PageNumber,
			c.Filename,
			c.FileType,
			embedding,
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SearchVector ranks chunks by cosine similarity to the query embedding.
// Chunks without embeddings are invisible to this branch.
func (r *ChunkRepository) SearchVector(ctx context.Context, embedding []float32, filters domain.SearchFilters, limit int) ([]*service.ChunkHit, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT document_id, chunk_index, content, start_char, end_char, page_number, filename, file_type, created_at,
		       1.0 / (1.0 + (embedding <=> $1)) AS score
		FROM document_chunks
		WHERE embedding IS NOT NULL`
	args := []any{pgvector.NewVector(embedding)}

	query, args = applyFilters(query, args, filters)
	query += ` ORDER BY score DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	return r.queryHits(ctx, query, args)
}

// SearchKeyword ranks chunks by full-text relevance using websearch syntax.
func (r *ChunkRepository) SearchKeyword(ctx context.Context, q string, filters domain.SearchFilters, limit int) ([]*service.ChunkHit, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT document_id, chunk_index, content, start_char, end_char, page_number, filename, file_type, created_at,
		       ts_rank(text_search, websearch_to_tsquery('english', $1)) AS score
		FROM document_chunks
		WHERE text_search @@ websearch_to_tsquery('english', $1)`
	args := []any{q}

	query, args = applyFilters(query, args, filters)
	query += ` ORDER BY score DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	return r.queryHits(ctx, query, args)
}

func applyFilters(query string, args []any, filters domain.SearchFilters) (string, []any) {
	if filters.CollectionID != "" {
		args = append(args, filters.CollectionID)
		query += ` AND collection_id = $` + strconv.Itoa(len(args))
	}
	if filters.DocumentID != "" {
		args = append(args, filters.DocumentID)
		query += ` AND document_id = $` + strconv.Itoa(len(args))
	}
	if filters.FileType != "" {
		args = append(args, filters.FileType)
		query += ` AND file_type = $` + strconv.Itoa(len(args))
	}
	return query, args
}

func (r *ChunkRepository) queryHits(ctx context.Context, query string, args []any) ([]*service.ChunkHit, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]*service.ChunkHit, 0)
	for rows.Next() {
		var h service.ChunkHit
		if err := rows.Scan(&h.DocumentID, &h.ChunkIndex, &h.Text, &h.StartChar, &h.EndChar, &h.PageNumber, &h.Filename, &h.FileType, &h.CreatedAt, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, &h)
	}
	return hits, rows.Err()
}

// ListByDocument returns a document's chunks in index order. Embeddings are
// not loaded; callers re-embed from content when they need vectors.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.StoredChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, collection_id, chunk_index, content, start_char, end_char, page_number, filename, file_type, created_at
		 FROM document_chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStoredChunks(rows)
}

// ListMissingEmbeddings returns chunks still waiting for an embedding,
// oldest first, up to limit.
func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.StoredChunk, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, collection_id, chunk_index, content, start_char, end_char, page_number, filename, file_type, created_at
		 FROM document_chunks
		 WHERE embedding IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStoredChunks(rows)
}

func scanStoredChunks(rows pgx.Rows) ([]*domain.StoredChunk, error) {
	chunks := make([]*domain.StoredChunk, 0)
	for rows.Next() {
		var c domain.StoredChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.CollectionID, &c.ChunkIndex, &c.Text, &c.StartChar, &c.EndChar, &c.PageNumber, &c.Filename, &c.FileType, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// UpdateEmbedding sets the embedding on a single chunk.
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// DeleteByDocument removes all chunks for a document and reports how many
// rows went away.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
