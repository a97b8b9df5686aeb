package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpusworks/corpusd/internal/domain"
)

// CollectionRepository handles persistence of collections.
type CollectionRepository struct {
	db dbtx
}

func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{db: pool}
}

func NewCollectionRepositoryWithTx(tx pgx.Tx) *CollectionRepository {
	return &CollectionRepository{db: tx}
}

func (r *CollectionRepository) Create(ctx context.Context, c *domain.Collection) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO collections (id, name, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrCollectionAlreadyExists
	}
	return err
}

func (r *CollectionRepository) GetByID(ctx context.Context, id string) (*domain.Collection, error) {
	return r.get(ctx, `SELECT id, name, created_at FROM collections WHERE id = $1`, id)
}

func (r *CollectionRepository) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	return r.get(ctx, `SELECT id, name, created_at FROM collections WHERE name = $1`, name)
}

func (r *CollectionRepository) get(ctx context.Context, query, arg string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetOrCreate resolves a collection by name, creating it when absent. The
// upsert keeps concurrent ingests into a new collection from racing.
func (r *CollectionRepository) GetOrCreate(ctx context.Context, name string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.QueryRow(ctx,
		`INSERT INTO collections (id, name, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, created_at`,
		uuid.New().String(), name, time.Now().UTC(),
	).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CollectionRepository) List(ctx context.Context) ([]*domain.Collection, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.Collection, 0)
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

// Stats aggregates document and chunk counts for one collection.
func (r *CollectionRepository) Stats(ctx context.Context, name string) (*domain.CollectionStats, error) {
	var stats domain.CollectionStats
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.name,
		       (SELECT COUNT(*) FROM documents d WHERE d.collection_id = c.id),
		       (SELECT COUNT(*) FROM document_chunks dc WHERE dc.collection_id = c.id),
		       (SELECT COUNT(*) FROM document_chunks dc WHERE dc.collection_id = c.id AND dc.embedding IS NOT NULL)
		FROM collections c
		WHERE c.name = $1`,
		name,
	).Scan(&stats.CollectionID, &stats.Name, &stats.DocumentCount, &stats.ChunkCount, &stats.EmbeddedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, err
	}
	return &stats, nil
}

// Delete removes a collection; documents and chunks go with it via cascade.
func (r *CollectionRepository) Delete(ctx context.Context, name string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrCollectionNotFound
	}
	return nil
}
