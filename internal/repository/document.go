package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corpusworks/corpusd/internal/domain"
	"github.com/corpusworks/corpusd/internal/pagination"
)

// DocumentRepository handles persistence of document records.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, collection_id, filename, file_type, content_chars, chunk_count, archive_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.CollectionID, d.Filename, d.FileType, d.ContentChars, d.ChunkCount, nullableString(d.ArchiveKey), d.CreatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	var archiveKey *string
	err := r.db.QueryRow(ctx,
		`SELECT id, collection_id, filename, file_type, content_chars, chunk_count, archive_key, created_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.CollectionID, &d.Filename, &d.FileType, &d.ContentChars, &d.ChunkCount, &archiveKey, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if archiveKey != nil {
		d.ArchiveKey = *archiveKey
	}
	return &d, nil
}

// ListByCollection returns documents for a collection, newest first, keyed by
// an opaque cursor.
func (r *DocumentRepository) ListByCollection(ctx context.Context, collectionID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	limit = pagination.NormalizeLimit(limit)

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, collection_id, filename, file_type, content_chars, chunk_count, archive_key, created_at
		FROM documents
		WHERE collection_id = $1`
	args := []any{collectionID}

	if decoded != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, decoded.Timestamp, decoded.LastID)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*domain.Document, 0, limit)
	for rows.Next() {
		var d domain.Document
		var archiveKey *string
		if err := rows.Scan(&d.ID, &d.CollectionID, &d.Filename, &d.FileType, &d.ContentChars, &d.ChunkCount, &archiveKey, &d.CreatedAt); err != nil {
			return nil, err
		}
		if archiveKey != nil {
			d.ArchiveKey = *archiveKey
		}
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := pagination.NewPage(docs, limit,
		func(d *domain.Document) string { return d.ID },
		func(d *domain.Document) time.Time { return d.CreatedAt },
	)
	return &page, nil
}

// Delete removes a document; its chunks go with it via cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
