package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/gallery"
)

// GalleryRepository stores enrolled entries in Postgres. The embedding is kept
// in its raw float32 byte form in features; the pgvector column mirrors it for
// similarity lookups at enrollment time.
type GalleryRepository struct {
	pool PgxPool
}

func NewGalleryRepository(pool PgxPool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

func (r *GalleryRepository) Append(ctx context.Context, entry *domain.GalleryEntry) error {
	query := `
		INSERT INTO gallery_entries (id, label, features, embedding, image_path, bbox_left, bbox_top, bbox_right, bbox_bottom, enrolled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING enrolled_at
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.EnrolledAt.IsZero() {
		entry.EnrolledAt = time.Now().UTC()
	}

	var embedding *pgvector.Vector
	if len(entry.Embedding) > 0 {
		vec := pgvector.NewVector(entry.Embedding)
		embedding = &vec
	}

	err := r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.Label,
		domain.EncodeEmbedding(entry.Embedding),
		embedding,
		entry.ImagePath,
		entry.Box.Left,
		entry.Box.Top,
		entry.Box.Right,
		entry.Box.Bottom,
		entry.EnrolledAt,
	).Scan(&entry.EnrolledAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrValidationFailed.WithError(fmt.Errorf("entry %s already exists", entry.ID))
		}
		return wrapQueryError("append gallery entry", err)
	}

	return nil
}

func (r *GalleryRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM gallery_entries WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return wrapQueryError("delete gallery entry", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}

	return nil
}

func (r *GalleryRepository) List(ctx context.Context) ([]domain.GalleryEntry, error) {
	query := `
		SELECT id, label, features, image_path, bbox_left, bbox_top, bbox_right, bbox_bottom, enrolled_at
		FROM gallery_entries
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapQueryError("list gallery entries", err)
	}
	defer rows.Close()

	entries := make([]domain.GalleryEntry, 0)
	for rows.Next() {
		var (
			e        domain.GalleryEntry
			features []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.Label,
			&features,
			&e.ImagePath,
			&e.Box.Left,
			&e.Box.Top,
			&e.Box.Right,
			&e.Box.Bottom,
			&e.EnrolledAt,
		); err != nil {
			return nil, fmt.Errorf("scan gallery entry: %w", err)
		}

		e.Embedding, err = domain.DecodeEmbedding(features)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery entries: %w", err)
	}

	return entries, nil
}

// FindConflictingLabel returns the nearest entry enrolled under a different
// label whose cosine similarity to embedding is at least minSimilarity, or nil.
func (r *GalleryRepository) FindConflictingLabel(ctx context.Context, label string, embedding []float32, minSimilarity float32) (*domain.GalleryEntry, error) {
	query := `
		SELECT id, label, features, image_path, bbox_left, bbox_top, bbox_right, bbox_bottom, enrolled_at,
		       1 - (embedding <=> $1) AS similarity
		FROM gallery_entries
		WHERE label <> $2 AND embedding IS NOT NULL AND vector_dims(embedding) = $3
		ORDER BY embedding <=> $1
		LIMIT 1
	`

	var (
		e          domain.GalleryEntry
		features   []byte
		similarity float64
	)
	err := r.pool.QueryRow(ctx, query, pgvector.NewVector(embedding), label, len(embedding)).Scan(
		&e.ID,
		&e.Label,
		&features,
		&e.ImagePath,
		&e.Box.Left,
		&e.Box.Top,
		&e.Box.Right,
		&e.Box.Bottom,
		&e.EnrolledAt,
		&similarity,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapQueryError("find conflicting label", err)
	}

	if float32(similarity) < minSimilarity {
		return nil, nil
	}

	e.Embedding, err = domain.DecodeEmbedding(features)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	return &e, nil
}

var (
	_ gallery.Store           = (*GalleryRepository)(nil)
	_ gallery.DuplicateFinder = (*GalleryRepository)(nil)
)
