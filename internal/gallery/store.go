package gallery

import (
	"context"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

// Store persists gallery entries. List returns entries in enrollment order.
type Store interface {
	Append(ctx context.Context, entry *domain.GalleryEntry) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.GalleryEntry, error)
}

// DuplicateFinder is implemented by stores that can look up the closest
// enrolled entry with a different label.
type DuplicateFinder interface {
	FindConflictingLabel(ctx context.Context, label string, embedding []float32, minSimilarity float32) (*domain.GalleryEntry, error)
}
