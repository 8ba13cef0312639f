package gallery

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []domain.GalleryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry *domain.GalleryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.EnrolledAt.IsZero() {
		entry.EnrolledAt = time.Now().UTC()
	}

	stored := *entry
	stored.Embedding = slices.Clone(entry.Embedding)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, stored)
	return nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.entries, func(e domain.GalleryEntry) bool { return e.ID == id })
	if idx < 0 {
		return domain.ErrEntryNotFound
	}
	s.entries = slices.Delete(s.entries, idx, idx+1)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]domain.GalleryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries), nil
}

var _ Store = (*MemoryStore)(nil)
