package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

// Service fronts a Store and publishes an immutable snapshot of its entries.
// Readers get a consistent slice for a whole matching pass while writers swap
// in a freshly loaded one after every mutation.
type Service struct {
	store    Store
	logger   *slog.Logger
	snapshot atomic.Pointer[[]domain.GalleryEntry]
	writeMu  sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func([]domain.GalleryEntry)
}

func NewService(store Store, logger *slog.Logger) *Service {
	s := &Service{
		store:  store,
		logger: logger.With("component", "gallery"),
	}
	empty := []domain.GalleryEntry{}
	s.snapshot.Store(&empty)
	return s
}

// Load reads the store and publishes the first snapshot.
func (s *Service) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.refresh(ctx)
}

// Snapshot returns the current entries. Callers must not modify the slice.
func (s *Service) Snapshot() []domain.GalleryEntry {
	return *s.snapshot.Load()
}

// Observe registers fn to be called with every newly published snapshot.
func (s *Service) Observe(fn func([]domain.GalleryEntry)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) Append(ctx context.Context, entry *domain.GalleryEntry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append %q: %w", entry.Label, err)
	}
	s.logger.Info("entry enrolled",
		slog.String("entry_id", entry.ID.String()),
		slog.String("label", entry.Label),
		slog.Int("dim", len(entry.Embedding)),
	)
	return s.refresh(ctx)
}

func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	s.logger.Info("entry deleted", slog.String("entry_id", id.String()))
	return s.refresh(ctx)
}

// List returns the live snapshot.
func (s *Service) List(_ context.Context) ([]domain.GalleryEntry, error) {
	return s.Snapshot(), nil
}

// FindConflictingLabel delegates to the store when it supports duplicate
// lookups and falls back to a scan of the snapshot otherwise.
func (s *Service) FindConflictingLabel(ctx context.Context, label string, embedding []float32, minSimilarity float32) (*domain.GalleryEntry, error) {
	if finder, ok := s.store.(DuplicateFinder); ok {
		return finder.FindConflictingLabel(ctx, label, embedding, minSimilarity)
	}

	var (
		best      *domain.GalleryEntry
		bestScore float32
	)
	snapshot := s.Snapshot()
	for i := range snapshot {
		e := &snapshot[i]
		if e.Label == label || len(e.Embedding) != len(embedding) {
			continue
		}
		var dot float32
		for j := range embedding {
			dot += embedding[j] * e.Embedding[j]
		}
		if dot >= minSimilarity && (best == nil || dot > bestScore) {
			best, bestScore = e, dot
		}
	}
	if best == nil {
		return nil, nil
	}
	found := *best
	return &found, nil
}

func (s *Service) refresh(ctx context.Context) error {
	entries, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("reload gallery: %w", err)
	}
	if entries == nil {
		entries = []domain.GalleryEntry{}
	}
	s.snapshot.Store(&entries)

	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(entries)
	}
	return nil
}
