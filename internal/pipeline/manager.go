package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

var streamNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Manager lazily creates one FrameWorker per stream.
type Manager struct {
	ctx      context.Context
	session  *Session
	gallery  GallerySource
	onResult ResultHandler
	logger   *slog.Logger

	mu      sync.Mutex
	workers map[string]*FrameWorker
	closed  bool
}

// NewManager creates a manager whose workers live until ctx is cancelled or
// Shutdown is called.
func NewManager(ctx context.Context, session *Session, gallery GallerySource, onResult ResultHandler, logger *slog.Logger) *Manager {
	return &Manager{
		ctx:      ctx,
		session:  session,
		gallery:  gallery,
		onResult: onResult,
		logger:   logger,
		workers:  make(map[string]*FrameWorker),
	}
}

// ValidateStream checks a stream name.
func ValidateStream(stream string) error {
	if !streamNamePattern.MatchString(stream) {
		return domain.ErrValidationFailed.WithError(
			fmt.Errorf("stream name must match %s", streamNamePattern.String()))
	}
	return nil
}

// Submit routes a frame to its stream's worker, starting one if needed.
// The frame is always released, whether it is processed or not.
func (m *Manager) Submit(stream string, frame *vision.Frame) error {
	if err := ValidateStream(stream); err != nil {
		frame.Release()
		return err
	}
	if !m.session.Ready() {
		frame.Release()
		return domain.ErrSessionNotReady
	}

	w, err := m.worker(stream)
	if err != nil {
		frame.Release()
		return err
	}
	if !w.Submit(frame) {
		return domain.ErrSessionNotReady.WithError(fmt.Errorf("stream %s is stopping", stream))
	}
	return nil
}

func (m *Manager) worker(stream string) (*FrameWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrSessionNotReady.WithError(fmt.Errorf("manager is shut down"))
	}
	if w, ok := m.workers[stream]; ok {
		return w, nil
	}

	w := NewFrameWorker(stream, m.session, m.gallery, m.onResult, m.logger)
	w.Start(m.ctx)
	m.workers[stream] = w
	m.logger.Info("stream opened", "stream", stream)
	return w, nil
}

// Last returns the latest result of a stream.
func (m *Manager) Last(stream string) (Result, bool, error) {
	m.mu.Lock()
	w, ok := m.workers[stream]
	m.mu.Unlock()

	if !ok {
		return Result{}, false, domain.ErrStreamNotFound
	}
	r, has := w.LastResult()
	return r, has, nil
}

// Close stops a stream's worker and forgets it.
func (m *Manager) Close(stream string) error {
	m.mu.Lock()
	w, ok := m.workers[stream]
	delete(m.workers, stream)
	m.mu.Unlock()

	if !ok {
		return domain.ErrStreamNotFound
	}
	w.Stop()
	m.logger.Info("stream closed", "stream", stream)
	return nil
}

// Streams lists the active stream names in sorted order.
func (m *Manager) Streams() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.workers))
	for name := range m.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown stops every worker. Submit fails afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	workers := m.workers
	m.workers = make(map[string]*FrameWorker)
	m.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
}
