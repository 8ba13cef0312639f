package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

// GallerySource provides the entries a frame is matched against.
type GallerySource interface {
	Snapshot() []domain.GalleryEntry
}

// Result is the recognition outcome of one processed frame.
type Result struct {
	Stream      string                   `json:"stream"`
	Width       int                      `json:"width"`
	Height      int                      `json:"height"`
	Faces       []domain.FaceRecognition `json:"faces"`
	ProcessedAt time.Time                `json:"processed_at"`
	Duration    time.Duration            `json:"duration_ns"`
}

// ResultHandler receives results on the worker goroutine and must not block.
type ResultHandler func(Result)

// FrameWorker processes the frames of one stream on a single goroutine.
// It holds at most one pending frame: a newer frame replaces an unprocessed
// one, which is released and counted as dropped.
type FrameWorker struct {
	stream   string
	session  *Session
	gallery  GallerySource
	onResult ResultHandler
	logger   *slog.Logger

	mu      sync.Mutex
	pending *vision.Frame
	stopped bool

	lastMu     sync.RWMutex
	lastResult *Result

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewFrameWorker(stream string, session *Session, gallery GallerySource, onResult ResultHandler, logger *slog.Logger) *FrameWorker {
	return &FrameWorker{
		stream:   stream,
		session:  session,
		gallery:  gallery,
		onResult: onResult,
		logger:   logger.With("component", "frame_worker", "stream", stream),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine. Cancelling ctx stops the loop; a frame
// already being processed still runs to completion.
func (w *FrameWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Debug("frame worker started")
}

// Stop prevents further frames from being processed and waits for the
// goroutine to exit. A pending frame is released unprocessed.
func (w *FrameWorker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		pending := w.pending
		w.pending = nil
		w.mu.Unlock()

		if pending != nil {
			pending.Release()
		}

		close(w.done)
		w.wg.Wait()
		w.logger.Debug("frame worker stopped")
	})
}

// Submit hands a frame to the worker. It never blocks; ownership of frame
// passes to the worker, which releases it exactly once. Returns false if the
// worker is stopped (the frame is released immediately).
func (w *FrameWorker) Submit(frame *vision.Frame) bool {
	stats := w.session.Stats()
	stats.FramesSubmitted.Add(1)

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		frame.Release()
		return false
	}
	stale := w.pending
	w.pending = frame
	w.mu.Unlock()

	if stale != nil {
		stale.Release()
		stats.FramesDropped.Add(1)
	}

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// LastResult returns the most recent result, if any frame has completed.
func (w *FrameWorker) LastResult() (Result, bool) {
	w.lastMu.RLock()
	defer w.lastMu.RUnlock()
	if w.lastResult == nil {
		return Result{}, false
	}
	return *w.lastResult, true
}

func (w *FrameWorker) take() *vision.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	f := w.pending
	w.pending = nil
	return f
}

func (w *FrameWorker) run(ctx context.Context) {
	defer w.wg.Done()

	// in-flight frames are not interrupted by ctx cancellation
	procCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.wake:
			if f := w.take(); f != nil {
				w.process(procCtx, f)
			}
		}
	}
}

func (w *FrameWorker) process(ctx context.Context, frame *vision.Frame) {
	defer frame.Release()

	stats := w.session.Stats()
	start := time.Now()

	result, err := w.recognize(ctx, frame)
	if err != nil {
		stats.FramesFailed.Add(1)
		w.logger.Warn("frame failed", "error", err)
		return
	}

	result.Duration = time.Since(start)
	stats.FramesProcessed.Add(1)

	w.lastMu.Lock()
	w.lastResult = &result
	w.lastMu.Unlock()

	if w.onResult != nil {
		w.onResult(result)
	}
}

func (w *FrameWorker) recognize(ctx context.Context, frame *vision.Frame) (Result, error) {
	img, err := frame.Image()
	if err != nil {
		return Result{}, fmt.Errorf("decode frame: %w", err)
	}
	// Image copied the pixels out, the buffer can go back to its producer
	frame.Release()

	upright, err := vision.Upright(img, frame.Rotation)
	if err != nil {
		return Result{}, fmt.Errorf("rotate frame: %w", err)
	}

	faces, err := w.session.RecognizeImage(ctx, upright, w.gallery.Snapshot())
	if err != nil {
		return Result{}, err
	}

	b := upright.Bounds()
	return Result{
		Stream:      w.stream,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Faces:       faces,
		ProcessedAt: time.Now().UTC(),
	}, nil
}
