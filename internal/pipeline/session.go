package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/matcher"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/provider"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

// Session owns one embedder and one detector for its whole lifetime. The
// model spec is derived once in Initialize and is read-only afterwards.
type Session struct {
	embedder provider.Embedder
	detector provider.Detector
	matcher  *matcher.Matcher
	norm     vision.Normalization
	logger   *slog.Logger
	stats    *Stats

	mu       sync.RWMutex
	spec     vision.ModelSpec
	ready    bool
	shutdown bool

	closeOnce sync.Once
	closeErr  error
}

func NewSession(
	embedder provider.Embedder,
	detector provider.Detector,
	m *matcher.Matcher,
	norm vision.Normalization,
	logger *slog.Logger,
) *Session {
	return &Session{
		embedder: embedder,
		detector: detector,
		matcher:  m,
		norm:     norm,
		logger:   logger.With("component", "session"),
		stats:    &Stats{},
	}
}

// Initialize reads the model's declared shapes and derives the tensor layout.
// An ErrModelShape result is fatal: the session stays unusable.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return domain.ErrSessionNotReady.WithError(errors.New("session is shut down"))
	}
	if s.ready {
		return nil
	}

	info, err := s.embedder.ModelInfo(ctx)
	if err != nil {
		return fmt.Errorf("read model info: %w", err)
	}

	spec, err := vision.Introspect(info)
	if err != nil {
		s.logger.Error("model rejected",
			"input_shape", info.InputShape,
			"input_type", info.InputType,
			"output_shape", info.OutputShape,
			"error", err,
		)
		return err
	}

	s.spec = spec
	s.ready = true
	s.logger.Info("session initialized",
		"layout", spec.Input.Order.String(),
		"height", spec.Input.Height,
		"width", spec.Input.Width,
		"channels", spec.Input.Channels,
		"embedding_dim", spec.EmbeddingDim,
		"threshold", s.matcher.Threshold(),
	)
	return nil
}

// Shutdown closes the embedder and detector exactly once.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	s.ready = false
	s.shutdown = true
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(s.embedder.Close(), s.detector.Close())
		s.logger.Info("session shut down")
	})
	return s.closeErr
}

func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Spec returns the derived model spec and whether the session is ready.
func (s *Session) Spec() (vision.ModelSpec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spec, s.ready
}

func (s *Session) Stats() *Stats {
	return s.stats
}

func (s *Session) Threshold() float32 {
	return s.matcher.Threshold()
}

func (s *Session) readySpec() (vision.ModelSpec, error) {
	spec, ok := s.Spec()
	if !ok {
		return vision.ModelSpec{}, domain.ErrSessionNotReady
	}
	return spec, nil
}

// Detect finds faces in an upright image.
func (s *Session) Detect(ctx context.Context, img image.Image) ([]domain.BoundingBox, error) {
	if _, err := s.readySpec(); err != nil {
		return nil, err
	}

	boxes, err := s.detector.Detect(ctx, img, 0)
	if err != nil {
		return nil, err
	}
	s.stats.FacesDetected.Add(uint64(len(boxes)))
	return boxes, nil
}

// EmbedFace crops box out of img and returns its L2-normalized embedding.
func (s *Session) EmbedFace(ctx context.Context, img image.Image, box domain.BoundingBox) ([]float32, error) {
	spec, err := s.readySpec()
	if err != nil {
		return nil, err
	}
	return s.embedFace(ctx, spec, img, box)
}

func (s *Session) embedFace(ctx context.Context, spec vision.ModelSpec, img image.Image, box domain.BoundingBox) ([]float32, error) {
	crop := vision.CropFace(img, box, spec.Input.Height, spec.Input.Width)

	tensor, err := vision.Preprocess(crop, s.norm, spec.Input)
	if err != nil {
		return nil, err
	}

	raw, err := s.embedder.Embed(ctx, tensor)
	if err != nil {
		if !errors.Is(err, domain.ErrInference) {
			err = domain.ErrInference.WithError(err)
		}
		return nil, err
	}

	return vision.L2Normalize(raw), nil
}

// Recognize embeds every box and matches it against entries. Results keep
// detector order. A face that fails preprocessing is skipped; one that fails
// inference is reported as Unknown. Neither aborts the remaining faces.
func (s *Session) Recognize(ctx context.Context, img image.Image, boxes []domain.BoundingBox, entries []domain.GalleryEntry) ([]domain.FaceRecognition, error) {
	spec, err := s.readySpec()
	if err != nil {
		return nil, err
	}

	results := make([]domain.FaceRecognition, 0, len(boxes))
	for i, box := range boxes {
		embedding, err := s.embedFace(ctx, spec, img, box)
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			s.stats.FacesSkipped.Add(1)
			s.logger.Debug("face skipped", "index", i, "error", err)
			continue
		case err != nil:
			s.stats.InferenceErrors.Add(1)
			s.stats.FacesUnknown.Add(1)
			s.logger.Warn("face inference failed", "index", i, "error", err)
			results = append(results, domain.FaceRecognition{Box: box, Result: domain.Unknown()})
			continue
		}

		result := s.matcher.Match(embedding, entries)
		if result.Matched {
			s.stats.FacesMatched.Add(1)
		} else {
			s.stats.FacesUnknown.Add(1)
		}
		results = append(results, domain.FaceRecognition{Box: box, Result: result})
	}

	return results, nil
}

// RecognizeImage runs detection and recognition over one upright image.
func (s *Session) RecognizeImage(ctx context.Context, img image.Image, entries []domain.GalleryEntry) ([]domain.FaceRecognition, error) {
	boxes, err := s.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	return s.Recognize(ctx, img, boxes, entries)
}
