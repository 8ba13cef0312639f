package service

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/audit"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/storage"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/ws"
)

const maxLabelLength = 128

// FaceSession is the part of the pipeline session used for still images.
type FaceSession interface {
	Detect(ctx context.Context, img image.Image) ([]domain.BoundingBox, error)
	EmbedFace(ctx context.Context, img image.Image, box domain.BoundingBox) ([]float32, error)
	RecognizeImage(ctx context.Context, img image.Image, entries []domain.GalleryEntry) ([]domain.FaceRecognition, error)
}

type GalleryInterface interface {
	Snapshot() []domain.GalleryEntry
	Append(ctx context.Context, entry *domain.GalleryEntry) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]domain.GalleryEntry, error)
	FindConflictingLabel(ctx context.Context, label string, embedding []float32, minSimilarity float32) (*domain.GalleryEntry, error)
}

// Notifier pushes gallery changes to live viewers and webhooks.
type Notifier interface {
	BroadcastAll(eventType ws.EventType, data interface{})
}

// EnrollRequest is one enrollment. Rotation is clockwise degrees needed to
// bring the image upright.
type EnrollRequest struct {
	Label    string
	Image    []byte
	Rotation int
}

type RecognitionService struct {
	session            FaceSession
	gallery            GalleryInterface
	images             storage.ImageStore
	auditLogger        audit.Logger
	notifiers          []Notifier
	logger             *slog.Logger
	duplicateThreshold float32
}

type Option func(*RecognitionService)

func WithAuditLogger(l audit.Logger) Option {
	return func(s *RecognitionService) { s.auditLogger = l }
}

// WithNotifier adds a receiver for gallery events. It may be given more than once.
func WithNotifier(n Notifier) Option {
	return func(s *RecognitionService) { s.notifiers = append(s.notifiers, n) }
}

// WithDuplicateThreshold rejects enrollments whose face already matches a
// different label at or above threshold. Zero disables the check.
func WithDuplicateThreshold(threshold float32) Option {
	return func(s *RecognitionService) { s.duplicateThreshold = threshold }
}

func NewRecognitionService(
	session FaceSession,
	gallery GalleryInterface,
	images storage.ImageStore,
	logger *slog.Logger,
	opts ...Option,
) *RecognitionService {
	s := &RecognitionService{
		session:     session,
		gallery:     gallery,
		images:      images,
		auditLogger: &audit.NoOpLogger{},
		logger:      logger.With("component", "recognition_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enroll adds the first face found in the image to the gallery under label.
func (s *RecognitionService) Enroll(ctx context.Context, req EnrollRequest) (*domain.GalleryEntry, error) {
	label, err := validateLabel(req.Label)
	if err != nil {
		return nil, err
	}

	entry, err := s.enroll(ctx, label, req)
	if err != nil {
		s.logAudit(ctx, audit.Event{
			EventType: audit.EventEntryEnrolled,
			Label:     label,
			Error:     err.Error(),
		})
		return nil, err
	}

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventEntryEnrolled,
		EntryID:   entry.ID.String(),
		Label:     entry.Label,
		Success:   true,
	})
	s.notify(ws.EventEntryEnrolled, entry)
	return entry, nil
}

func (s *RecognitionService) enroll(ctx context.Context, label string, req EnrollRequest) (*domain.GalleryEntry, error) {
	img, format, err := decodeUpright(req.Image, req.Rotation)
	if err != nil {
		return nil, err
	}

	boxes, err := s.session.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	if len(boxes) == 0 {
		return nil, domain.ErrNoFaceDetected
	}
	box := boxes[0]

	embedding, err := s.session.EmbedFace(ctx, img, box)
	if err != nil {
		return nil, fmt.Errorf("embed face: %w", err)
	}

	if s.duplicateThreshold > 0 {
		conflict, err := s.gallery.FindConflictingLabel(ctx, label, embedding, s.duplicateThreshold)
		if err != nil {
			return nil, fmt.Errorf("check duplicates: %w", err)
		}
		if conflict != nil {
			return nil, domain.ErrDuplicateIdentity.WithError(
				fmt.Errorf("face matches entry %s (%q)", conflict.ID, conflict.Label))
		}
	}

	path, err := s.images.Save(ctx, req.Image, format)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	entry := &domain.GalleryEntry{
		ID:        uuid.New(),
		Label:     label,
		Embedding: embedding,
		ImagePath: path,
		Box:       box,
	}
	if err := s.gallery.Append(ctx, entry); err != nil {
		if rmErr := s.images.Remove(ctx, path); rmErr != nil {
			s.logger.Warn("failed to remove orphaned image", "path", path, "error", rmErr)
		}
		return nil, err
	}

	s.logger.Info("entry enrolled",
		"entry_id", entry.ID,
		"label", entry.Label,
		"faces_detected", len(boxes),
	)
	return entry, nil
}

// Recognize detects every face in the image and matches each against the
// current gallery snapshot.
func (s *RecognitionService) Recognize(ctx context.Context, data []byte, rotation int) ([]domain.FaceRecognition, error) {
	img, _, err := decodeUpright(data, rotation)
	if err != nil {
		return nil, err
	}

	results, err := s.session.RecognizeImage(ctx, img, s.gallery.Snapshot())
	if err != nil {
		return nil, err
	}

	matched := 0
	for _, r := range results {
		if r.Result.Matched {
			matched++
		}
	}
	s.logAudit(ctx, audit.Event{
		EventType: audit.EventFacesRecognized,
		Success:   true,
		Metadata: map[string]string{
			"faces":   strconv.Itoa(len(results)),
			"matched": strconv.Itoa(matched),
		},
	})
	return results, nil
}

// List returns the gallery newest first.
func (s *RecognitionService) List(ctx context.Context) ([]domain.GalleryEntry, error) {
	entries, err := s.gallery.List(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(entries)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b domain.GalleryEntry) int {
		return b.EnrolledAt.Compare(a.EnrolledAt)
	})
	return out, nil
}

// Delete removes an entry and its captured image.
func (s *RecognitionService) Delete(ctx context.Context, id uuid.UUID) error {
	var imagePath, label string
	for _, e := range s.gallery.Snapshot() {
		if e.ID == id {
			imagePath, label = e.ImagePath, e.Label
			break
		}
	}

	if err := s.gallery.DeleteByID(ctx, id); err != nil {
		return err
	}

	if err := s.images.Remove(ctx, imagePath); err != nil {
		s.logger.Warn("failed to remove image", "entry_id", id, "path", imagePath, "error", err)
	}

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventEntryDeleted,
		EntryID:   id.String(),
		Label:     label,
		Success:   true,
	})
	s.notify(ws.EventEntryDeleted, map[string]string{"id": id.String(), "label": label})
	return nil
}

func validateLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	switch {
	case label == "":
		return "", domain.ErrValidationFailed.WithError(fmt.Errorf("label is required"))
	case utf8.RuneCountInString(label) > maxLabelLength:
		return "", domain.ErrValidationFailed.WithError(fmt.Errorf("label exceeds %d characters", maxLabelLength))
	case strings.EqualFold(label, domain.UnknownLabel):
		return "", domain.ErrValidationFailed.WithError(fmt.Errorf("label %q is reserved", domain.UnknownLabel))
	}
	return label, nil
}

func decodeUpright(data []byte, rotation int) (image.Image, string, error) {
	img, format, err := vision.Decode(data)
	if err != nil {
		return nil, "", err
	}
	if rotation%360 == 0 {
		return img, format, nil
	}
	upright, err := vision.Upright(img, rotation)
	if err != nil {
		return nil, "", domain.ErrValidationFailed.WithError(err)
	}
	return upright, format, nil
}

func (s *RecognitionService) logAudit(ctx context.Context, event audit.Event) {
	if err := s.auditLogger.Log(ctx, event); err != nil {
		s.logger.Warn("audit log failed", "event_type", event.EventType, "error", err)
	}
}

func (s *RecognitionService) notify(eventType ws.EventType, data interface{}) {
	for _, n := range s.notifiers {
		n.BroadcastAll(eventType, data)
	}
}
