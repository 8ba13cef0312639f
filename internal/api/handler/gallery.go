package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/service"
)

// RecognitionService is the use-case layer behind the gallery and recognize routes
type RecognitionService interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*domain.GalleryEntry, error)
	Recognize(ctx context.Context, data []byte, rotation int) ([]domain.FaceRecognition, error)
	List(ctx context.Context) ([]domain.GalleryEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GalleryHandler handles gallery enrollment and recognition requests
type GalleryHandler struct {
	service RecognitionService
	logger  *slog.Logger
}

func NewGalleryHandler(service RecognitionService, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		service: service,
		logger:  logger,
	}
}

// EntryResponse is a gallery entry without its embedding
type EntryResponse struct {
	ID         string             `json:"id"`
	Label      string             `json:"label"`
	Box        domain.BoundingBox `json:"box"`
	EnrolledAt string             `json:"enrolled_at"`
}

// ListResponse response for the gallery listing
type ListResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
}

// RecognizeResponse response for the recognize endpoint
type RecognizeResponse struct {
	Faces     []domain.FaceRecognition `json:"faces"`
	Matched   int                      `json:"matched"`
	LatencyMs int64                    `json:"latency_ms"`
}

func toEntryResponse(e domain.GalleryEntry) EntryResponse {
	return EntryResponse{
		ID:         e.ID.String(),
		Label:      e.Label,
		Box:        e.Box,
		EnrolledAt: e.EnrolledAt.UTC().Format(time.RFC3339),
	}
}

// Enroll POST /v1/gallery - enroll the first face of an image under a label
func (h *GalleryHandler) Enroll(c *fiber.Ctx) error {
	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	rotation, err := parseRotation(c.FormValue("rotation"))
	if err != nil {
		return err
	}

	entry, err := h.service.Enroll(c.UserContext(), service.EnrollRequest{
		Label:    c.FormValue("label"),
		Image:    imageBytes,
		Rotation: rotation,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toEntryResponse(*entry))
}

// List GET /v1/gallery - list enrolled entries newest first
func (h *GalleryHandler) List(c *fiber.Ctx) error {
	entries, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}

	resp := ListResponse{
		Entries: make([]EntryResponse, 0, len(entries)),
		Total:   len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toEntryResponse(e))
	}
	return c.JSON(resp)
}

// Delete DELETE /v1/gallery/:id - remove an entry and its captured image
func (h *GalleryHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be a UUID"))
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Recognize POST /v1/recognize - match every face in an image against the gallery
func (h *GalleryHandler) Recognize(c *fiber.Ctx) error {
	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	rotation, err := parseRotation(c.FormValue("rotation"))
	if err != nil {
		return err
	}

	start := time.Now()
	faces, err := h.service.Recognize(c.UserContext(), imageBytes, rotation)
	if err != nil {
		return err
	}

	resp := RecognizeResponse{
		Faces:     faces,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp.Faces == nil {
		resp.Faces = []domain.FaceRecognition{}
	}
	for _, f := range faces {
		if f.Result.Matched {
			resp.Matched++
		}
	}
	return c.JSON(resp)
}
