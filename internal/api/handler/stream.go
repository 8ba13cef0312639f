package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

const (
	HeaderFrameWidth    = "X-Frame-Width"
	HeaderFrameHeight   = "X-Frame-Height"
	HeaderFrameFormat   = "X-Frame-Format"
	HeaderFrameRotation = "X-Frame-Rotation"

	maxFrameDimension = 8192
)

// StreamManager routes raw frames to per-stream workers
type StreamManager interface {
	Submit(stream string, frame *vision.Frame) error
	Last(stream string) (pipeline.Result, bool, error)
	Close(stream string) error
	Streams() []string
}

// StreamHandler handles live frame submission and stream results
type StreamHandler struct {
	manager StreamManager
	logger  *slog.Logger
}

func NewStreamHandler(manager StreamManager, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		manager: manager,
		logger:  logger,
	}
}

// SubmitResponse acknowledges a queued frame
type SubmitResponse struct {
	Stream string `json:"stream"`
	Status string `json:"status"`
}

// StreamsResponse lists active streams
type StreamsResponse struct {
	Streams []string `json:"streams"`
}

// ValidateStream rejects bad :stream params before any upgrade or body read
func ValidateStream(c *fiber.Ctx) error {
	if err := pipeline.ValidateStream(c.Params("stream")); err != nil {
		return err
	}
	return c.Next()
}

// SubmitFrame POST /v1/streams/:stream/frames - queue one raw frame
func (h *StreamHandler) SubmitFrame(c *fiber.Ctx) error {
	stream := c.Params("stream")

	width, err := frameDimension(c, HeaderFrameWidth)
	if err != nil {
		return err
	}
	height, err := frameDimension(c, HeaderFrameHeight)
	if err != nil {
		return err
	}

	format := vision.PixelFormat(c.Get(HeaderFrameFormat, string(vision.FormatRGB24)))
	want, err := format.BufferSize(width, height)
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	rotation, err := parseRotation(c.Get(HeaderFrameRotation))
	if err != nil {
		return err
	}

	body := c.Body()
	if len(body) != want {
		return domain.ErrValidationFailed.WithError(
			fmt.Errorf("%s %dx%d frame needs %d bytes, got %d", format, width, height, want, len(body)))
	}

	// fasthttp reuses the body buffer once the handler returns.
	frame := vision.NewFrame(bytes.Clone(body), width, height, format, rotation, nil)
	if err := h.manager.Submit(stream, frame); err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{
		Stream: stream,
		Status: "queued",
	})
}

// LastResult GET /v1/streams/:stream - most recent result of a stream
func (h *StreamHandler) LastResult(c *fiber.Ctx) error {
	stream := c.Params("stream")
	result, ok, err := h.manager.Last(stream)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrStreamNotFound.WithError(fmt.Errorf("stream %s has no results yet", stream))
	}
	return c.JSON(result)
}

// List GET /v1/streams - names of active streams
func (h *StreamHandler) List(c *fiber.Ctx) error {
	return c.JSON(StreamsResponse{Streams: h.manager.Streams()})
}

// Close DELETE /v1/streams/:stream - stop a stream's worker
func (h *StreamHandler) Close(c *fiber.Ctx) error {
	if err := h.manager.Close(c.Params("stream")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func frameDimension(c *fiber.Ctx, header string) (int, error) {
	v, err := strconv.Atoi(c.Get(header))
	if err != nil || v <= 0 || v > maxFrameDimension {
		return 0, domain.ErrValidationFailed.WithError(
			fmt.Errorf("%s must be an integer in 1..%d", header, maxFrameDimension))
	}
	return v, nil
}
