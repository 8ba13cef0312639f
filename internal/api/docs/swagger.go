package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// BoundingBox is a face region in source-image pixels
type BoundingBox struct {
	Left   int `json:"left" example:"112"`
	Top    int `json:"top" example:"64"`
	Right  int `json:"right" example:"272"`
	Bottom int `json:"bottom" example:"248"`
}

// GalleryEntryResponse is an enrolled identity
type GalleryEntryResponse struct {
	ID         string      `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Label      string      `json:"label" example:"alice"`
	Box        BoundingBox `json:"box"`
	EnrolledAt string      `json:"enrolled_at" example:"2025-01-01T00:00:00Z"`
}

// GalleryListResponse lists entries newest first
type GalleryListResponse struct {
	Entries []GalleryEntryResponse `json:"entries"`
	Total   int                    `json:"total" example:"1"`
}

// MatchResult is the open-set decision for one face
type MatchResult struct {
	Label      string  `json:"label" example:"alice"`
	Similarity float32 `json:"similarity,omitempty" example:"0.87"`
	Matched    bool    `json:"matched" example:"true"`
}

// FaceRecognition is one detected face and its match
type FaceRecognition struct {
	Box    BoundingBox `json:"box"`
	Result MatchResult `json:"result"`
}

// RecognizeResponse is the outcome of a still-image recognition
type RecognizeResponse struct {
	Faces     []FaceRecognition `json:"faces"`
	Matched   int               `json:"matched" example:"1"`
	LatencyMs int64             `json:"latency_ms" example:"38"`
}

// FrameAcceptedResponse acknowledges a queued frame
type FrameAcceptedResponse struct {
	Stream string `json:"stream" example:"door-1"`
	Status string `json:"status" example:"queued"`
}

// StreamResultResponse is the latest processed frame of a stream
type StreamResultResponse struct {
	Stream      string            `json:"stream" example:"door-1"`
	Width       int               `json:"width" example:"640"`
	Height      int               `json:"height" example:"480"`
	Faces       []FaceRecognition `json:"faces"`
	ProcessedAt string            `json:"processed_at" example:"2025-01-01T00:00:00Z"`
	DurationNs  int64             `json:"duration_ns" example:"41000000"`
}

// StreamsResponse lists active streams
type StreamsResponse struct {
	Streams []string `json:"streams" example:"door-1,lobby"`
}

// PipelineCounters are cumulative pipeline counters
type PipelineCounters struct {
	FramesSubmitted uint64 `json:"frames_submitted" example:"1200"`
	FramesProcessed uint64 `json:"frames_processed" example:"950"`
	FramesDropped   uint64 `json:"frames_dropped" example:"250"`
	FramesFailed    uint64 `json:"frames_failed" example:"0"`
	FacesDetected   uint64 `json:"faces_detected" example:"1730"`
	FacesMatched    uint64 `json:"faces_matched" example:"1502"`
	FacesUnknown    uint64 `json:"faces_unknown" example:"220"`
	FacesSkipped    uint64 `json:"faces_skipped" example:"8"`
	InferenceErrors uint64 `json:"inference_errors" example:"0"`
}

// StatsResponse reports pipeline counters
type StatsResponse struct {
	Totals PipelineCounters `json:"totals"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

// NewSwagger creates and configures the Swagger documentation
func NewSwagger(host string) *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Glimpse Face Recognition API",
		Version:     "v1.0.0",
		Description: "Face embedding pipeline with an open-set gallery matcher. Enroll identities, recognize still images and push raw frames from live streams.",
		Host:        host,
		Path:        "/v1",
	})

	streamParam := parameter.StrParam("stream", parameter.Path, parameter.WithDescription("Stream name, 1-64 of [A-Za-z0-9_-]"))

	endpoints := []*endpoint.EndPoint{
		// POST /v1/gallery - Enroll
		endpoint.New(
			endpoint.POST,
			"/gallery",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Enroll an identity"),
			endpoint.WithDescription("Multipart form with `label`, `image` and an optional `rotation` (0, 90, 180, 270). The first detected face is enrolled."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GalleryEntryResponse{}, "201", "Entry enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "DUPLICATE_IDENTITY", Message: "This face is already enrolled under another label"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "SESSION_NOT_READY", Message: "Recognition session is not initialized"}, "503", "Service Unavailable"),
				internalError,
			}),
		),

		// GET /v1/gallery - List
		endpoint.New(
			endpoint.GET,
			"/gallery",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("List enrolled identities"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GalleryListResponse{}, "200", "Entries, newest first"),
			}),
			endpoint.WithErrors([]response.Response{internalError}),
		),

		// DELETE /v1/gallery/{id} - Delete
		endpoint.New(
			endpoint.DELETE,
			"/gallery/{id}",
			endpoint.WithTags("Gallery"),
			endpoint.WithSummary("Delete an enrolled identity"),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Entry UUID")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Entry deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "ENTRY_NOT_FOUND", Message: "Gallery entry not found"}, "404", "Not Found"),
				internalError,
			}),
		),

		// POST /v1/recognize - Recognize
		endpoint.New(
			endpoint.POST,
			"/recognize",
			endpoint.WithTags("Recognition"),
			endpoint.WithSummary("Recognize every face in an image"),
			endpoint.WithDescription("Multipart form with `image` and an optional `rotation`. Faces below the match threshold are reported as Unknown."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizeResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "SESSION_NOT_READY", Message: "Recognition session is not initialized"}, "503", "Service Unavailable"),
				internalError,
			}),
		),

		// POST /v1/streams/{stream}/frames - Submit frame
		endpoint.New(
			endpoint.POST,
			"/streams/{stream}/frames",
			endpoint.WithTags("Streams"),
			endpoint.WithSummary("Submit a raw frame"),
			endpoint.WithDescription("Raw pixel body described by X-Frame-Width, X-Frame-Height, X-Frame-Format (rgb24, rgba32, i420) and X-Frame-Rotation. A frame still pending when a newer one arrives is dropped."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("application/octet-stream")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(streamParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FrameAcceptedResponse{}, "202", "Frame queued"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "SESSION_NOT_READY", Message: "Recognition session is not initialized"}, "503", "Service Unavailable"),
			}),
		),

		// GET /v1/streams/{stream} - Last result
		endpoint.New(
			endpoint.GET,
			"/streams/{stream}",
			endpoint.WithTags("Streams"),
			endpoint.WithSummary("Latest result of a stream"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(streamParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StreamResultResponse{}, "200", "Latest processed frame"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "STREAM_NOT_FOUND", Message: "Stream not found"}, "404", "Not Found"),
			}),
		),

		// DELETE /v1/streams/{stream} - Close stream
		endpoint.New(
			endpoint.DELETE,
			"/streams/{stream}",
			endpoint.WithTags("Streams"),
			endpoint.WithSummary("Stop a stream's worker"),
			endpoint.WithParams(streamParam),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Stream closed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "STREAM_NOT_FOUND", Message: "Stream not found"}, "404", "Not Found"),
			}),
		),

		// GET /v1/streams - List streams
		endpoint.New(
			endpoint.GET,
			"/streams",
			endpoint.WithTags("Streams"),
			endpoint.WithSummary("List active streams"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StreamsResponse{}, "200", "Active streams"),
			}),
		),

		// GET /v1/streams/{stream}/ws - Live results
		endpoint.New(
			endpoint.GET,
			"/streams/{stream}/ws",
			endpoint.WithTags("Streams"),
			endpoint.WithSummary("WebSocket feed of recognition results"),
			endpoint.WithDescription("Pushes recognition.completed events for the stream plus gallery and metric events."),
			endpoint.WithParams(streamParam),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),

		// GET /v1/stats - Pipeline counters
		endpoint.New(
			endpoint.GET,
			"/stats",
			endpoint.WithTags("Stats"),
			endpoint.WithSummary("Pipeline counters"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatsResponse{}, "200", "Counters"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
