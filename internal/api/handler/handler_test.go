package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/service"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/vision"
)

// MockRecognitionService is a mock implementation of RecognitionService
type MockRecognitionService struct {
	mock.Mock
}

func (m *MockRecognitionService) Enroll(ctx context.Context, req service.EnrollRequest) (*domain.GalleryEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GalleryEntry), args.Error(1)
}

func (m *MockRecognitionService) Recognize(ctx context.Context, data []byte, rotation int) ([]domain.FaceRecognition, error) {
	args := m.Called(ctx, data, rotation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FaceRecognition), args.Error(1)
}

func (m *MockRecognitionService) List(ctx context.Context) ([]domain.GalleryEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GalleryEntry), args.Error(1)
}

func (m *MockRecognitionService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockStreamManager is a mock implementation of StreamManager
type MockStreamManager struct {
	mock.Mock
}

func (m *MockStreamManager) Submit(stream string, frame *vision.Frame) error {
	args := m.Called(stream, frame)
	return args.Error(0)
}

func (m *MockStreamManager) Last(stream string) (pipeline.Result, bool, error) {
	args := m.Called(stream)
	return args.Get(0).(pipeline.Result), args.Bool(1), args.Error(2)
}

func (m *MockStreamManager) Close(stream string) error {
	args := m.Called(stream)
	return args.Error(0)
}

func (m *MockStreamManager) Streams() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

type formPart struct {
	field       string
	value       string
	content     []byte
	contentType string
}

// createMultipartRequest builds a multipart body; parts with content are files
func createMultipartRequest(t *testing.T, parts ...formPart) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, p := range parts {
		if p.content == nil {
			require.NoError(t, writer.WriteField(p.field, p.value))
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="face.png"`)
		h.Set("Content-Type", p.contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(p.content)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}
