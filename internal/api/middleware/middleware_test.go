package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/audit"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/domain"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	if buf == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{
			name:       "fiber error",
			err:        fiber.ErrMethodNotAllowed,
			wantStatus: fiber.StatusMethodNotAllowed,
			wantCode:   "HTTP_ERROR",
		},
		{
			name:       "app error with cause",
			err:        domain.ErrValidationFailed.WithError(errors.New("label is required")),
			wantStatus: fiber.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
			wantDetail: "label is required",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("enroll: %w", domain.ErrDuplicateIdentity),
			wantStatus: fiber.StatusConflict,
			wantCode:   "DUPLICATE_IDENTITY",
		},
		{
			name:       "server error hides cause",
			err:        domain.ErrInference.WithError(errors.New("connection refused")),
			wantStatus: fiber.StatusBadGateway,
			wantCode:   "INFERENCE_FAILED",
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger(nil))})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantDetail, body.Error.Detail)
		})
	}
}

func TestLogger_LogsRenderedStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := testLogger(&buf)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(requestid.New())
	app.Use(Logger(logger))
	app.Get("/v1/streams/:stream", func(c *fiber.Ctx) error {
		return domain.ErrStreamNotFound
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/streams/lobby", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.EqualValues(t, fiber.StatusNotFound, entry["status"])
	assert.Equal(t, "lobby", entry["stream"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRecover(t *testing.T) {
	app := fiber.New()
	app.Use(Recover(testLogger(nil)))
	app.Get("/", func(c *fiber.Ctx) error {
		panic("decoder exploded")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}

func TestAuditClient(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := audit.NewSlogLogger(testLogger(&buf))

	app := fiber.New()
	app.Use(AuditClient())
	app.Post("/", func(c *fiber.Ctx) error {
		return auditLogger.Log(c.UserContext(), audit.Event{EventType: audit.EventEntryEnrolled, Success: true})
	})

	req := httptest.NewRequest(fiber.MethodPost, "/", nil)
	req.Header.Set(fiber.HeaderUserAgent, "kiosk/2.1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Contains(t, buf.String(), `kiosk/2.1`)
}
