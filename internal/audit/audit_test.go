package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Log(t *testing.T) {
	tests := []struct {
		name          string
		event         Event
		wantEventType string
		wantContains  []string
	}{
		{
			name: "entry enrolled",
			event: Event{
				EventType: EventEntryEnrolled,
				EntryID:   "4b1c7c1e-0000-4000-8000-000000000001",
				Label:     "alice",
				Success:   true,
			},
			wantEventType: string(EventEntryEnrolled),
			wantContains:  []string{"alice", "4b1c7c1e-0000-4000-8000-000000000001"},
		},
		{
			name: "rejected enrollment keeps the error",
			event: Event{
				EventType: EventEntryEnrolled,
				Label:     "bob",
				Success:   false,
				Error:     "no face detected",
			},
			wantEventType: string(EventEntryEnrolled),
			wantContains:  []string{"no face detected"},
		},
		{
			name: "faces recognized with metadata",
			event: Event{
				EventType: EventFacesRecognized,
				Success:   true,
				Metadata:  map[string]string{"faces": "2", "matched": "1"},
			},
			wantEventType: string(EventFacesRecognized),
			wantContains:  []string{"faces", "matched"},
		},
		{
			name: "stream closed",
			event: Event{
				EventType: EventStreamClosed,
				Stream:    "front-door",
				Success:   true,
				IPAddress: "192.168.1.1",
			},
			wantEventType: string(EventStreamClosed),
			wantContains:  []string{"front-door", "192.168.1.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

			require.NoError(t, auditLogger.Log(context.Background(), tt.event))

			output := buf.String()
			assert.Contains(t, output, tt.wantEventType)
			assert.Contains(t, output, "audit_event")
			assert.Contains(t, output, `"component":"audit"`)
			for _, want := range tt.wantContains {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := auditLogger.Log(context.Background(), Event{EventType: EventEntryDeleted, Success: true})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &logEntry))

	eventID, ok := logEntry["event_id"].(string)
	require.True(t, ok)
	_, err = uuid.Parse(eventID)
	assert.NoError(t, err)

	var data Event
	require.NoError(t, json.Unmarshal([]byte(logEntry["event_data"].(string)), &data))
	assert.False(t, data.Timestamp.IsZero())
}

func TestSlogLogger_Log_UsesProvidedID(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	expectedID := uuid.New()

	err := auditLogger.Log(context.Background(), Event{
		ID:        expectedID,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		EventType: EventEntryEnrolled,
		Success:   true,
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), expectedID.String())
	assert.Contains(t, buf.String(), "2024-01-15T10:30:00Z")
}

func TestSlogLogger_Log_StampsClientFromContext(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := WithClient(context.Background(), "10.0.0.7", "glimpse-cli/1.0")

	require.NoError(t, auditLogger.Log(ctx, Event{EventType: EventEntryEnrolled, Success: true}))
	require.NoError(t, auditLogger.Log(ctx, Event{EventType: EventEntryDeleted, IPAddress: "192.168.1.1"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	events := make([]Event, 0, 2)
	for _, line := range lines {
		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &logEntry))
		var data Event
		require.NoError(t, json.Unmarshal([]byte(logEntry["event_data"].(string)), &data))
		events = append(events, data)
	}

	assert.Equal(t, "10.0.0.7", events[0].IPAddress)
	assert.Equal(t, "glimpse-cli/1.0", events[0].UserAgent)
	assert.Equal(t, "192.168.1.1", events[1].IPAddress)
	assert.Equal(t, "glimpse-cli/1.0", events[1].UserAgent)
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}

	for i := 0; i < 10; i++ {
		assert.NoError(t, logger.Log(context.Background(), Event{EventType: EventFacesRecognized}))
	}
}

func TestLoggerInterface_Compliance(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
	var _ Logger = (*NoOpLogger)(nil)
}

func TestEvent_JSONSerialization_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{EventType: EventEntryDeleted, Success: true})
	require.NoError(t, err)

	jsonStr := string(data)
	assert.NotContains(t, jsonStr, "entry_id")
	assert.NotContains(t, jsonStr, "label")
	assert.NotContains(t, jsonStr, "stream")
	assert.NotContains(t, jsonStr, "error")
	assert.NotContains(t, jsonStr, "ip_address")
}
