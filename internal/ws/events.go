package ws

import (
	"time"
)

type EventType string

const (
	EventRecognition   EventType = "recognition.completed"
	EventEntryEnrolled EventType = "gallery.enrolled"
	EventEntryDeleted  EventType = "gallery.deleted"
	EventMetricUpdate  EventType = "metric.updated"
	EventAlert         EventType = "alert.triggered"
)

// Event is pushed to viewers as JSON. An empty Stream reaches every viewer.
type Event struct {
	Stream    string      `json:"stream,omitempty"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
