package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/ws"
)

const (
	HeaderSignature = "X-Glimpse-Signature"
	HeaderEvent     = "X-Glimpse-Event"
	HeaderDelivery  = "X-Glimpse-Delivery"
	userAgent       = "Glimpse-Webhook/1.0"
)

// Config describes the single outbound endpoint. An empty Events list
// forwards every event type.
type Config struct {
	URL         string
	Secret      string
	Events      []string
	MaxAttempts int
	QueueSize   int
	Timeout     time.Duration
	RetryBase   time.Duration
}

// Event is the JSON body POSTed to the endpoint
type Event struct {
	ID        uuid.UUID    `json:"id"`
	Type      ws.EventType `json:"type"`
	Stream    string       `json:"stream,omitempty"`
	Data      interface{}  `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}
