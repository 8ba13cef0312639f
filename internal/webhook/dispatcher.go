package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/ws"
)

// Dispatcher delivers events to an HTTP endpoint from a background queue.
// Broadcast never blocks; when the queue is full the event is dropped.
type Dispatcher struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	events map[ws.EventType]struct{}
	queue  chan Event

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	Delivered atomic.Uint64
	Failed    atomic.Uint64
	Dropped   atomic.Uint64
}

func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}

	var events map[ws.EventType]struct{}
	if len(cfg.Events) > 0 {
		events = make(map[ws.EventType]struct{}, len(cfg.Events))
		for _, e := range cfg.Events {
			events[ws.EventType(e)] = struct{}{}
		}
	}

	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "webhook"),
		events: events,
		queue:  make(chan Event, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}
}

// Start runs the delivery loop until ctx is cancelled or Stop is called.
// It blocks.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	defer d.wg.Done()

	d.logger.Info("webhook dispatcher started", "url", d.cfg.URL)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("webhook dispatcher stopped")
			return
		case <-d.stopCh:
			d.logger.Info("webhook dispatcher stopped")
			return
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

// Stop ends the delivery loop and waits for the in-flight event
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
	d.wg.Wait()
}

func (d *Dispatcher) Broadcast(stream string, eventType ws.EventType, data interface{}) {
	if !d.wants(eventType) {
		return
	}

	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		Stream:    stream,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	select {
	case d.queue <- event:
	default:
		d.Dropped.Add(1)
		d.logger.Warn("webhook queue full, dropping event", "type", eventType)
	}
}

func (d *Dispatcher) BroadcastAll(eventType ws.EventType, data interface{}) {
	d.Broadcast("", eventType, data)
}

func (d *Dispatcher) wants(eventType ws.EventType) bool {
	if d.events == nil {
		return true
	}
	_, ok := d.events[eventType]
	return ok
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.Failed.Add(1)
		d.logger.Error("failed to marshal webhook event", "type", event.Type, "error", err)
		return
	}

	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<(attempt-1)) * d.cfg.RetryBase
			select {
			case <-ctx.Done():
				d.Failed.Add(1)
				return
			case <-d.stopCh:
				d.Failed.Add(1)
				return
			case <-time.After(delay):
			}
		}

		err = d.send(ctx, event, payload)
		if err == nil {
			d.Delivered.Add(1)
			return
		}
		d.logger.Warn("webhook delivery failed",
			"delivery", event.ID,
			"type", event.Type,
			"attempt", attempt+1,
			"error", err,
		)
	}

	d.Failed.Add(1)
	d.logger.Error("webhook delivery abandoned",
		"delivery", event.ID,
		"type", event.Type,
		"attempts", d.cfg.MaxAttempts,
	)
}

func (d *Dispatcher) send(ctx context.Context, event Event, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderEvent, string(event.Type))
	req.Header.Set(HeaderDelivery, event.ID.String())
	if d.cfg.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(d.cfg.Secret, payload))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
