package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/ws"
)

// Broadcaster pushes an event to every connected viewer
type Broadcaster interface {
	BroadcastAll(eventType ws.EventType, data interface{})
}

// Sources supplies the values sampled on every tick. Nil funcs are skipped.
type Sources struct {
	Stats          func() pipeline.StatsSnapshot
	Streams        func() []string
	GalleryEntries func() int
}

// Report is one aggregation period
type Report struct {
	Totals         pipeline.StatsSnapshot `json:"totals"`
	Period         pipeline.StatsSnapshot `json:"period"`
	Streams        int                    `json:"streams"`
	GalleryEntries int                    `json:"gallery_entries"`
	PeriodStart    time.Time              `json:"period_start"`
	PeriodEnd      time.Time              `json:"period_end"`
}

// Aggregator periodically samples pipeline counters, logs the delta and
// pushes it to viewers
type Aggregator struct {
	sources  Sources
	hub      Broadcaster
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once

	handlers []func(Report)

	mu         sync.Mutex
	previous   pipeline.StatsSnapshot
	lastTick   time.Time
	lastReport *Report
}

// NewAggregator creates a new metrics aggregator worker
func NewAggregator(sources Sources, hub Broadcaster, logger *slog.Logger, interval time.Duration) *Aggregator {
	if interval == 0 {
		interval = 1 * time.Minute
	}

	return &Aggregator{
		sources:  sources,
		hub:      hub,
		logger:   logger.With("component", "metrics"),
		interval: interval,
		done:     make(chan struct{}),
		lastTick: time.Now(),
	}
}

// OnReport registers fn to run on the aggregator goroutine after every
// period. Register before Start.
func (a *Aggregator) OnReport(fn func(Report)) {
	a.handlers = append(a.handlers, fn)
}

// Start runs the aggregation loop until ctx is done or Stop is called
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("metrics aggregator started", "interval", a.interval)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("metrics aggregator stopped")
			return
		case <-a.done:
			a.logger.Info("metrics aggregator stopped")
			return
		case now := <-ticker.C:
			a.aggregate(now)
		}
	}
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() { close(a.done) })
}

// Last returns the most recent report
func (a *Aggregator) Last() (Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastReport == nil {
		return Report{}, false
	}
	return *a.lastReport, true
}

func (a *Aggregator) aggregate(now time.Time) Report {
	var totals pipeline.StatsSnapshot
	if a.sources.Stats != nil {
		totals = a.sources.Stats()
	}

	a.mu.Lock()
	report := Report{
		Totals:      totals,
		Period:      delta(totals, a.previous),
		PeriodStart: a.lastTick,
		PeriodEnd:   now,
	}
	a.previous = totals
	a.lastTick = now
	a.mu.Unlock()

	if a.sources.Streams != nil {
		report.Streams = len(a.sources.Streams())
	}
	if a.sources.GalleryEntries != nil {
		report.GalleryEntries = a.sources.GalleryEntries()
	}

	a.mu.Lock()
	a.lastReport = &report
	a.mu.Unlock()

	a.logger.Info("pipeline stats",
		"frames_processed", report.Period.FramesProcessed,
		"frames_dropped", report.Period.FramesDropped,
		"frames_failed", report.Period.FramesFailed,
		"faces_matched", report.Period.FacesMatched,
		"faces_unknown", report.Period.FacesUnknown,
		"inference_errors", report.Period.InferenceErrors,
		"streams", report.Streams,
		"gallery_entries", report.GalleryEntries,
	)

	if a.hub != nil {
		a.hub.BroadcastAll(ws.EventMetricUpdate, report)
	}
	for _, fn := range a.handlers {
		fn(report)
	}
	return report
}

func delta(cur, prev pipeline.StatsSnapshot) pipeline.StatsSnapshot {
	return pipeline.StatsSnapshot{
		FramesSubmitted: cur.FramesSubmitted - prev.FramesSubmitted,
		FramesProcessed: cur.FramesProcessed - prev.FramesProcessed,
		FramesDropped:   cur.FramesDropped - prev.FramesDropped,
		FramesFailed:    cur.FramesFailed - prev.FramesFailed,
		FacesDetected:   cur.FacesDetected - prev.FacesDetected,
		FacesMatched:    cur.FacesMatched - prev.FacesMatched,
		FacesUnknown:    cur.FacesUnknown - prev.FacesUnknown,
		FacesSkipped:    cur.FacesSkipped - prev.FacesSkipped,
		InferenceErrors: cur.InferenceErrors - prev.InferenceErrors,
	}
}
