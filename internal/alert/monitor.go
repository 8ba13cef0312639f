package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/metrics"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/ws"
)

// Broadcaster receives fired alerts
type Broadcaster interface {
	BroadcastAll(eventType ws.EventType, data interface{})
}

// Monitor evaluates each aggregation report and publishes fired alerts
type Monitor struct {
	engine  *Engine
	targets []Broadcaster
	logger  *slog.Logger
	now     func() time.Time
}

func NewMonitor(engine *Engine, logger *slog.Logger, targets ...Broadcaster) *Monitor {
	return &Monitor{
		engine:  engine,
		targets: targets,
		logger:  logger.With("component", "alert"),
		now:     time.Now,
	}
}

// HandleReport is meant for metrics.Aggregator.OnReport
func (m *Monitor) HandleReport(report metrics.Report) {
	for _, a := range m.engine.Evaluate(report, m.now()) {
		level := slog.LevelWarn
		if a.Severity == SeverityCritical {
			level = slog.LevelError
		}
		m.logger.Log(context.Background(), level, "alert triggered",
			slog.String("rule", a.Rule),
			slog.String("severity", string(a.Severity)),
			slog.Any("values", a.Values),
		)
		for _, t := range m.targets {
			t.BroadcastAll(ws.EventAlert, a)
		}
	}
}
