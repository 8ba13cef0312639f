package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/metrics"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
)

// StatsSource exposes the live pipeline counters
type StatsSource interface {
	Snapshot() pipeline.StatsSnapshot
}

// ReportSource exposes the latest aggregation period
type ReportSource interface {
	Last() (metrics.Report, bool)
}

type StatsHandler struct {
	stats   StatsSource
	reports ReportSource
}

// NewStatsHandler creates a stats handler; reports may be nil
func NewStatsHandler(stats StatsSource, reports ReportSource) *StatsHandler {
	return &StatsHandler{stats: stats, reports: reports}
}

type StatsResponse struct {
	Totals     pipeline.StatsSnapshot `json:"totals"`
	LastPeriod *metrics.Report        `json:"last_period,omitempty"`
}

// Get GET /v1/stats
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	resp := StatsResponse{Totals: h.stats.Snapshot()}
	if h.reports != nil {
		if report, ok := h.reports.Last(); ok {
			resp.LastPeriod = &report
		}
	}
	return c.JSON(resp)
}
