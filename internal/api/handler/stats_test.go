package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/metrics"
	"github.com/saturnino-fabrica-de-software/glimpse/internal/pipeline"
)

type fakeReports struct {
	report metrics.Report
	ok     bool
}

func (f fakeReports) Last() (metrics.Report, bool) { return f.report, f.ok }

func TestStatsHandler_Get(t *testing.T) {
	stats := &pipeline.Stats{}
	stats.FramesSubmitted.Add(5)
	stats.FramesProcessed.Add(3)
	stats.FramesDropped.Add(2)

	t.Run("totals only", func(t *testing.T) {
		app := fiber.New()
		app.Get("/v1/stats", NewStatsHandler(stats, nil).Get)

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/stats", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out StatsResponse
		decodeBody(t, resp, &out)
		assert.Equal(t, uint64(5), out.Totals.FramesSubmitted)
		assert.Equal(t, uint64(3), out.Totals.FramesProcessed)
		assert.Equal(t, uint64(2), out.Totals.FramesDropped)
		assert.Nil(t, out.LastPeriod)
	})

	t.Run("with last period", func(t *testing.T) {
		report := metrics.Report{
			Streams:        2,
			GalleryEntries: 7,
			PeriodStart:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			PeriodEnd:      time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC),
		}
		app := fiber.New()
		app.Get("/v1/stats", NewStatsHandler(stats, fakeReports{report: report, ok: true}).Get)

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/stats", nil))
		require.NoError(t, err)

		var out StatsResponse
		decodeBody(t, resp, &out)
		require.NotNil(t, out.LastPeriod)
		assert.Equal(t, 2, out.LastPeriod.Streams)
		assert.Equal(t, 7, out.LastPeriod.GalleryEntries)
	})
}
