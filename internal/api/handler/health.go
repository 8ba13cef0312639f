package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/database"
)

const Version = "0.1.0"

// Readiness reports whether the recognition session can serve requests
type Readiness interface {
	Ready() bool
}

type HealthHandler struct {
	session Readiness
	db      database.Pinger
}

// NewHealthHandler creates a health handler; db is nil when the gallery is in memory
func NewHealthHandler(session Readiness, db database.Pinger) *HealthHandler {
	return &HealthHandler{session: session, db: db}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := map[string]string{"session": "ready"}
	ready := true

	if h.session == nil || !h.session.Ready() {
		checks["session"] = "not_ready"
		ready = false
	}

	if h.db != nil {
		checks["database"] = "ok"
		if err := database.HealthCheck(c.UserContext(), h.db); err != nil {
			checks["database"] = err.Error()
			ready = false
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status: "not_ready",
			Checks: checks,
		})
	}

	return c.JSON(HealthResponse{
		Status: "ready",
		Checks: checks,
	})
}
