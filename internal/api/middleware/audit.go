package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/audit"
)

// AuditClient stamps the request's user context with the caller's address
// and user agent for audit events.
func AuditClient() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(audit.WithClient(c.UserContext(), c.IP(), c.Get(fiber.HeaderUserAgent)))
		return c.Next()
	}
}
