package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests. The service is healthy only
// when both the order log database and the coordinator are reachable.
type HealthHandler struct {
	db Pinger
	fc Pinger
}

// NewHealthHandler creates a new HealthHandler with the given database pool
// and coordinator.
func NewHealthHandler(db, fc Pinger) *HealthHandler {
	return &HealthHandler{db: db, fc: fc}
}

// Check performs a health check by pinging the database and the coordinator.
// Returns 200 OK with {"status": "healthy"} when both are reachable.
// Returns 503 Service Unavailable naming the failed dependency otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.db.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}
	if err := h.fc.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: coordinator unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "coordinator connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
