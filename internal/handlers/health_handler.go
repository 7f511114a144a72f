package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

func (h *HealthHandler) Welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to the fitness tracking API"})
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			if h.logger != nil {
				h.logger.ErrorContext(ctx, "health check failed", slog.String("error", err.Error()))
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unhealthy",
				"database": "unreachable",
			})
		}
	}
	return c.JSON(fiber.Map{"status": "healthy", "database": "ok"})
}
