package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recommendationApplicationService interface {
	Recommend(ctx context.Context, userID primitive.ObjectID, query string) (*models.WorkoutRecommendation, error)
}

type AIChatHandler struct {
	service recommendationApplicationService
	logger  *slog.Logger
}

func NewAIChatHandler(service recommendationApplicationService, logger *slog.Logger) *AIChatHandler {
	return &AIChatHandler{service: service, logger: logger}
}

type chatQueryRequest struct {
	Query string `json:"query"`
}

func (h *AIChatHandler) Query(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	var req chatQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	rec, err := h.service.Recommend(c.UserContext(), identity.UserID, req.Query)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"query": req.Query, "recommendation": rec})
}

// Test runs the engine end to end with a fixed question.
func (h *AIChatHandler) Test(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	rec, err := h.service.Recommend(c.UserContext(), identity.UserID, services.TestQuery)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Test passed",
		"query":          services.TestQuery,
		"recommendation": rec,
	})
}
