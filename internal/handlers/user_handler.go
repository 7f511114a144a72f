package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userApplicationService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch models.UserPatch) error
	DeleteAccount(ctx context.Context, userID primitive.ObjectID) error
	ChangeStatus(ctx context.Context, actorID, targetID primitive.ObjectID, status string) error
	ChangeRole(ctx context.Context, actorID, targetID primitive.ObjectID, role string) error
	VerifyEmail(ctx context.Context, actorID, targetID primitive.ObjectID) error
}

type UserHandler struct {
	service userApplicationService
	logger  *slog.Logger
}

func NewUserHandler(service userApplicationService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	user, err := h.service.GetProfile(c.UserContext(), identity.UserID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	var patch models.UserPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.service.UpdateProfile(c.UserContext(), identity.UserID, patch); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully"})
}

func (h *UserHandler) DeleteAccount(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}

	if err := h.service.DeleteAccount(c.UserContext(), identity.UserID); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}

type statusRequest struct {
	Status string `json:"status"`
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}
	targetID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return badRequest(c, "id must be a valid user id")
	}

	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if err := h.service.ChangeStatus(c.UserContext(), identity.UserID, targetID, status); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "User status updated", "status": status})
}

func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}
	targetID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return badRequest(c, "id must be a valid user id")
	}

	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if err := h.service.ChangeRole(c.UserContext(), identity.UserID, targetID, role); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "User role updated", "role": role})
}

func (h *UserHandler) VerifyEmail(c *fiber.Ctx) error {
	identity, ok := currentIdentity(c)
	if !ok {
		return missingIdentity(c)
	}
	targetID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return badRequest(c, "id must be a valid user id")
	}

	if err := h.service.VerifyEmail(c.UserContext(), identity.UserID, targetID); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Email verified"})
}
