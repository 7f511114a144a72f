package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type authApplicationService interface {
	Register(ctx context.Context, input services.RegisterInput) (primitive.ObjectID, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthHandler struct {
	service authApplicationService
	logger  *slog.Logger
}

func NewAuthHandler(service authApplicationService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID, err := h.service.Register(c.UserContext(), req)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user_id": userID.Hex(),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(result)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	result, err := h.service.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	if err := h.service.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.service.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message": "If an account with that email exists, a password reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.service.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset successfully"})
}
