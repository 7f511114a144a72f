package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/auth"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/services"
)

// writeServiceError maps service errors onto HTTP responses. Anything
// unrecognized is logged and answered with a generic 500.
func writeServiceError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body := fiber.Map{"error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	status := fiber.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = fiber.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrTokenExpired):
		status, message = fiber.StatusUnauthorized, "Token has expired"
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrRefreshTokenRevoked):
		status, message = fiber.StatusUnauthorized, "Invalid token"
	case errors.Is(err, services.ErrAccountInactive):
		status, message = fiber.StatusForbidden, "Account is not active"
	case errors.Is(err, services.ErrDuplicateEmail):
		status, message = fiber.StatusConflict, "Email already exists"
	case errors.Is(err, services.ErrDuplicateUsername):
		status, message = fiber.StatusConflict, "Username already exists"
	case errors.Is(err, services.ErrInvalidResetToken):
		status, message = fiber.StatusBadRequest, "Invalid or expired reset token"
	case errors.Is(err, services.ErrUserNotFound):
		status, message = fiber.StatusNotFound, "User not found"
	case errors.Is(err, services.ErrGoalNotFound):
		status, message = fiber.StatusNotFound, "Fitness goal not found"
	case errors.Is(err, services.ErrLogNotFound):
		status, message = fiber.StatusNotFound, "Workout log not found"
	case errors.Is(err, services.ErrRecommendationUnavailable):
		status, message = fiber.StatusServiceUnavailable, "Recommendation service is not configured"
	case errors.Is(err, services.ErrRecommendationFailed):
		status, message = fiber.StatusBadGateway, "Recommendation service failed to respond"
	}

	if status == fiber.StatusInternalServerError && logger != nil {
		logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// currentIdentity returns the identity bound by middleware.AuthRequired.
func currentIdentity(c *fiber.Ctx) (auth.Identity, bool) {
	return auth.FromContext(c.UserContext())
}

func missingIdentity(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
}
