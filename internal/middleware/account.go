package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/auth"
	"github.com/locojk/GNG-5300-Group-Backend/internal/models"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"github.com/locojk/GNG-5300-Group-Backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ActiveUserRequired reloads the caller's account on every request. Tokens of
// deleted, banned or deactivated accounts get 403, and the identity's role is
// replaced by the stored one so RoleRequired sees demotions at once. It must
// run after AuthRequired.
func ActiveUserRequired(accounts AccountLookup, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := auth.FromContext(c.UserContext())
		if !ok {
			return unauthorized(c, "missing_identity", "Authentication required")
		}

		user, err := accounts.GetByID(c.UserContext(), identity.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return unauthorized(c, "unknown_user", "Invalid token")
		}
		if err != nil {
			if logger != nil {
				logger.ErrorContext(c.UserContext(), "account lookup failed",
					slog.String("user_id", identity.UserID.Hex()),
					slog.String("error", err.Error()),
				)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		if user.Status != models.UserStatusActive {
			observability.AuthFailures.WithLabelValues("inactive_account").Inc()
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Account is not active",
			})
		}

		if user.Role != identity.Role {
			identity.Role = user.Role
			c.SetUserContext(auth.WithIdentity(c.UserContext(), identity))
			c.Locals("role", user.Role)
		}
		return c.Next()
	}
}
