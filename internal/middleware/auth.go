package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/locojk/GNG-5300-Group-Backend/internal/auth"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// AuthRequired resolves the bearer token into an auth.Identity and binds it
// to the request context. The next handler only runs for a valid token.
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "missing_header", "Missing authorization header")
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "malformed_header", "Invalid authorization header format")
		}

		claims, err := verifier.VerifyAccessToken(parts[1])
		if errors.Is(err, auth.ErrTokenExpired) {
			return unauthorized(c, "expired", "Token has expired")
		}
		if err != nil {
			return unauthorized(c, "invalid", "Invalid token")
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return unauthorized(c, "invalid", "Invalid token")
		}

		identity := auth.Identity{UserID: userID, Role: claims.Role}
		c.SetUserContext(auth.WithIdentity(c.UserContext(), identity))
		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// RoleRequired allows the request through only when the authenticated role is
// one of roles. It must run after AuthRequired.
func RoleRequired(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := auth.FromContext(c.UserContext())
		if !ok {
			return unauthorized(c, "missing_identity", "Authentication required")
		}
		for _, role := range roles {
			if identity.Role == role {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden",
		})
	}
}

func unauthorized(c *fiber.Ctx, reason, message string) error {
	observability.AuthFailures.WithLabelValues(reason).Inc()
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
	})
}
