package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/locojk/GNG-5300-Group-Backend/internal/observability"
)

// Correlation copies the request id assigned by the requestid middleware into
// the request context so repository and audit logs can carry it.
func Correlation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		if id == "" {
			id = c.Get(fiber.HeaderXRequestID)
		}
		if id != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		}
		return c.Next()
	}
}
