package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	correlationHeader = "X-Correlation-ID"
	correlationLocal  = "correlationId"
)

// Correlation reads X-Correlation-ID off the incoming request, generating
// one via google/uuid if the client didn't send one, echoes it on the
// response, and stashes it in fiber.Ctx locals for handlers/logs/events to
// pick up.
func Correlation() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(correlationHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set(correlationHeader, id)

		return c.Next()
	}
}

// CorrelationID returns the correlation id attached to c by Correlation,
// or an empty string if the middleware wasn't installed.
func CorrelationID(c *fiber.Ctx) string {
	v, ok := c.Locals(correlationLocal).(string)
	if !ok {
		return ""
	}
	return v
}
