package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/geobank/registry/internal/delivery/http/middleware"
	"github.com/geobank/registry/internal/pkg/errors"
)

// SuccessResponse envelopes a successful response body.
type SuccessResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// ErrorResponse envelopes a failed response body, always carrying the
// request's correlation id.
type ErrorResponse struct {
	Error         *errors.AppError `json:"error"`
	CorrelationID string           `json:"correlationId"`
}

// Meta carries pagination/diagnostic fields alongside a success payload.
type Meta struct {
	Total    int     `json:"total,omitempty"`
	Page     int     `json:"page,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	TimeMSec float64 `json:"time_ms,omitempty"`
}

// SendSuccess writes a 200 with the given data and optional metadata.
func SendSuccess(c *fiber.Ctx, data interface{}, meta *Meta) error {
	return c.JSON(SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// SendError writes the appropriate status code and error envelope for err,
// falling back to an opaque 500 for anything that isn't an *errors.AppError.
func SendError(c *fiber.Ctx, err error) error {
	correlationID := middleware.CorrelationID(c)

	if appErr, ok := err.(*errors.AppError); ok {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Error:         appErr,
			CorrelationID: correlationID,
		})
	}

	return c.Status(errors.ErrInternal.StatusCode).JSON(ErrorResponse{
		Error:         errors.ErrInternal,
		CorrelationID: correlationID,
	})
}
