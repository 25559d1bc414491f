package dto

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/medextract/medextract/api/internal/pkg/errors"
	"github.com/medextract/medextract/api/internal/validator"
)

// ParseAndValidate parses the request body into the given struct and
// validates it. Failures are returned as *apperrors.AppError carrying a 400
// status; handlers map them onto the error response.
func ParseAndValidate(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.BadRequest("invalid request body: " + err.Error())
	}

	if err := validator.Validate(v); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			appErr := apperrors.Validation("request validation failed")
			for _, ve := range validationErrors {
				appErr = appErr.WithDetail(ve.Field, ve.Message)
			}
			return appErr
		}
		return apperrors.BadRequest(err.Error())
	}

	return nil
}
