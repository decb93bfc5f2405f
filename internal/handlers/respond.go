package handlers

import (
	"errors"
	"fmt"

	"ovostore/internal/middleware"
	"ovostore/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// respond writes body as JSON and attaches the notifications the request raised.
func respond(c *fiber.Ctx, status int, body fiber.Map) error {
	if notes := middleware.Notifications(c); len(notes) > 0 {
		body["notifications"] = notes
	}
	return c.Status(status).JSON(body)
}

// validationErrors maps failed validator tags to one message per field.
func validationErrors(err error) (map[string]string, bool) {
	var serviceErr *services.ValidationError
	if errors.As(err, &serviceErr) {
		return serviceErr.Fields, true
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil, false
	}
	errorMessages := make(map[string]string)
	for _, e := range validationErrs {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return errorMessages, true
}

// parseAndValidate binds the request body into out and validates it. It writes the
// 400 response itself and returns handled=true when the request is rejected.
func parseAndValidate(c *fiber.Ctx, out interface{}) (handled bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(out); err != nil {
		errorMessages, ok := validationErrors(err)
		if !ok {
			return true, err
		}
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return false, nil
}
