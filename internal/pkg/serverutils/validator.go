package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidationError carries a 400 to the error handler middleware.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateRequest runs struct tag validation and converts failures into a
// single readable message.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Message: err.Error()}
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		messages = append(messages, fmt.Sprintf("field '%s' failed on '%s'", fieldErr.Field(), fieldErr.Tag()))
	}
	return &ValidationError{Message: strings.Join(messages, "; ")}
}

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// standard envelope. Validation failures are 400s; everything else is 500.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		if verr, ok := err.(*ValidationError); ok {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(verr.Message))
		}
		if ferr, ok := err.(*fiber.Error); ok {
			return ctx.Status(ferr.Code).JSON(ErrorResponse(ferr.Message))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(err.Error()))
	}
}
