package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"webhook-tester/internal/instrument"
)

var _ instrument.StatusCoder = (*AppError)(nil)

type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) HTTPStatus() int {
	return e.Status
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func InvalidPayloadError(err error) *AppError {
	return &AppError{
		Code:    "INVALID_PAYLOAD",
		Status:  fiber.StatusBadRequest,
		Message: fmt.Sprintf("Invalid request body: %v", err),
	}
}

func InvalidFilterError(err error) *AppError {
	return &AppError{
		Code:    "INVALID_FILTER",
		Status:  fiber.StatusBadRequest,
		Message: fmt.Sprintf("Invalid filter expression: %v", err),
	}
}

func InvalidParamError(name, value string) *AppError {
	return &AppError{
		Code:    "INVALID_PARAM",
		Status:  fiber.StatusBadRequest,
		Message: fmt.Sprintf("Invalid value for %s: %q", name, value),
	}
}

// ErrorHandler renders errors returned by handlers as JSON error envelopes.
func ErrorHandler(logger *zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{
				Error: NewAppError("HTTP_ERROR", fiberErr.Code, fiberErr.Message),
			})
		}

		logger.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: NewAppError("INTERNAL_ERROR", fiber.StatusInternalServerError, "Internal server error"),
		})
	}
}
