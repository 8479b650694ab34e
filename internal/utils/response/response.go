// Package response writes the JSON envelopes every handler returns.
package response

import (
	"errors"

	apperrors "propwallet/internal/errors"

	"github.com/gofiber/fiber/v2"
)

// RetryMessage is shown to clients for failures they can only retry.
const RetryMessage = "operation failed, please retry"

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// ErrorWithCode adds the machine-readable error code.
func ErrorWithCode(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *fiber.Ctx) error {
	return Error(c, fiber.StatusForbidden, "Insufficient permissions")
}

func ValidationError(c *fiber.Ctx, message string) error {
	return ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_FAILED", message)
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return fiber.StatusBadRequest
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindConflict:
		return fiber.StatusConflict
	case apperrors.KindInsufficientFunds:
		return fiber.StatusUnprocessableEntity
	case apperrors.KindLockUnavailable:
		return fiber.StatusServiceUnavailable
	case apperrors.KindGateway:
		return fiber.StatusBadGateway
	case apperrors.KindUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError writes err as a JSON error. Internal, gateway and lock failures
// never expose their cause to the client.
func FromError(c *fiber.Ctx, err error) error {
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		return ErrorWithCode(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", RetryMessage)
	}

	status := StatusFor(de.Kind)
	message := de.Message
	switch de.Kind {
	case apperrors.KindInternal, apperrors.KindGateway, apperrors.KindLockUnavailable:
		message = RetryMessage
	}
	if de.Transient {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return ErrorWithCode(c, status, de.Code, message)
}
