package serverutils

import (
	"errors"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

var kindStatus = map[error]int{
	apperror.ErrValidation:          fiber.StatusBadRequest,
	apperror.ErrUnauthorized:        fiber.StatusUnauthorized,
	apperror.ErrNotFound:            fiber.StatusNotFound,
	apperror.ErrAlreadyExists:       fiber.StatusConflict,
	apperror.ErrPayloadTooLarge:     fiber.StatusRequestEntityTooLarge,
	apperror.ErrExtractionFailed:    fiber.StatusUnprocessableEntity,
	apperror.ErrRateLimited:         fiber.StatusTooManyRequests,
	apperror.ErrStore:               fiber.StatusBadGateway,
	apperror.ErrProviderUnavailable: fiber.StatusServiceUnavailable,
}

// StatusFor maps an error to its HTTP status and client-facing message.
func StatusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	if kind := apperror.KindOf(err); kind != nil {
		return kindStatus[kind], err.Error()
	}

	return fiber.StatusInternalServerError, "internal server error"
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": code,
				"error":  err.Error(),
			})
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
