package serverutils

import (
	"errors"

	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON error
// bodies. Engine errors map by kind; anything unclassified is a 503 since it
// comes from storage or another collaborator.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse("HTTP_ERROR", fiberErr.Message))
		}

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			body := ErrorResponse("VALIDATION_FAILED", validationErr.Error())
			body.Details = validationErr.Fields
			return ctx.Status(fiber.StatusBadRequest).JSON(body)
		}

		kind := apperror.KindOf(err)
		status := StatusFor(kind)

		switch kind {
		case apperror.KindFatal:
			log.Error("HTTP", "Invariant violation", map[string]interface{}{
				"path":  ctx.Path(),
				"error": err.Error(),
			})
			return ctx.Status(status).JSON(ErrorResponse(apperror.CodeOf(err), "internal error"))
		case apperror.KindCollaborator:
			log.Warn("HTTP", "Collaborator failure", map[string]interface{}{
				"path":  ctx.Path(),
				"error": err.Error(),
			})
		}

		body := ErrorResponse(apperror.CodeOf(err), err.Error())
		body.Retryable = apperror.IsRetryable(err)
		return ctx.Status(status).JSON(body)
	}
}

func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindUnauthorized:
		return fiber.StatusForbidden
	case apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindFatal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusServiceUnavailable
	}
}
