package middleware

import (
	"errors"
	"fmt"

	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var serviceErr service.Error
		if errors.As(err, &serviceErr) {
			return handleServiceError(c, serviceErr, logger)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"code":    fiberErr.Code,
				"message": fiberErr.Message,
			})
		}

		logger.Error("Unhandled request error",
			zap.Error(err),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()))

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    constants.ErrCodeInternalError,
			"message": constants.GetErrorMessage(constants.ErrCodeInternalError),
		})
	}
}

func handleServiceError(c *fiber.Ctx, err service.Error, logger *zap.Logger) error {
	errorCode := err.Code

	status := constants.GetHTTPStatus(errorCode)
	if status == fiber.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("code", errorCode),
			zap.Error(err.Cause),
			zap.String("path", c.Path()))

		if errorCode != constants.ErrCodeInternalError && errorCode != constants.ErrCodeAllocationFailed {
			errorCode = constants.ErrCodeInternalError
		}
	}

	body := fiber.Map{
		"code":    errorCode,
		"message": constants.GetErrorMessage(errorCode),
	}

	var shortfall service.InsufficientCreditError
	if errors.As(err, &shortfall) {
		body["message"] = fmt.Sprintf("%s: %d sendable", constants.ErrMsgInsufficientCredit, shortfall.Sendable)
		body["requested"] = shortfall.Requested
		body["sendable"] = shortfall.Sendable
	}

	return c.Status(status).JSON(body)
}
