package middleware

import (
	"errors"

	"officeflow/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every error as status + {"error": message}.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID, _ := c.Locals("request_id").(string)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		var ae *apperr.AppError
		if errors.As(err, &ae) {
			ev := log.Warn()
			if ae.Status >= 500 {
				ev = log.Error()
			}
			ev.Err(ae.Err).Str("request_id", requestID).Str("code", ae.Code).Msg(ae.Message)
			return c.Status(ae.Status).JSON(fiber.Map{"error": ae.PublicMessage()})
		}

		log.Error().Err(err).Str("request_id", requestID).Msg("unexpected error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
