package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request. Client rejections log at
// warn, server failures at error.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID, _ := c.Locals(requestIDHeader).(string); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if userID, _ := c.Locals("user_id").(string); userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}

		switch {
		case err == nil:
			logger.Info("request completed", attrs...)
		case status < fiber.StatusInternalServerError:
			logger.Warn("request rejected", append(attrs, slog.String("error", fe.Message))...)
		default:
			logger.Error("request failed", append(attrs, slog.Any("error", err))...)
		}
		return err
	}
}
