package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/metrics"
)

// Metrics records Prometheus HTTP metrics labelled by the matched route
// template rather than the raw path.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		done := metrics.HTTPStarted()
		defer done()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		metrics.RecordHTTP(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
