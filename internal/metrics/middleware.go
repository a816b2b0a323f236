package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const slowRequestThreshold = time.Second

// unobserved paths are scraped or polled by infrastructure and would only
// drown the request histograms.
var unobserved = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ping":    {},
}

func HTTPMetricsMiddleware(m *Metrics, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, skip := unobserved[c.Path()]; skip {
			return c.Next()
		}

		start := time.Now()
		if m != nil {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()
		}

		err := c.Next()
		elapsed := time.Since(start)

		// Route templates keep label cardinality bounded (/campaigns/:id, not ids).
		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		status := c.Response().StatusCode()
		m.RecordHTTPRequest(c.Method(), path, strconv.Itoa(status), elapsed, len(c.Response().Body()))

		if elapsed > slowRequestThreshold {
			logger.Warn("Slow HTTP request",
				zap.String("method", c.Method()),
				zap.String("route", path),
				zap.Int("status", status),
				zap.Duration("duration", elapsed),
				zap.String("requestID", c.GetRespHeader(fiber.HeaderXRequestID)))
		}

		return err
	}
}
