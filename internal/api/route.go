package api

import (
	"time"

	v1 "github.com/Behyna/sms-services/creditgateway/internal/api/v1"
	"github.com/Behyna/sms-services/creditgateway/internal/api/v1/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	prefixV1    = "/api/v1/"
	serviceName = "creditgateway"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck() error
}

func SetupRoutes(app *fiber.App, handler *v1.Handler, db HealthChecker) {
	app.Get("/ping", handler.Pong)
	app.Get("/health", health(db))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/webhooks/delivery", handler.DeliveryWebhook)

	tenant := middleware.Tenant()
	app.Post(prefixV1+"campaigns", tenant, handler.SubmitCampaign)
	app.Get(prefixV1+"campaigns/:id", tenant, handler.GetCampaign)
	app.Post(prefixV1+"campaigns/:id/cancel", tenant, handler.CancelCampaign)
	app.Post(prefixV1+"credits/estimate", tenant, handler.EstimateCost)
	app.Post(prefixV1+"pools/charge", tenant, handler.CreateCharge)
	app.Post(prefixV1+"pools/:id/confirm", tenant, handler.ConfirmCharge)
}

func health(db HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		if db != nil && db.HealthCheck() != nil {
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().Unix(),
			"service":   serviceName,
		})
	}
}
