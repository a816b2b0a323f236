package middleware

import (
	"errors"
	"strings"

	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	TenantHeader = "X-Tenant-ID"
	tenantKey    = "tenantID"
)

var errMissingTenant = errors.New("missing tenant header")

// Tenant rejects requests without a tenant header and stores the tenant for handlers.
func Tenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := strings.TrimSpace(c.Get(TenantHeader))
		if tenantID == "" {
			return service.NewServiceError(constants.ErrCodeMissingTenant, errMissingTenant)
		}

		c.Locals(tenantKey, tenantID)
		return c.Next()
	}
}

func TenantID(c *fiber.Ctx) string {
	tenantID, _ := c.Locals(tenantKey).(string)
	return tenantID
}
