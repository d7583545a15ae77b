package health

import (
	"encoding/json"
	"strconv"
	"time"

	healthsvc "stocksim-backend/internal/application/health"
	"stocksim-backend/internal/middleware"
	"stocksim-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "stocksim-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Probes         healthsvc.Probes
	HealthAdminKey string
}

// Reset clears request statistics. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	rdb := h.Probes.Redis
	if rdb == nil {
		return response.Error(c, "Redis not configured", fiber.StatusServiceUnavailable, nil)
	}
	ctx := c.UserContext()
	if err := rdb.Del(ctx, middleware.HealthKeys...).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	if err := rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON returns the collected health report.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.CollectHealth(c.UserContext(), h.Probes)
	return c.JSON(fiber.Map{
		"service":      serviceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
		"lastSync":     result.LastSync,
	})
}

// Errors returns the most recent 5xx entries, newest first.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if h.Probes.Redis == nil {
		return c.JSON([]interface{}{})
	}
	entries, err := h.Probes.Redis.LRange(c.UserContext(), middleware.KeyErrorLog, 0, 49).Result()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil && m != nil {
			out = append(out, m)
		}
	}
	return c.JSON(out)
}
