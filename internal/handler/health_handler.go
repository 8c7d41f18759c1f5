package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/labreport-go-api/internal/config"
	"github.com/noah-isme/labreport-go-api/internal/utils"
)

// heartbeatKey records the last client keep-alive ping. Clients poll it
// on a timer so idle-scaled hosts stay warm while a report is open.
const heartbeatKey = "labreport:heartbeat"

const heartbeatTTL = 5 * time.Minute

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}

// Ping returns the keep-alive handler. Each call refreshes the heartbeat
// key; a missing cache degrades to a plain acknowledgement.
func Ping(cache *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now().UTC()
		if cache != nil {
			if err := cache.Set(c.Context(), heartbeatKey, now.Format(time.RFC3339), heartbeatTTL).Err(); err != nil {
				return utils.SendError(c, fiber.StatusServiceUnavailable, "heartbeat store unavailable")
			}
		}

		return utils.SendSuccess(c, "pong", fiber.Map{"timestamp": now})
	}
}
