package handler_test

import (
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labreport-go-api/internal/config"
	"github.com/noah-isme/labreport-go-api/internal/handler"
)

func TestHealthReportsServiceMetadata(t *testing.T) {
	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(config.Config{AppName: "LabReport API", AppEnv: "test"}))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/health", "", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload handler.HealthResponse
	decodeData(t, resp, &payload)
	require.Equal(t, "ok", payload.Status)
	require.Equal(t, "LabReport API", payload.Service)
	require.Equal(t, "test", payload.Environment)
}

func TestPingRefreshesHeartbeatKey(t *testing.T) {
	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	app := fiber.New()
	app.Get("/api/v1/ping", handler.Ping(cache))

	resp := doJSON(t, app, http.MethodGet, "/api/v1/ping", "", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.True(t, mini.Exists("labreport:heartbeat"))
	require.Greater(t, mini.TTL("labreport:heartbeat").Seconds(), float64(0))
}
