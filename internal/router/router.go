package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/labreport-go-api/internal/config"
	"github.com/noah-isme/labreport-go-api/internal/handler"
	"github.com/noah-isme/labreport-go-api/internal/middleware"
	"github.com/noah-isme/labreport-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	TemplateHandler *handler.TemplateHandler
	ReportHandler   *handler.ReportHandler
	EventsHandler   *handler.EventsHandler
	PingHandler     fiber.Handler
	JWTMiddleware   fiber.Handler
	HintLimiter     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	if deps.PingHandler != nil {
		api.Get("/ping", deps.PingHandler)
	}
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teacherOnly := middleware.RequireRole("teacher")
	graderOnly := middleware.RequireRole("teacher", "assistant")

	// Refresh must stay reachable with an expired access token.
	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}

	templates := api.Group("/templates", jwtMiddleware)
	if deps.TemplateHandler != nil {
		deps.TemplateHandler.Register(templates, teacherOnly)
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterTemplateScoped(templates)
		reports := api.Group("/reports", jwtMiddleware)
		deps.ReportHandler.Register(reports, graderOnly, deps.HintLimiter)
	}

	if deps.EventsHandler != nil {
		events := api.Group("/events", jwtMiddleware)
		deps.EventsHandler.Register(events)
	}
}
