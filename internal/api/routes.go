package api

import (
	"encoding/base64"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *fiber.App, handler *Handler) {
	// Global middlewares
	app.Use(RequestID())
	app.Use(ErrorHandler())

	// Health checks (no rate limiting)
	app.Get("/health", handler.HealthCheck)
	app.Get("/ready", handler.ReadinessCheck)

	// Prometheus metrics endpoint (no rate limiting)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation (no rate limiting)
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 - rate limited and measured
	v1 := app.Group("/api/v1")
	v1.Use(RateLimiter(handler.cfg.RateLimit))
	v1.Use(MetricsMiddleware())

	// Phase aggregation routes
	phases := v1.Group("/phases")
	phases.Get("/aggregation", handler.GetPhaseAggregation)
	phases.Get("/chart", handler.GetChart)

	v1.Get("/periods", handler.GetPeriods)
	v1.Get("/cycles", handler.GetCycles)
	v1.Get("/datasets/stats", handler.GetDatasetStats)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(BasicAuth(handler.cfg.AdminUser, handler.cfg.AdminPass))
	admin.Post("/reload", handler.ReloadData)
	admin.Get("/stats", handler.GetSystemStats)
}

func BasicAuth(user, pass string) fiber.Handler {
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") != expected {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
