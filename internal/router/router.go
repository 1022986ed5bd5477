package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/mongo-activity/internal/config"
	"github.com/noah-isme/mongo-activity/internal/handler"
	"github.com/noah-isme/mongo-activity/internal/middleware"
	"github.com/noah-isme/mongo-activity/internal/observability"
)

const defaultRecordRateLimit = 600

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityHandler     *handler.ActivityHandler
	AdminArchiveHandler *handler.AdminArchiveHandler
	Store               handler.Pinger
	JWTMiddleware       fiber.Handler
	RecordRateLimit     int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Store))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}
	authEnabled := cfg.JWTSecret != ""

	recordLimit := deps.RecordRateLimit
	if recordLimit <= 0 {
		recordLimit = defaultRecordRateLimit
	}

	if deps.ActivityHandler != nil {
		activities := api.Group("/activities")
		deps.ActivityHandler.Register(activities, handler.RouteGuards{
			Read: []fiber.Handler{jwtMiddleware, middleware.ScopeToSelf(authEnabled)},
			Write: []fiber.Handler{
				jwtMiddleware,
				middleware.RateLimit("activity_record", recordLimit, time.Minute),
			},
		})

		api.Get("/users/:id/activities", jwtMiddleware,
			middleware.SelfOrAdmin(authEnabled, "id", deps.ActivityHandler.FindByUser))
	}

	if deps.AdminArchiveHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(authEnabled, middleware.AuthRoleAdmin))
		deps.AdminArchiveHandler.Register(admin)
	}
}
