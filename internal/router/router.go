package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oakbyte/pulse-api/internal/config"
	"github.com/oakbyte/pulse-api/internal/handler"
	"github.com/oakbyte/pulse-api/internal/middleware"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler           *handler.AuthHandler
	UserHandler           *handler.UserHandler
	AdminHandler          *handler.AdminHandler
	ActivityHandler       *handler.ActivityHandler
	ActivityStreamHandler *handler.ActivityStreamHandler
	StatsHandler          *handler.StatsHandler
	JWTMiddleware         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", cfg.LoginRateLimit, time.Minute))
		deps.AuthHandler.Register(auth)

		authProtected := api.Group("/auth", jwtMiddleware)
		deps.AuthHandler.RegisterProtected(authProtected)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	if deps.ActivityHandler != nil {
		// Manual submissions from any authenticated client; reporting and
		// cleanup stay behind the admin roles.
		record := api.Group("/activities", jwtMiddleware)
		deps.ActivityHandler.RegisterRecord(record)

		activities := api.Group("/activities", jwtMiddleware,
			middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
		deps.ActivityHandler.Register(activities)
	}

	if deps.ActivityStreamHandler != nil {
		stream := api.Group("/activities", jwtMiddleware,
			middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
		deps.ActivityStreamHandler.Register(stream)
	}

	admin := api.Group("/admin", jwtMiddleware,
		middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

	if deps.StatsHandler != nil {
		stats := admin.Group("/stats")
		deps.StatsHandler.Register(stats)
	}

	if deps.UserHandler != nil {
		adminUsers := admin.Group("/users")
		deps.UserHandler.RegisterAdmin(adminUsers)
	}

	if deps.AdminHandler != nil {
		accounts := admin.Group("/accounts", middleware.RequireRole(models.RoleSuperAdmin))
		deps.AdminHandler.Register(accounts)
	}
}
