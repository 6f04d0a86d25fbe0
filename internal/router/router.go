package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kadalzz/edu-project-sub000/internal/config"
	"github.com/Kadalzz/edu-project-sub000/internal/handler"
	"github.com/Kadalzz/edu-project-sub000/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	AttemptHandler    *handler.AttemptHandler
	GradingHandler    *handler.GradingHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	teacher := api.Group("/teacher", jwtMiddleware, middleware.RequireRole(middleware.RoleTeacher))
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(teacher.Group("/assignments"))
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(teacher)
	}

	if deps.AttemptHandler != nil {
		student := api.Group("/student", jwtMiddleware, middleware.RequireRole(middleware.RoleStudent))
		deps.AttemptHandler.Register(student)
	}
}
