package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/campus-helpdesk/internal/auth"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Threads        *handlers.TicketsHandler
	Departments    *handlers.DepartmentsHandler
	Analytics      *handlers.AnalyticsHandler
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	supervisors := auth.RequireRole(auth.SupervisorRoles...)
	staff := auth.RequireRole(auth.StaffRoles...)

	threads := app.Group("/threads", cfg.AuthMiddleware.Handle, auth.RequireRole())
	threads.Get("/", cfg.Threads.ListThreads)
	threads.Post("/", auth.RequireRole(domain.RoleStudent), cfg.Threads.CreateThread)
	threads.Get("/statistics", supervisors, cfg.Threads.Statistics)
	threads.Get("/:id", cfg.Threads.GetThread)
	threads.Patch("/:id", staff, cfg.Threads.UpdateThread)
	threads.Post("/:id/assign", supervisors, cfg.Threads.AssignThread)
	threads.Post("/:id/escalate", auth.RequireRole(domain.RoleManager, domain.RoleDepartment), cfg.Threads.EscalateThread)
	threads.Get("/:id/history", staff, cfg.Threads.ThreadHistory)
	threads.Get("/:id/messages", cfg.Threads.ListMessages)
	threads.Post("/:id/messages", cfg.Threads.PostMessage)

	departments := app.Group("/departments", cfg.AuthMiddleware.Handle, auth.RequireRole())
	departments.Get("/", cfg.Departments.List)
	departments.Get("/:id", cfg.Departments.Get)
	departments.Post("/", supervisors, cfg.Departments.Create)
	departments.Patch("/:id", supervisors, cfg.Departments.Update)
	departments.Delete("/:id", supervisors, cfg.Departments.Delete)

	analytics := app.Group("/analytics", cfg.AuthMiddleware.Handle, supervisors)
	analytics.Get("/overview", cfg.Analytics.Overview)
}
