package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/edusupport/helpdesk-service/internal/api/http/handlers"
	"github.com/edusupport/helpdesk-service/internal/auth"
	"github.com/edusupport/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/register", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleSupport), cfg.Auth.Register)
	authGroup.Get("/profile", cfg.AuthMiddleware.Handle, cfg.Auth.Profile)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", auth.RequireRole(domain.RoleSupport), cfg.Tickets.List)
	tickets.Get("/user", cfg.Tickets.ListOwn)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Put("/:id/status", auth.RequireRole(domain.RoleSupport), cfg.Tickets.UpdateStatus)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)
}
