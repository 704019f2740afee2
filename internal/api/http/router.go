package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Profiles       *handlers.ProfilesHandler
	Tickets        *handlers.TicketsHandler
	Attachments    *handlers.AttachmentsHandler
	Translate      *handlers.TranslateHandler
	Stream         *handlers.StreamHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	profiles := api.Group("/profiles")
	profiles.Get("/me", cfg.Profiles.Me)
	profiles.Get("/workers", auth.RequireRole(domain.RoleAdmin), cfg.Profiles.ListWorkers)
	profiles.Put("/:uid/role", auth.RequireRole(domain.RoleAdmin), cfg.Profiles.ChangeRole)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Assign)
	tickets.Post("/:id/resolve", auth.RequireRole(domain.RoleWorker, domain.RoleAdmin), cfg.Tickets.Resolve)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Put("/:id/status", auth.RequireRole(domain.RoleWorker, domain.RoleAdmin), cfg.Tickets.UpdateStatus)

	api.Post("/attachments/presign", cfg.Attachments.Presign)
	api.Post("/translate", cfg.Translate.Translate)

	api.Get("/stream/tickets", cfg.Stream.StreamList)
	api.Get("/stream/tickets/:id", cfg.Stream.StreamTicket)
}
