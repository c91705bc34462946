package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/mitra-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Admin         *handlers.AdminHandler
	Dashboard     *handlers.DashboardHandler
	Authenticator *auth.Authenticator
	Guard         *auth.Guard
	AuthLimiter   *RateLimiter
	Metrics       *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Guarded views answer unauthorized callers
// with 303 redirects.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	limit := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.AuthLimiter != nil {
		limit = cfg.AuthLimiter.Handler()
	}
	identify := cfg.Authenticator.Identify

	authGroup := app.Group("/auth")
	authGroup.Post("/register", limit, cfg.Auth.Register)
	authGroup.Post("/register-mitra", limit, cfg.Auth.RegisterMitra)
	authGroup.Post("/login", limit, cfg.Auth.Login)
	authGroup.Post("/logout", identify, cfg.Auth.Logout)
	authGroup.Get("/session", identify, cfg.Auth.Session)
	authGroup.Post("/refresh", cfg.Authenticator.Require, cfg.Auth.Refresh)
	authGroup.Get("/role", cfg.Authenticator.Require, cfg.Auth.Role)

	app.Get("/dashboard", identify, cfg.Guard.Require(domain.RoleCustomer), cfg.Dashboard.Customer)
	app.Get("/mitra", identify, cfg.Guard.Require(domain.RoleMitra), cfg.Dashboard.Mitra)

	admin := app.Group("/admin", identify, cfg.Guard.Require(domain.RoleAdmin))
	admin.Get("", cfg.Admin.Stats)
	admin.Get("/mitra-verification", cfg.Admin.ListMitra)
	admin.Post("/mitra-verification/:id/approve", cfg.Admin.ApproveMitra)
	admin.Post("/mitra-verification/:id/reject", cfg.Admin.RejectMitra)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Put("/users/:id/role", cfg.Admin.UpdateUserRole)
	admin.Get("/services", cfg.Admin.ListServices)
	admin.Post("/services", cfg.Admin.CreateService)
	admin.Put("/services/:id", cfg.Admin.UpdateService)
	admin.Delete("/services/:id", cfg.Admin.DeleteService)
	admin.Get("/promos", cfg.Admin.ListPromos)
	admin.Post("/promos", cfg.Admin.CreatePromo)
	admin.Put("/promos/:id", cfg.Admin.UpdatePromo)
	admin.Delete("/promos/:id", cfg.Admin.DeletePromo)
	admin.Get("/orders", cfg.Admin.ListOrders)
	admin.Get("/finance", cfg.Admin.Finance)
}
