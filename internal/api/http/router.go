package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/observability"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Issues         *handlers.IssuesHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Ready)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	issues := api.Group("/issues", cfg.AuthMiddleware.Handle)
	issues.Get("/", cfg.Issues.ListIssues)
	issues.Post("/", cfg.Issues.CreateIssue)
	// registered before /:id so "stats" is not read as an id
	issues.Get("/stats", cfg.Issues.Stats)
	issues.Get("/:id", cfg.Issues.GetIssue)
	issues.Put("/:id", cfg.Issues.UpdateIssue)
	issues.Delete("/:id", cfg.Issues.DeleteIssue)
	issues.Get("/:id/history", cfg.Issues.History)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("Route", nil)
	})
}
