package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// Pinger reports connectivity of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a named readiness check. Ping returning Disabled marks it unconfigured.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Disabled error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies []Dependency
	now          func() time.Time
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, dependencies ...Dependency) *HealthHandler {
	return &HealthHandler{
		serviceName:  serviceName,
		version:      version,
		dependencies: dependencies,
		now:          time.Now,
	}
}

// Root GET / banner.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Issue Tracker API",
		"status":    "running",
		"timestamp": h.now().UTC(),
	})
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	for _, dep := range h.dependencies {
		err := dep.Pinger.Ping(ctx)
		switch {
		case err == nil:
			depStatus[dep.Name] = "ok"
		case dep.Disabled != nil && errors.Is(err, dep.Disabled):
			depStatus[dep.Name] = "disabled"
		default:
			depStatus[dep.Name] = err.Error()
			ready = false
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"success":      true,
			"status":       "ready",
			"service":      h.serviceName,
			"version":      h.version,
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"message": "one or more dependencies unavailable",
		"details": depStatus,
	})
}
