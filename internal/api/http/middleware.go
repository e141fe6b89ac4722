package http

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/observability"
	apperrors "github.com/spec-kit/issue-tracker/pkg/util/errorutil"
)

// MiddlewareOptions tunes the global middleware chain.
type MiddlewareOptions struct {
	Timeout        time.Duration
	AllowedOrigins []string
	// ExposeErrors adds the underlying cause to 500 responses. Disabled in production.
	ExposeErrors bool
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, opts MiddlewareOptions) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	app.Use(errorHandlingMiddleware(logger, metrics, opts.ExposeErrors))
	if opts.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(opts.Timeout))
	}
}

// corsConfig allows credentials only for an explicit origin list; fiber rejects them with a wildcard.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = strings.Join(origins, ",")
		cfg.AllowCredentials = true
	}
	return cfg
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics, exposeErrors bool) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				err = writeError(c, logger, metrics, err, exposeErrors)
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error, exposeErrors bool) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(routePath(c), c.Method(), domainErr.Code)

	response := fiber.Map{
		"success": false,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		response["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(domainErr))
		if exposeErrors && domainErr.Err != nil {
			response["error"] = domainErr.Err.Error()
		}
	}
	return c.Status(domainErr.HTTPStatus).JSON(response)
}

func routePath(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}
