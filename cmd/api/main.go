package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-tracker/internal/api/http"
	"github.com/spec-kit/issue-tracker/internal/api/http/handlers"
	"github.com/spec-kit/issue-tracker/internal/auth"
	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/events"
	"github.com/spec-kit/issue-tracker/internal/observability"
	"github.com/spec-kit/issue-tracker/internal/persistence"
	"github.com/spec-kit/issue-tracker/internal/repository"
	"github.com/spec-kit/issue-tracker/internal/service"
	"github.com/spec-kit/issue-tracker/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo    repository.UserRepository
		issueRepo   repository.IssueRepository
		historyRepo repository.IssueHistoryRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
		issueRepo = repository.NewIssueRepository(pool)
		historyRepo = repository.NewIssueHistoryRepository(pool)
	} else {
		if cfg.App.IsProduction() {
			logger.Fatal("POSTGRES_DSN is required in production")
		}
		store := repository.NewMemoryStore()
		userRepo, issueRepo, historyRepo = store.Users(), store.Issues(), store.History()
	}

	var statsCache service.StatsCache
	if redis.Enabled() {
		statsCache = persistence.NewStatsCache(redis.Client, cfg.Redis.StatsTTL())
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Logger:   logger,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:   issueRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Cache:       statsCache,
		Logger:      logger,
	})

	worker.StartEventWorkers(logger,
		service.NewNotificationService(dispatcher, logger),
		service.NewStatsInvalidator(dispatcher, statsCache),
		observability.NewEventMetrics(dispatcher, metrics),
	)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareOptions{
		Timeout:        cfg.App.RequestTimeout(),
		AllowedOrigins: cfg.App.AllowedOrigins,
		ExposeErrors:   !cfg.App.IsProduction(),
	})

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
		handlers.Dependency{Name: "postgres", Pinger: pg, Disabled: persistence.ErrPostgresDisabled},
		handlers.Dependency{Name: "redis", Pinger: redis, Disabled: persistence.ErrRedisDisabled},
	)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           handlers.NewAuthHandler(authService),
		Issues:         handlers.NewIssuesHandler(issueService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
