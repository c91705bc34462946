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
	"golang.org/x/time/rate"

	httptransport "github.com/spec-kit/mitra-marketplace/internal/api/http"
	"github.com/spec-kit/mitra-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/cache"
	"github.com/spec-kit/mitra-marketplace/internal/config"
	"github.com/spec-kit/mitra-marketplace/internal/events"
	"github.com/spec-kit/mitra-marketplace/internal/observability"
	"github.com/spec-kit/mitra-marketplace/internal/persistence"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	"github.com/spec-kit/mitra-marketplace/internal/service"
	"github.com/spec-kit/mitra-marketplace/internal/storage"
	"github.com/spec-kit/mitra-marketplace/internal/worker"
)

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

	metrics := observability.NewMetrics("mitra")

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.Pool
	if cfg.Postgres.RunMigrations && pool != nil {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger, map[string]string{
		"sessions": repository.SessionKeyPrefix,
		"views":    cfg.Cache.ViewKeyPrefix,
	})
	defer redis.Close()

	documents, err := storage.NewLocalStore(cfg.Storage.UploadDir, int64(cfg.Storage.MaxUploadBytes))
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	mitraRepo := repository.NewMitraRepository(pool)
	serviceRepo := repository.NewServiceRepository(pool)
	promoRepo := repository.NewPromoRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	sessionRepo := repository.NewSessionRepository(redis.Client)

	dispatcher := events.NewInMemoryDispatcher(logger)
	views := cache.NewViewCache(redis.Client, cfg.Cache.ViewKeyPrefix, cfg.Cache.ViewTTL(), logger, metrics)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	roles := auth.NewRoleResolver(roleRepo, cfg.Cache.RoleCacheSize, cfg.Cache.RoleTTL(), logger)

	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))
	worker.StartRoleCacheInvalidator(dispatcher, roles, logger)
	worker.StartViewInvalidator(dispatcher, views, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		AccountRepo: accountRepo,
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Roles:       roles,
		Documents:   documents,
		Dispatcher:  dispatcher,
		Tokens:      tokens,
		Logger:      logger,
	})
	verificationService := service.NewMitraVerificationService(service.MitraVerificationDependencies{
		MitraRepo:   mitraRepo,
		ProfileRepo: profileRepo,
		Views:       views,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	orderService := service.NewOrderService(orderRepo, profileRepo, serviceRepo)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.Storage.MaxUploadBytes * 3,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth: handlers.NewAuthHandler(authService, handlers.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
		}),
		Admin: handlers.NewAdminHandler(handlers.AdminServices{
			Verification: verificationService,
			Users:        service.NewUserAdminService(profileRepo, roleRepo, views, dispatcher, logger),
			Stats:        service.NewStatsService(roleRepo, mitraRepo, serviceRepo, views),
			Catalog:      service.NewCatalogService(serviceRepo, views, logger),
			Promos:       service.NewPromoService(promoRepo),
			Orders:       orderService,
			Finance:      service.NewFinanceService(orderRepo, profileRepo, serviceRepo),
		}),
		Dashboard:     handlers.NewDashboardHandler(service.NewDashboardService(userRepo, profileRepo, mitraRepo, orderService)),
		Authenticator: auth.NewAuthenticator(tokens, sessionRepo, cfg.Auth.CookieName),
		Guard:         auth.NewGuard(roles, metrics),
		AuthLimiter:   httptransport.NewRateLimiter(rate.Limit(cfg.RateLimit.AuthPerSecond), cfg.RateLimit.AuthBurst),
		Metrics:       metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
