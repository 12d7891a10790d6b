package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/edusupport/helpdesk-service/internal/api/http"
	"github.com/edusupport/helpdesk-service/internal/api/http/handlers"
	"github.com/edusupport/helpdesk-service/internal/auth"
	"github.com/edusupport/helpdesk-service/internal/config"
	"github.com/edusupport/helpdesk-service/internal/events"
	"github.com/edusupport/helpdesk-service/internal/observability"
	"github.com/edusupport/helpdesk-service/internal/persistence"
	"github.com/edusupport/helpdesk-service/internal/repository"
	"github.com/edusupport/helpdesk-service/internal/security"
	"github.com/edusupport/helpdesk-service/internal/service"
	"github.com/edusupport/helpdesk-service/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo       repository.UserRepository
		sessionRepo    repository.RefreshSessionRepository
		ticketRepo     repository.TicketRepository
		messageRepo    repository.TicketMessageRepository
		attachmentRepo repository.AttachmentRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
		sessionRepo = repository.NewRefreshSessionRepository(pool)
		ticketRepo = repository.NewTicketRepository(pool)
		messageRepo = repository.NewTicketMessageRepository(pool)
		attachmentRepo = repository.NewAttachmentRepository(pool)
	} else {
		userRepo = repository.NewMemoryUserRepository()
		sessionRepo = repository.NewMemoryRefreshSessionRepository()
		attachmentRepo = repository.NewMemoryAttachmentRepository()
		ticketRepo = repository.NewMemoryTicketRepository(userRepo, attachmentRepo)
		messageRepo = repository.NewMemoryTicketMessageRepository(userRepo)
	}

	tokenManager, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}
	sessionManager := auth.NewSessionManager(sessionRepo, cfg.Auth.RefreshTokenTTL())
	limiter := security.NewLoginLimiter(redis.Client, cfg.Auth.LoginAttemptLimit, cfg.Auth.LoginAttemptWindow(), logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(service.AuthDependencies{
		Users:    userRepo,
		Tokens:   tokenManager,
		Sessions: sessionManager,
		Limiter:  limiter,
	}, cfg.Auth.BcryptCost)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Tickets:     ticketRepo,
		Messages:    messageRepo,
		Attachments: attachmentRepo,
		Dispatcher:  dispatcher,
	})

	authMiddleware := auth.NewMiddleware(tokenManager)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, cfg.Auth.RefreshTokenTTL(), cfg.App.Production()),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
