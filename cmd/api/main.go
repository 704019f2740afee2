package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/stream"
	"github.com/spec-kit/helpdesk-service/pkg/email"
	"github.com/spec-kit/helpdesk-service/pkg/translate"
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

	pool := pg.PoolHandle()
	profileRepo := repository.NewProfileRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)

	var storageClient *storage.Client
	if cfg.Storage.Bucket != "" {
		storageClient, err = storage.New(cfg.Storage)
		if err != nil {
			logger.Fatal("failed to init storage", zap.Error(err))
		}
	} else {
		logger.Warn("STORAGE_BUCKET not provided; attachment uploads disabled")
	}

	dispatcher := events.NewInMemoryDispatcher()

	profileService := service.NewProfileService(*cfg, profileRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		ProfileRepo: profileRepo,
		Objects:     objectDeleter(storageClient),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, email.New(cfg.Email), logger)
	notificationService.RegisterHandlers()

	broker := stream.NewBroker(ticketRepo, messageRepo, redis.Client, logger)
	stream.BindDispatcher(dispatcher, broker)
	go broker.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(profileService.TokenManager(), profileService)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(profileService),
		Profiles:       handlers.NewProfilesHandler(profileService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Attachments:    handlers.NewAttachmentsHandler(storageClient),
		Translate:      handlers.NewTranslateHandler(translate.New(cfg.Translate), logger),
		Stream:         handlers.NewStreamHandler(broker, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

// objectDeleter keeps a typed nil out of the service's interface field when
// storage is not configured.
func objectDeleter(client *storage.Client) service.ObjectDeleter {
	if client == nil {
		return nil
	}
	return client
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
