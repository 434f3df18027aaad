package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-assistant/internal/api/http"
	"github.com/spec-kit/support-assistant/internal/api/http/handlers"
	"github.com/spec-kit/support-assistant/internal/auth"
	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/gateway"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/persistence"
	"github.com/spec-kit/support-assistant/internal/repository"
	"github.com/spec-kit/support-assistant/internal/service"
	"github.com/spec-kit/support-assistant/internal/session"
	"github.com/spec-kit/support-assistant/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	gatewayClient := gateway.NewClient(cfg.Gateway)

	var store session.Store = session.NewRedisStore(redis.Client, cfg.Session.TTL())
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable; sessions held in memory", zap.Error(err))
		store = session.NewMemoryStore()
	}

	var offlineRepo repository.OfflineTicketRepository
	if pool := pg.PoolHandle(); pool != nil {
		offlineRepo = repository.NewOfflineTicketRepository(pool)
	}

	resolver := service.NewResolutionService(service.ResolutionDependencies{
		Gateway:    gatewayClient,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	submitter := service.NewSubmissionService(service.SubmissionDependencies{
		Gateway:     gatewayClient,
		OfflineRepo: offlineRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		Rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	statusService := service.NewStatusService(gatewayClient, logger)

	responder := service.NewResponder(rand.New(rand.NewSource(time.Now().UnixNano())))
	if cfg.Responder.RulesPath != "" {
		if err := responder.LoadRules(cfg.Responder.RulesPath); err != nil {
			logger.Warn("failed to load responder rules, using defaults",
				zap.String("path", cfg.Responder.RulesPath), zap.Error(err))
		}
	}

	conversations := service.NewConversationService(service.ConversationDependencies{
		Store:      store,
		Resolver:   resolver,
		Submitter:  submitter,
		Status:     statusService,
		Responder:  responder,
		Dispatcher: dispatcher,
		Logger:     logger,
		Notify:     cfg.Notification,
	})

	notifications := service.NewNotificationService(dispatcher, gatewayClient, logger, cfg.Notification)
	notifications.RegisterHandlers()

	syncWorker := worker.NewSyncWorker(offlineRepo, gatewayClient, dispatcher, logger, cfg.Notification.SyncInterval())
	go syncWorker.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Session.TokenSecret, cfg.Session.TokenTTLMinutes)
	sessionMiddleware := auth.NewSessionMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(redis)
	chatHandler := handlers.NewChatHandler(conversations, tokens)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            healthHandler,
		Chat:              chatHandler,
		SessionMiddleware: sessionMiddleware,
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
