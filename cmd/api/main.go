package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ridedesk/internal/bootstrap"
	"ridedesk/internal/cache"
	"ridedesk/internal/config"
	"ridedesk/internal/database"
	"ridedesk/internal/handlers"
	"ridedesk/internal/identity"
	"ridedesk/internal/ids"
	"ridedesk/internal/jobs"
	"ridedesk/internal/kyc"
	"ridedesk/internal/log"
	"ridedesk/internal/media/capture"
	"ridedesk/internal/middleware"
	"ridedesk/internal/queue"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
	"ridedesk/internal/security"
	"ridedesk/internal/server"
	"ridedesk/internal/service"
	"ridedesk/internal/storage"
	"ridedesk/internal/telemetry"
	"ridedesk/internal/wizard"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.New(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init telemetry")
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()
	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	provider, err := identity.NewProvider(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init firebase")
	}

	prompts, err := kyc.LoadPrompts()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load prompts")
	}
	model, err := kyc.NewGeminiClient(ctx, cfg.Model, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init model client")
	}
	if cfg.Model.APIKey == "" {
		logger.Warn().Msg("model api key not set, verification submissions will fail")
	}
	verifier := kyc.NewVerifier(model, prompts, cfg.KYC.ModelTimeout, logger)

	numbers, err := ids.NewOrderNumbers(cfg.NodeID)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init order numbers")
	}

	users := repository.NewUserRepository(dbPool)
	sessions := repository.NewSessionRepository(dbPool)
	orders := repository.NewOrderRepository(dbPool)
	menu := repository.NewMenuRepository(dbPool)
	notificationRepo := repository.NewNotificationRepository(dbPool)
	verifications := repository.NewVerificationRepository(dbPool)
	drafts := wizard.NewStore(redisClient, cfg.KYC.DraftTTL)
	producer := queue.NewProducer(redisClient, cfg.Worker.Stream)

	hub := realtime.NewHub(logger)
	broker := realtime.NewBroker(redisClient, hub, logger)

	tokens := security.NewTokenIssuer(cfg.Security.JWTAccessSecret, cfg.Security.JWTAccessTTL)
	notifications := service.NewNotificationService(notificationRepo, broker, logger)

	handlerSet := handlers.NewHandlerSet(handlers.Deps{
		Log:              logger,
		Environment:      cfg.Environment,
		Tokens:           tokens,
		TicketSecret:     cfg.Security.JWTAccessSecret,
		TicketTTL:        cfg.Security.TicketTTL,
		SignatureSecret:  cfg.Security.SignatureSecret,
		RequireSignature: cfg.Security.RequireSignature,
		MaxUploadBytes:   cfg.KYC.MaxUploadMB << 20,
		AllowedOrigins:   cfg.AllowCORSOrigins,
		AuthLimiter:      middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute),

		Auth: service.NewAuthService(users, sessions, provider, tokens, cfg.Security, logger),
		Users: service.NewUserService(users, sessions, verifications, repository.NewPurgeRepository(dbPool),
			provider, producer, notifications, broker, logger),
		Verification: service.NewVerificationService(users, drafts, objectStore,
			capture.NewNormalizer(cfg.KYC.JPEGQuality), verifier, verifications, notifications, broker,
			cfg.KYC.ModelTimeout, logger),
		Orders:        service.NewOrderService(orders, menu, numbers, broker, logger),
		Menu:          service.NewMenuService(menu, broker, logger),
		Notifications: notifications,
		Dashboard:     service.NewDashboardService(users, orders, verifications, notificationRepo),

		UserLookup: users,
		Sessions:   sessions,
		Nonces:     cache.NewNonceStore(redisClient),
		Hub:        hub,
		Checks: []handlers.HealthCheck{
			{Name: "postgres", Ping: dbPool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			{Name: "storage", Ping: objectStore.Ping},
		},
	})

	if err := bootstrap.EnsureAdmin(ctx, cfg.Admin, users, logger); err != nil {
		logger.Fatal().Err(err).Msg("admin bootstrap failed")
	}

	scheduler := jobs.NewScheduler(producer, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })
	g.Go(func() error { return broker.Run(gctx) })

	err = g.Wait()
	shutdown(logger, err, scheduler, tp)
}

func shutdown(logger zerolog.Logger, runErr error, scheduler *jobs.Scheduler, tp *telemetry.Provider) {
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error().Err(runErr).Msg("server stopped with error")
	}
	logger.Info().Msg("shutting down")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown failed")
	}

	logger.Info().Msg("server exited cleanly")
}
