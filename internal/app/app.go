package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nairatrade/deposits/internal/api"
	"github.com/nairatrade/deposits/internal/api/middleware"
	"github.com/nairatrade/deposits/internal/config"
	"github.com/nairatrade/deposits/internal/db"
	"github.com/nairatrade/deposits/internal/gateway"
	"github.com/nairatrade/deposits/internal/notify"
	"github.com/nairatrade/deposits/internal/observability"
	"github.com/nairatrade/deposits/internal/referral"
	"github.com/nairatrade/deposits/internal/repository"
	"github.com/nairatrade/deposits/internal/service"
	"github.com/nairatrade/deposits/internal/settings"
	"github.com/nairatrade/deposits/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and background workers, blocking until
// shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewStore(pool)

	var notifier notify.Dispatcher = notify.NopDispatcher{}
	if cfg.KafkaBroker != "" {
		kafkaDispatcher := notify.NewKafkaDispatcher(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaSASLUsername, cfg.KafkaSASLPassword)
		defer kafkaDispatcher.Close()
		notifier = kafkaDispatcher
	}

	var cascade referral.Cascade = referral.NopCascade{}
	if cfg.ReferralServiceURL != "" {
		cascade = referral.NewHTTPCascade(cfg.ReferralServiceURL, 5*time.Second)
	}

	cardGateway := gateway.NewCardGateway(cfg.CardGatewayBaseURL, cfg.CardGatewaySecretKey, cfg.GatewayRequestTimeout)
	momoGateway := gateway.NewMomoGateway(cfg.MomoGatewayBaseURL, cfg.MomoGatewayAPIKey, cfg.MomoWebhookSecret, cfg.GatewayRequestTimeout)
	gateways := map[string]gateway.Gateway{
		"card": cardGateway,
		"momo": momoGateway,
	}

	settingsStore := settings.NewStore(store.Queries(), redisClient, cfg.SettingsCacheTTL)
	validator := service.NewWhitelistValidator(store, cfg.WhitelistCacheTTL)
	paymentSvc := service.NewPaymentService(store, validator, settingsStore, gateways, notifier)
	accountSvc := service.NewAccountService(store)

	providers := service.NewProviders(cfg.ManualWebhookHMACKey, cardGateway, momoGateway)
	reconcileSvc := service.NewReconcileService(store, providers, cascade, notifier)

	expirySvc := service.NewExpiryService(store, gateways, reconcileSvc, cfg.ExpiryMaxPendingAge)
	integritySvc := service.NewIntegrityService(store)

	expiryWorker := worker.NewExpiryWorker(expirySvc).
		WithPollInterval(cfg.ExpiryPollInterval).
		WithBatchSize(cfg.ExpiryBatchSize)
	integrityWorker := worker.NewIntegrityWorker(integritySvc).
		WithPollInterval(cfg.IntegrityPollInterval)

	stopExpiry := expiryWorker.Run(ctx)
	stopIntegrity := integrityWorker.Run(ctx)

	router := api.NewRouter(api.RouterOptions{
		DB:               pool,
		Redis:            redisClient,
		Payments:         paymentSvc,
		Accounts:         accountSvc,
		Reconciler:       reconcileSvc,
		Logger:           logger,
		PublicRPS:        cfg.PublicRateLimitRPS,
		AuthenticatedRPS: cfg.AuthRateLimitRPS,
		DevAuthEnabled:   cfg.DevAuthEnabled,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopExpiry()
	stopIntegrity()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
