package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mneebet/config"
	"mneebet/database"
	"mneebet/events"
	"mneebet/handlers"
	"mneebet/infrastructure"
	"mneebet/infrastructure/observability"
	"mneebet/repository"
	"mneebet/repository/memory"
	"mneebet/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and serves the ledger until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"storage":     cfg.StorageBackend,
	}).Info("Starting bet ledger...")

	eventBus := events.NewBus()
	infrastructure.SubscribeEventLogger(eventBus)

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.Subscribe(eventBus)

	uowFactory, healthCheck, closeStorage, err := openStorage(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	defer closeStorage()

	var natsClient *infrastructure.NATSClient
	if cfg.NATSServers != "" {
		natsClient, err = connectNATS(ctx, cfg, eventBus, metrics)
		if err != nil {
			return err
		}
	} else {
		log.Info("NATS_SERVERS not set, events stay in-process")
	}

	clock := service.SystemClock{}
	services := handlers.Services{
		Registry: service.NewRegistryService(uowFactory, clock),
		Tokens: service.NewTokenService(uowFactory, service.TokenConfig{
			Symbol:          cfg.TokenSymbol,
			Decimals:        cfg.TokenDecimals,
			FaucetEnabled:   cfg.FaucetEnabled,
			FaucetMaxAmount: cfg.FaucetMaxAmount,
		}),
		Transfers: service.NewTransferService(uowFactory),
		Bets: service.NewBetService(uowFactory, service.BetRules{
			MinAmount:           cfg.MinBetAmount,
			MinDeadlineBuffer:   cfg.MinDeadlineBuffer,
			MinTermsLength:      cfg.MinTermsLength,
			RequireNeutralJudge: cfg.RequireNeutralJudge,
		}, clock),
		Queries: service.NewQueryService(uowFactory),
	}

	router := handlers.NewRouter(services, handlers.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		Release:     cfg.IsProduction(),
		HealthCheck: healthCheck,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	log.Info("Shutting down bet ledger...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

// ConfigureLogging applies the level and formatter for the environment
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func openStorage(ctx context.Context, cfg *config.Config, eventBus *events.Bus) (service.UnitOfWorkFactory, func(context.Context) error, func(), error) {
	if cfg.StorageBackend == config.StorageBackendMemory {
		log.Warn("Using in-memory storage; state is lost on restart")
		return memory.NewUnitOfWorkFactory(memory.NewStore(), eventBus), nil, func() {}, nil
	}

	dbURL := cfg.GetDatabaseURL()
	if err := database.RunMigrationsWithURL(dbURL); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, dbURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return repository.NewUnitOfWorkFactory(db, eventBus), db.Ping, db.Close, nil
}

func connectNATS(ctx context.Context, cfg *config.Config, eventBus *events.Bus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	client := infrastructure.NewNATSClient(cfg.NATSServers, cfg.OTelServiceName)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, err
	}

	publisher := infrastructure.NewNATSEventPublisher(client, infrastructure.NewEventSubjectMapper(), metrics)
	if err := publisher.EnsureStream(client); err != nil {
		_ = client.Close()
		return nil, err
	}
	publisher.Subscribe(eventBus)

	return client, nil
}
