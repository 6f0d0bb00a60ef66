package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/demonlist-ranking/internal/config"
	"github.com/demonlist-ranking/internal/handler"
	"github.com/demonlist-ranking/internal/kafka"
	"github.com/demonlist-ranking/internal/memstore"
	"github.com/demonlist-ranking/internal/postgres"
	"github.com/demonlist-ranking/internal/redis"
	"github.com/demonlist-ranking/internal/service"
	"github.com/demonlist-ranking/internal/session"
	"github.com/demonlist-ranking/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	envErr := godotenv.Load()

	// Load configuration
	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Debug("no .env file found, reading environment variables directly")
	}
	if cfgErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", cfgErr)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store    service.Store
		sessions service.SessionStore
		sweeper  worker.SessionSweeper
		checks   = map[string]handler.Pinger{}
	)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := memstore.New()
		store = mem
		memSessions := session.NewMemoryStore()
		sessions = memSessions
		sweeper = memSessions
		checks["store"] = mem

	default:
		// Initialize PostgreSQL
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		pg, err := postgres.NewStore(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		logger.Info("connected to PostgreSQL")

		// Run database migrations
		if err := pg.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		// Initialize Redis
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisSessions, err := redis.NewSessionStore(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisSessions.Close()
		logger.Info("connected to Redis")

		store = pg
		sessions = redisSessions
		checks["postgres"] = pg
		checks["redis"] = redisSessions
	}

	// Initialize event publisher
	var publisher service.EventPublisher = service.NoopPublisher()
	if cfg.Kafka.EventsEnabled {
		eventPublisher, err := kafka.NewEventPublisher(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka event publisher, continuing without events", "error", err)
		} else {
			defer eventPublisher.Close()
			publisher = eventPublisher
			logger.Info("publishing moderation events", "topic", cfg.Kafka.EventsTopic)
		}
	}

	// Initialize services
	services := handler.Services{
		Demons:      service.NewDemonService(store, publisher, logger),
		Records:     service.NewRecordService(store, publisher, logger),
		Packs:       service.NewPackService(store, logger),
		Leaderboard: service.NewLeaderboardService(store, &cfg.Leaderboard, logger),
		Users:       service.NewUserService(store, sessions, &cfg.Auth, logger),
	}

	// Initialize Kafka consumer for bulk record submissions
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.ConsumerEnabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.SubmissionsTopic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, services.Records, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Start maintenance worker
	var maintenance *worker.MaintenanceWorker
	if cfg.Maintenance.Enabled {
		maintenance = worker.NewMaintenanceWorker(sweeper, services.Demons, &cfg.Maintenance, logger)
		if err := maintenance.Start(ctx); err != nil {
			logger.Warn("failed to start maintenance worker", "error", err)
			maintenance = nil
		}
	}

	httpHandler := handler.NewHandler(services, checks, &cfg.Server, &cfg.Auth, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop maintenance worker
	if maintenance != nil {
		if err := maintenance.Stop(); err != nil {
			logger.Error("failed to stop maintenance worker", "error", err)
		}
	}

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
