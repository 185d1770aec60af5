package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	apistorage "github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/storage"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/config"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/transcription"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker"
	workerstorage "github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker/storage"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/logger"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/postgresql"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/rabbitmq"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	transcriber := initTranscriber(&cfg.Transcription, appLogger.Logger)

	// The worker only advances jobs; creation and dispatch stay in the API service
	orchestrator := worker.NewOrchestrator(worker.Options{
		Transcripts: apistorage.NewStorage(dbClient),
		Progress:    workerstorage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Transcriber: transcriber,
		Logger:      appLogger.Logger,
	})

	pool := worker.NewPool(cfg.App.Name, cfg.Worker.Concurrency, cfg.Worker.QueueSize, appLogger.Logger)
	consumer := worker.NewConsumer(
		rabbitClient,
		pool,
		orchestrator.Handle,
		cfg.App.Name,
		cfg.RabbitMQ.Consumer.PrefetchCount,
		appLogger.Logger,
	)

	// Runs get their own context so stopping deliveries does not cut them short
	runCtx, abortRuns := context.WithCancel(context.Background())
	defer abortRuns()

	consumeCtx, stopConsuming := context.WithCancel(context.Background())
	defer stopConsuming()

	pool.Start(runCtx, consumer.Handle)

	// Start consuming in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := consumer.Run(consumeCtx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Stop taking deliveries, then let in-flight runs finish. Runs abandoned at
	// the timeout stay processing and their messages are requeued.
	stopConsuming()

	if err := pool.Drain(cfg.Worker.ShutdownTimeout, abortRuns); err != nil {
		appLogger.Warn("Worker shutdown timeout exceeded, abandoning runs",
			slog.Any("error", err),
			slog.Any("running", orchestrator.Registry().Running()),
		)
	} else {
		appLogger.Info("Worker stopped gracefully")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		URL:             cfg.URL,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initTranscriber builds the provider chain from config
func initTranscriber(cfg *config.TranscriptionConfig, logger *slog.Logger) *transcription.Client {
	return transcription.NewClient(transcription.Config{
		Timeout: cfg.Timeout,
		TempDir: cfg.TempDir,
		OpenAI: transcription.ProviderSettings{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		},
		Groq: transcription.ProviderSettings{
			APIKey:  cfg.Groq.APIKey,
			BaseURL: cfg.Groq.BaseURL,
			Model:   cfg.Groq.Model,
		},
	}, logger)
}
