package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/handler"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/router"
	apistorage "github.com/Myo-Myint-Han/audio-transcript-pro/internal/api/storage"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/auth"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/blob"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/config"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/migrations"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/transcription"
	"github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker"
	workerstorage "github.com/Myo-Myint-Han/audio-transcript-pro/internal/worker/storage"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/logger"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/postgresql"
	"github.com/Myo-Myint-Han/audio-transcript-pro/shared/rabbitmq"
	"github.com/gin-gonic/gin"
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
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("dispatch", cfg.Worker.Dispatch),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	if cfg.Database.AutoMigrate {
		if err := dbClient.Migrate(context.Background(), migrations.FS); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	appLogger.Info("Database connection established")

	gateway, err := auth.NewGateway(cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	blobs, err := initBlobStore(&cfg.Storage, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	transcriber := initTranscriber(&cfg.Transcription, appLogger.Logger)
	for _, p := range transcriber.Status() {
		appLogger.Info("Transcription provider",
			slog.String("provider", p.Name),
			slog.Bool("configured", p.Configured),
		)
	}

	// Pick how jobs are advanced: in-process pool or the worker service
	var (
		pool         *worker.Pool
		rabbitClient *rabbitmq.Client
		dispatcher   worker.Dispatcher
	)
	switch cfg.Worker.Dispatch {
	case config.DispatchQueue:
		rabbitClient, err = initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		appLogger.Info("RabbitMQ connection established")
		dispatcher = worker.NewQueueDispatcher(rabbitClient)
	default:
		pool = worker.NewPool(cfg.App.Name, cfg.Worker.Concurrency, cfg.Worker.QueueSize, appLogger.Logger)
		dispatcher = worker.NewLocalDispatcher(pool)
	}

	store := apistorage.NewStorage(dbClient)
	orchestrator := worker.NewOrchestrator(worker.Options{
		Transcripts:    store,
		Progress:       workerstorage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Transcriber:    transcriber,
		Dispatcher:     dispatcher,
		Logger:         appLogger.Logger,
		CancelOnDelete: cfg.Worker.CancelOnDelete,
	})

	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	if pool != nil {
		pool.Start(poolCtx, orchestrator.Handle)
	}

	// Initialize router
	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:      appLogger.Logger,
		ServiceName: cfg.App.Name,
		Users:       store,
		Auth:        gateway,
		Blobs:       blobs,
		Jobs:        orchestrator,
		Providers:   transcriber,
		DB:          dbClient,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	// In-flight runs keep their checkpoints; anything cut short stays processing
	if pool != nil {
		if err := pool.Drain(cfg.Worker.ShutdownTimeout, stopPool); err != nil {
			appLogger.Warn("Worker pool shutdown incomplete",
				slog.Any("error", err),
				slog.Any("running", orchestrator.Registry().Running()),
			)
		}
	}

	appLogger.Info("Server shutdown complete")
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

// initBlobStore opens the configured upload backend
func initBlobStore(cfg *config.StorageConfig, logger *slog.Logger) (blob.Store, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store, err := blob.NewS3Store(ctx, blob.S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := blob.NewLocalStore(cfg.LocalDir, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
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

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
