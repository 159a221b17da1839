package main

import (
	"chat-backend/api"
	"chat-backend/auth"
	"chat-backend/directory"
	"chat-backend/ingest"
	"chat-backend/internal"
	"chat-backend/rabbitmq"
	"chat-backend/repositories"
	"chat-backend/runtime/workers"
	"chat-backend/services"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the pipeline lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for HTTP and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	chatRepository, err := repositories.NewChatRepository(db, log)
	if err != nil {
		return err
	}
	defer chatRepository.Close()

	messageRepository, err := repositories.NewMessageRepository(db, log, config.MessagesLimit)
	if err != nil {
		return err
	}
	defer messageRepository.Close()

	if config.DebugPort > 0 {
		log.Warn("Store inspector enabled", "port", config.DebugPort)
		internal.StartDebugServer(db, config.DebugPort, nil, nil)
	}

	// 3. Broker
	broker := rabbitmq.NewManager(log, rabbitmq.Config{
		URL:              config.RabbitMQURL,
		IngestExchange:   config.IngestExchange,
		IngestQueue:      config.IngestQueue,
		DeliveryExchange: config.DeliveryExchange,
		PrefetchCount:    config.PrefetchCount,
	})
	if err := broker.Start(); err != nil {
		return err
	}
	defer broker.Close()

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deliveries, err := broker.Consume(ctx)
	if err != nil {
		return err
	}

	// 5. Pipeline: consumer -> backpressure queue -> single processor
	queue := make(chan ingest.IncomingMessage, config.QueueCapacity)
	processor := services.NewMessageProcessor(log, chatRepository, messageRepository, broker)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewConsumerWorker(log, deliveries, queue),
		workers.NewProcessorWorker(log, queue, processor),
		workers.NewQueueCapacityWorker(log, queue, config.MetricInterval),
		workers.NewHealthMonitoringWorker(log, config.MetricInterval),
	)

	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 6. HTTP API
	users := directory.NewClient(log, config.AuthBackendBaseURL, directory.DefaultRetryPolicy())
	chatService := services.NewChatService(log, chatRepository, users)
	messageService := services.NewMessageService(log, chatRepository, messageRepository)
	handler := api.NewHandler(log, chatService, messageService)
	app := api.NewApp(log, handler, api.RequireUser(auth.NewVerifier(config.JWTKey)))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := app.Listen(address); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup. In-flight work has no drain guarantee: an
	// unacknowledged broker message is simply redelivered on restart.
	_ = app.Shutdown()
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}
