package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Aethena/backend/go/internal/config"
	"Aethena/backend/go/internal/rag_service/bootstrap"
	"Aethena/backend/go/internal/rag_service/events"
	"Aethena/backend/go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	maxAttempts := flag.Int("max-attempts", events.DefaultMaxAttempts, "deliveries before a transient failure is dead-lettered")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("IngestWorker", "", "")

	if len(cfg.Databases.Kafka.Brokers) == 0 {
		appLogger.Fatal("Kafka brokers are not configured; the ingest worker has nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize dependencies: " + err.Error())
	}
	defer app.Close()

	consumer := events.NewIngestConsumer(app.Kafka.OpenReader(), app.Events, app.Indexing, app.Jobs,
		*maxAttempts, appLogger.WithField("component", "consumer"))

	appLogger.WithPayload(map[string]interface{}{
		"topic":    cfg.Databases.Kafka.IngestTopic,
		"group_id": cfg.Databases.Kafka.GroupID,
	}).Info("Ingest worker started")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Consumer stopped with error: " + err.Error())
		return
	}
	appLogger.Info("Ingest worker stopped")
}
