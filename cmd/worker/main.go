package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/internal/config"
	"github.com/OFFIS-RIT/castnet/internal/queue"
	"github.com/OFFIS-RIT/castnet/internal/storage"
	"github.com/OFFIS-RIT/castnet/internal/util"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
	"github.com/OFFIS-RIT/castnet/pkg/logger/console"
)

func main() {
	util.LoadEnv()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.App.Debug,
		Format: cfg.App.LogFormat,
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	// Init s3 client for books and result archive
	books := analysis.NewBooks(nil, "", false)
	var archive queue.ResultArchive
	if cfg.S3.Enabled() {
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		books = analysis.NewBooks(client, cfg.S3.Bucket, false)
		archive = storage.NewResultStore(client, cfg.S3.Bucket, cfg.S3.ResultsPrefix)
	}

	svc, err := analysis.NewServiceFromConfig(cfg, books)
	if err != nil {
		logger.Fatal("Failed to create analysis service", "err", err)
	}

	// Init rabbitmq
	conn, err := queue.Init(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queueName := cfg.Queue.Queue
	if err := queue.SetupQueues(ch, []string{queueName}, cfg.Queue.RetryDelay); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	processor := queue.NewProcessor(queue.NewProcessorParams{
		Service:     svc,
		Channel:     ch,
		ResultQueue: cfg.Queue.ResultQueue,
		Archive:     archive,
	})

	// Create a single consumer channel with prefetch=1
	// This ensures only ONE message is delivered at a time
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, false)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queueName,
		fmt.Sprintf("%s_consumer", queueName),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queueName, "err", err)
	}

	logger.Info("Listening for messages", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queueName)
				return
			}

			startTime := time.Now()
			logger.Info("Received message", "queue", queueName)

			processingErr := processor.ProcessAnalysisMessage(ctx, msg.Body)

			// If there was an error send to retry or dead-letter, otherwise ack the message
			if processingErr != nil {
				logger.Error("Error processing message", "queue", queueName, "err", processingErr)
				queue.HandleProcessingError(ch, msg, queueName, cfg.Queue.MaxRetries)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info("Message processed successfully", "queue", queueName)
			}

			processingDuration := time.Since(startTime)
			hours := int(processingDuration.Hours())
			minutes := int(processingDuration.Minutes()) % 60
			seconds := int(processingDuration.Seconds()) % 60
			logger.Info(
				"Processing time",
				"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
			)
			logger.Info("Waiting for next message")
		}
	}
}
