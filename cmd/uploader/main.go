package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/config"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/logging"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/metrics"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/server"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/transfer"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "smartalarm-uploader"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	filePath := flag.String("file", "", "File to upload to the device (required)")
	broker := flag.String("broker", "", "Override broker URL from configuration")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: uploader -file <path> [-config <path>] [-broker <url>]")
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *broker != "" {
		cfg.Upload.BrokerURL = *broker
	}

	logger := logging.New(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)
	logger.Info("Configuration loaded",
		slog.String("broker_url", cfg.Upload.BrokerURL),
		slog.String("client_id", cfg.Upload.ClientID),
		slog.Int("chunk_size", cfg.Upload.ChunkSize),
		slog.Duration("ack_timeout", cfg.Upload.GetAckTimeout()),
		slog.String("log_level", cfg.Logging.Level),
	)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("Failed to read upload file", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = server.NewMetricsServer(cfg.Metrics, logger)
		metricsServer.Start()
		logger.Info("Metrics server started",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.Metrics.Address, cfg.Metrics.Port)),
		)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	client := transfer.NewClient(cfg.Upload.BrokerURL, cfg.Upload.ClientID, transfer.Topics{
		Request:  cfg.Upload.RequestTopic,
		Response: cfg.Upload.ResponseTopic,
		Chunk:    cfg.Upload.ChunkTopic,
		Ack:      cfg.Upload.AckTopic,
	}, logger, appMetrics)
	if err := client.Connect(); err != nil {
		logger.Error("Failed to connect to broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()

	session := transfer.NewSession(client, transfer.Config{
		ChunkSize:       cfg.Upload.ChunkSize,
		AckTimeout:      cfg.Upload.GetAckTimeout(),
		CapacityTimeout: cfg.Upload.GetCapacityTimeout(),
	}, logger, appMetrics)

	logger.Info("Uploading file",
		slog.String("file", *filePath),
		slog.Int("size_bytes", len(data)),
	)

	uploadErr := session.Upload(ctx, data)
	if uploadErr != nil {
		logger.Error("Upload failed",
			slog.String("error", uploadErr.Error()),
			slog.String("state", session.State().String()),
		)
	} else {
		logger.Info("Upload complete",
			slog.Int("size_bytes", len(data)),
			slog.Int("chunks", transfer.ChunkCount(len(data), cfg.Upload.ChunkSize)),
		)
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping metrics server", slog.String("error", err.Error()))
		}
	}

	logger.Info("Service stopped")

	if uploadErr != nil {
		os.Exit(1)
	}
}
