package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/audio"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/config"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/logging"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/metrics"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/server"
	"github.com/Okumans/EmbeddedSmartAlarm/internal/stream"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "smartalarm-streamer"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	wavPath := flag.String("file", "", "WAV file to stream; reads raw PCM from stdin when empty")
	loop := flag.Bool("loop", false, "Restart the file from the beginning on EOF")
	host := flag.String("host", "", "Override destination host from configuration")
	port := flag.Int("port", 0, "Override destination port from configuration")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Stream.Host = *host
	}
	if *port != 0 {
		cfg.Stream.Port = *port
	}

	logger := logging.New(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)
	logger.Info("Configuration loaded",
		slog.String("host", cfg.Stream.Host),
		slog.Int("port", cfg.Stream.Port),
		slog.Int("sample_rate", cfg.Stream.SampleRate),
		slog.Int("frame_duration_ms", cfg.Stream.FrameDurationMs),
		slog.Float64("pacing_factor", cfg.Stream.PacingFactor),
		slog.String("log_level", cfg.Logging.Level),
	)

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

	streamer, err := stream.NewStreamer(stream.Config{
		Host:          cfg.Stream.Host,
		Port:          cfg.Stream.Port,
		SampleRate:    cfg.Stream.SampleRate,
		FrameDuration: cfg.Stream.GetFrameDuration(),
		PacingFactor:  cfg.Stream.PacingFactor,
	}, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create streamer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer streamer.Close()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	if *wavPath != "" {
		src, err := audio.NewFileSource(*wavPath, cfg.Stream.SampleRate)
		if err != nil {
			logger.Error("Failed to open audio file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Streaming file",
			slog.String("file", *wavPath),
			slog.Int("samples", src.NumSamples()),
			slog.Bool("loop", *loop),
		)
		err = streamer.StreamFile(ctx, src, *loop)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Streaming failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		device := audio.NewReaderDevice(os.Stdin)
		src := audio.NewCaptureSource(device, cfg.Stream.CaptureReadSize, logger)
		logger.Info("Streaming live capture from stdin",
			slog.Int("read_size", cfg.Stream.CaptureReadSize),
		)
		err = streamer.StreamCapture(ctx, src)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Streaming failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping metrics server", slog.String("error", err.Error()))
		}
	}

	framesSent, sendErrors := streamer.Statistics()
	logger.Info("Final streaming statistics",
		slog.Uint64("frames_sent", framesSent),
		slog.Uint64("send_errors", sendErrors),
	)

	logger.Info("Service stopped")
}
