package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Okumans/EmbeddedSmartAlarm/internal/config"
)

// MetricsServer serves the Prometheus exposition endpoint and a basic
// health check while a stream or transfer is running.
type MetricsServer struct {
	server    *http.Server
	logger    *slog.Logger
	startTime time.Time
}

// NewMetricsServer creates the metrics HTTP server.
func NewMetricsServer(cfg config.MetricsConfig, logger *slog.Logger) *MetricsServer {
	m := &MetricsServer{
		logger:    logger,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", m.handleHealth)

	m.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return m
}

// handleHealth reports process liveness and uptime.
func (m *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(m.startTime).String(),
	})
}

// Start begins serving in the background.
func (m *MetricsServer) Start() {
	m.logger.Info("metrics server starting", slog.String("address", m.server.Addr))

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
}

// Stop shuts the server down gracefully.
func (m *MetricsServer) Stop(ctx context.Context) error {
	m.logger.Info("metrics server stopping")
	return m.server.Shutdown(ctx)
}
