package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Stream: StreamConfig{
			Host:            "192.168.1.100",
			Port:            12345,
			SampleRate:      16000,
			Channels:        1,
			FrameDurationMs: 60,
			PacingFactor:    0.85,
			CaptureReadSize: 1024,
		},
		Upload: UploadConfig{
			BrokerURL:       "tcp://broker.hivemq.com:1883",
			ClientID:        "smartalarm-uploader",
			RequestTopic:    "esp32/audio_request",
			ResponseTopic:   "esp32/audio_response",
			ChunkTopic:      "esp32/audio_chunk",
			AckTopic:        "esp32/audio_ack",
			ChunkSize:       4096,
			AckTimeout:      5,
			CapacityTimeout: 5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		errPart string
	}{
		{"empty host", func(c *Config) { c.Stream.Host = "" }, "host"},
		{"port out of range", func(c *Config) { c.Stream.Port = 70000 }, "port"},
		{"sample rate too low", func(c *Config) { c.Stream.SampleRate = 4000 }, "sample_rate"},
		{"stereo unsupported", func(c *Config) { c.Stream.Channels = 2 }, "channels"},
		{"frame too long", func(c *Config) { c.Stream.FrameDurationMs = 500 }, "frame_duration_ms"},
		{"pacing factor above one", func(c *Config) { c.Stream.PacingFactor = 1.5 }, "pacing_factor"},
		{"pacing factor zero", func(c *Config) { c.Stream.PacingFactor = 0 }, "pacing_factor"},
		{"capture read size zero", func(c *Config) { c.Stream.CaptureReadSize = 0 }, "capture_read_size"},
		{"empty broker", func(c *Config) { c.Upload.BrokerURL = "" }, "broker_url"},
		{"empty client id", func(c *Config) { c.Upload.ClientID = "" }, "client_id"},
		{"empty ack topic", func(c *Config) { c.Upload.AckTopic = "" }, "ack_topic"},
		{"chunk size too small", func(c *Config) { c.Upload.ChunkSize = 64 }, "chunk_size"},
		{"ack timeout zero", func(c *Config) { c.Upload.AckTimeout = 0 }, "ack_timeout"},
		{"capacity timeout too long", func(c *Config) { c.Upload.CapacityTimeout = 30 }, "capacity_timeout"},
		{"metrics enabled without address", func(c *Config) { c.Metrics.Address = "" }, "metrics address"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got none")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.errPart)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
stream:
  host: "10.0.0.42"
  port: 12345
  sample_rate: 16000
  channels: 1
  frame_duration_ms: 60
  pacing_factor: 0.85
  capture_read_size: 1024
upload:
  broker_url: "tcp://localhost:1883"
  client_id: "test-uploader"
  request_topic: "esp32/audio_request"
  response_topic: "esp32/audio_response"
  chunk_topic: "esp32/audio_chunk"
  ack_topic: "esp32/audio_ack"
  chunk_size: 4096
  ack_timeout: 5
  capacity_timeout: 3
metrics:
  enabled: false
logging:
  level: "debug"
  format: "json"
  output: "stderr"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Stream.Host != "10.0.0.42" {
		t.Errorf("host = %q, want 10.0.0.42", cfg.Stream.Host)
	}
	if cfg.Upload.ChunkSize != 4096 {
		t.Errorf("chunk_size = %d, want 4096", cfg.Upload.ChunkSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("stream: ["), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(path, []byte("stream:\n  host: \"\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for incomplete config")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := validConfig()

	if got := cfg.Stream.GetFrameDuration(); got != 60*time.Millisecond {
		t.Errorf("GetFrameDuration = %v, want 60ms", got)
	}
	if got := cfg.Upload.GetAckTimeout(); got != 5*time.Second {
		t.Errorf("GetAckTimeout = %v, want 5s", got)
	}
	if got := cfg.Upload.GetCapacityTimeout(); got != 5*time.Second {
		t.Errorf("GetCapacityTimeout = %v, want 5s", got)
	}
}
