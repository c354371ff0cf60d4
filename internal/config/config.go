package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for both delivery tools
type Config struct {
	Stream  StreamConfig  `yaml:"stream"`
	Upload  UploadConfig  `yaml:"upload"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// StreamConfig contains the real-time UDP streaming parameters
type StreamConfig struct {
	Host            string  `yaml:"host"`
	Port            int     `yaml:"port"`
	SampleRate      int     `yaml:"sample_rate"`
	Channels        int     `yaml:"channels"`
	FrameDurationMs int     `yaml:"frame_duration_ms"`
	PacingFactor    float64 `yaml:"pacing_factor"`
	CaptureReadSize int     `yaml:"capture_read_size"` // samples per device read
}

// UploadConfig contains the MQTT chunked-transfer parameters
type UploadConfig struct {
	BrokerURL       string `yaml:"broker_url"`
	ClientID        string `yaml:"client_id"`
	RequestTopic    string `yaml:"request_topic"`
	ResponseTopic   string `yaml:"response_topic"`
	ChunkTopic      string `yaml:"chunk_topic"`
	AckTopic        string `yaml:"ack_topic"`
	ChunkSize       int    `yaml:"chunk_size"`
	AckTimeout      int    `yaml:"ack_timeout"`      // seconds
	CapacityTimeout int    `yaml:"capacity_timeout"` // seconds
}

// MetricsConfig contains the Prometheus exposition endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}

	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates streaming configuration
func (s *StreamConfig) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.SampleRate < 8000 || s.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", s.SampleRate)
	}

	if s.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", s.Channels)
	}

	if s.FrameDurationMs < 10 || s.FrameDurationMs > 200 {
		return fmt.Errorf("frame_duration_ms must be between 10 and 200, got %d", s.FrameDurationMs)
	}

	if s.PacingFactor <= 0 || s.PacingFactor > 1 {
		return fmt.Errorf("pacing_factor must be in (0, 1], got %f", s.PacingFactor)
	}

	if s.CaptureReadSize < 1 {
		return fmt.Errorf("capture_read_size must be at least 1 sample, got %d", s.CaptureReadSize)
	}

	return nil
}

// Validate validates upload configuration
func (u *UploadConfig) Validate() error {
	if u.BrokerURL == "" {
		return fmt.Errorf("broker_url cannot be empty")
	}

	if u.ClientID == "" {
		return fmt.Errorf("client_id cannot be empty")
	}

	for name, topic := range map[string]string{
		"request_topic":  u.RequestTopic,
		"response_topic": u.ResponseTopic,
		"chunk_topic":    u.ChunkTopic,
		"ack_topic":      u.AckTopic,
	} {
		if topic == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}

	if u.ChunkSize < 128 || u.ChunkSize > 65536 {
		return fmt.Errorf("chunk_size must be between 128 and 65536 bytes, got %d", u.ChunkSize)
	}

	if u.AckTimeout < 1 {
		return fmt.Errorf("ack_timeout must be at least 1 second, got %d", u.AckTimeout)
	}

	if u.CapacityTimeout < 1 || u.CapacityTimeout > 19 {
		return fmt.Errorf("capacity_timeout must be between 1 and 19 seconds, got %d", u.CapacityTimeout)
	}

	return nil
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("metrics port must be between 1 and 65535, got %d", m.Port)
		}

		if m.Address == "" {
			return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetFrameDuration returns the frame duration as a time.Duration
func (s *StreamConfig) GetFrameDuration() time.Duration {
	return time.Duration(s.FrameDurationMs) * time.Millisecond
}

// GetAckTimeout returns the per-chunk acknowledgment timeout as a time.Duration
func (u *UploadConfig) GetAckTimeout() time.Duration {
	return time.Duration(u.AckTimeout) * time.Second
}

// GetCapacityTimeout returns the capacity-reply timeout as a time.Duration
func (u *UploadConfig) GetCapacityTimeout() time.Duration {
	return time.Duration(u.CapacityTimeout) * time.Second
}
