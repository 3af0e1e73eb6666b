// Package config loads the deployment configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spotlight-go/spotlight/pkg/live"
)

// Config represents the complete client configuration.
type Config struct {
	Session SessionConfig `yaml:"session"`
	Audio   AudioConfig   `yaml:"audio"`
	Video   VideoConfig   `yaml:"video"`
	Overlay OverlayConfig `yaml:"overlay"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// SessionConfig selects the remote model and its behavior.
type SessionConfig struct {
	Model             string `yaml:"model"`
	SystemInstruction string `yaml:"system_instruction"`
	Host              string `yaml:"host"`
}

// AudioConfig contains audio streaming parameters.
type AudioConfig struct {
	InputSampleRate  int `yaml:"input_sample_rate"`
	OutputSampleRate int `yaml:"output_sample_rate"`
	Channels         int `yaml:"channels"`
	CaptureBlockSize int `yaml:"capture_block_size"` // samples
}

// VideoConfig contains camera sampling parameters.
type VideoConfig struct {
	FrameIntervalMs int `yaml:"frame_interval_ms"`
	JPEGQuality     int `yaml:"jpeg_quality"`
}

// OverlayConfig contains highlight box behavior. Deployments run either a
// 1000ms or a 3000ms expiry window.
type OverlayConfig struct {
	ExpiryMs   int  `yaml:"expiry_ms"`
	BatchBoxes bool `yaml:"batch_boxes"`
}

// MetricsConfig contains the Prometheus endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	base := live.DefaultSessionConfig()
	return &Config{
		Session: SessionConfig{Model: base.Model},
		Audio: AudioConfig{
			InputSampleRate:  base.InputSampleRate,
			OutputSampleRate: base.OutputSampleRate,
			Channels:         base.Channels,
			CaptureBlockSize: base.CaptureBlockSize,
		},
		Video: VideoConfig{
			FrameIntervalMs: int(base.FrameInterval / time.Millisecond),
			JPEGQuality:     base.JPEGQuality,
		},
		Overlay: OverlayConfig{
			ExpiryMs:   int(base.BoxExpiry / time.Millisecond),
			BatchBoxes: base.BatchBoxes,
		},
		Metrics: MetricsConfig{Enabled: false, Address: ":9102"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads and parses the configuration file, applying defaults for
// omitted fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// Validate checks the configuration for coherent values.
func (c *Config) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Video.Validate(); err != nil {
		return fmt.Errorf("video config: %w", err)
	}
	if err := c.Overlay.Validate(); err != nil {
		return fmt.Errorf("overlay config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates session configuration.
func (s *SessionConfig) Validate() error {
	if s.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	return nil
}

// Validate validates audio configuration.
func (a *AudioConfig) Validate() error {
	if a.InputSampleRate < 8000 {
		return fmt.Errorf("input_sample_rate must be at least 8000 Hz, got %d", a.InputSampleRate)
	}
	if a.OutputSampleRate < 8000 {
		return fmt.Errorf("output_sample_rate must be at least 8000 Hz, got %d", a.OutputSampleRate)
	}
	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}
	if a.CaptureBlockSize < 256 {
		return fmt.Errorf("capture_block_size must be at least 256 samples, got %d", a.CaptureBlockSize)
	}
	return nil
}

// Validate validates video configuration.
func (v *VideoConfig) Validate() error {
	if v.FrameIntervalMs < 100 {
		return fmt.Errorf("frame_interval_ms must be at least 100, got %d", v.FrameIntervalMs)
	}
	if v.JPEGQuality < 1 || v.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", v.JPEGQuality)
	}
	return nil
}

// Validate validates overlay configuration.
func (o *OverlayConfig) Validate() error {
	if o.ExpiryMs < 100 {
		return fmt.Errorf("expiry_ms must be at least 100, got %d", o.ExpiryMs)
	}
	return nil
}

// Validate validates logging configuration.
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

// SessionConfig maps the file shape onto the live session configuration.
func (c *Config) SessionConfig() live.SessionConfig {
	return live.SessionConfig{
		Model:            c.Session.Model,
		System:           c.Session.SystemInstruction,
		InputSampleRate:  c.Audio.InputSampleRate,
		OutputSampleRate: c.Audio.OutputSampleRate,
		Channels:         c.Audio.Channels,
		CaptureBlockSize: c.Audio.CaptureBlockSize,
		FrameInterval:    time.Duration(c.Video.FrameIntervalMs) * time.Millisecond,
		JPEGQuality:      c.Video.JPEGQuality,
		BoxExpiry:        time.Duration(c.Overlay.ExpiryMs) * time.Millisecond,
		BatchBoxes:       c.Overlay.BatchBoxes,
	}
}
