// ABOUTME: YAML configuration for the broadcast sink
// ABOUTME: Defaults, file loading and per-section validation
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete sink configuration
type Config struct {
	Bridge  BridgeConfig  `yaml:"bridge"`
	Audio   AudioConfig   `yaml:"audio"`
	Sink    SinkConfig    `yaml:"sink"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// BridgeConfig locates the HCI controller bridge
type BridgeConfig struct {
	// Address is host:port; empty means browse with mDNS
	Address     string `yaml:"address"`
	Path        string `yaml:"path"`
	Service     string `yaml:"service"`
	DialTimeout int    `yaml:"dial_timeout"` // seconds
	FindTimeout int    `yaml:"find_timeout"` // seconds
}

// AudioConfig selects output and decoders
type AudioConfig struct {
	// Output is "oto", "malgo" or "null"
	Output           string `yaml:"output"`
	OutputBufferMs   int    `yaml:"output_buffer_ms"`
	PrimaryDecoder   string `yaml:"primary_decoder"`
	AlternateDecoder string `yaml:"alternate_decoder"`
	BufferFrames     int    `yaml:"buffer_frames"`
	WAVPath          string `yaml:"wav_path"`
}

// SinkConfig holds radio parameters
type SinkConfig struct {
	ScanInterval        uint16 `yaml:"scan_interval"`         // 0.625 ms units
	ScanWindow          uint16 `yaml:"scan_window"`           // 0.625 ms units
	PeriodicSyncTimeout uint16 `yaml:"periodic_sync_timeout"` // 10 ms units
	BIGSyncTimeout      uint16 `yaml:"big_sync_timeout"`      // 10 ms units
	BIGHandle           uint8  `yaml:"big_handle"`
	AutoStart           bool   `yaml:"auto_start"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Path:        "/hci",
			Service:     "_hci-bridge._tcp",
			DialTimeout: 5,
			FindTimeout: 10,
		},
		Audio: AudioConfig{
			Output:           "oto",
			OutputBufferMs:   20,
			PrimaryDecoder:   "lc3",
			AlternateDecoder: "opus",
			BufferFrames:     10,
		},
		Sink: SinkConfig{
			ScanInterval:        0x30,
			ScanWindow:          0x30,
			PeriodicSyncTimeout: 1000,
			BIGSyncTimeout:      100,
			BIGHandle:           1,
			AutoStart:           true,
		},
		Metrics: MetricsConfig{
			Address: ":9464",
		},
		Logging: LoggingConfig{
			File: "leaudio-sink.log",
		},
	}
}

// Load reads a configuration file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Bridge.Validate(); err != nil {
		return fmt.Errorf("bridge config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	return nil
}

// Validate validates bridge configuration
func (b *BridgeConfig) Validate() error {
	if b.Address == "" && b.Service == "" {
		return fmt.Errorf("either address or service must be set")
	}
	if b.DialTimeout < 1 {
		return fmt.Errorf("dial_timeout must be at least 1 second, got %d", b.DialTimeout)
	}
	if b.FindTimeout < 1 {
		return fmt.Errorf("find_timeout must be at least 1 second, got %d", b.FindTimeout)
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	validOutputs := map[string]bool{"oto": true, "malgo": true, "null": true}
	if !validOutputs[a.Output] {
		return fmt.Errorf("output must be 'oto', 'malgo' or 'null', got '%s'", a.Output)
	}
	if a.OutputBufferMs < 1 {
		return fmt.Errorf("output_buffer_ms must be positive, got %d", a.OutputBufferMs)
	}
	if a.PrimaryDecoder == "" {
		return fmt.Errorf("primary_decoder cannot be empty")
	}
	if a.BufferFrames < 2 {
		return fmt.Errorf("buffer_frames must be at least 2, got %d", a.BufferFrames)
	}
	return nil
}

// Validate validates radio parameters against the HCI ranges
func (s *SinkConfig) Validate() error {
	if s.ScanInterval < 0x0004 {
		return fmt.Errorf("scan_interval must be at least 0x0004, got 0x%04x", s.ScanInterval)
	}
	if s.ScanWindow < 0x0004 || s.ScanWindow > s.ScanInterval {
		return fmt.Errorf("scan_window must be between 0x0004 and scan_interval, got 0x%04x", s.ScanWindow)
	}
	if s.PeriodicSyncTimeout < 0x000a || s.PeriodicSyncTimeout > 0x4000 {
		return fmt.Errorf("periodic_sync_timeout must be between 0x000a and 0x4000, got 0x%04x", s.PeriodicSyncTimeout)
	}
	if s.BIGSyncTimeout < 0x000a || s.BIGSyncTimeout > 0x4000 {
		return fmt.Errorf("big_sync_timeout must be between 0x000a and 0x4000, got 0x%04x", s.BIGSyncTimeout)
	}
	if s.BIGHandle > 0xef {
		return fmt.Errorf("big_handle must be at most 0xef, got 0x%02x", s.BIGHandle)
	}
	return nil
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}
	return nil
}

// GetDialTimeout returns the dial timeout as a time.Duration
func (b *BridgeConfig) GetDialTimeout() time.Duration {
	return time.Duration(b.DialTimeout) * time.Second
}

// GetFindTimeout returns the discovery timeout as a time.Duration
func (b *BridgeConfig) GetFindTimeout() time.Duration {
	return time.Duration(b.FindTimeout) * time.Second
}

// GetOutputBuffer returns the output buffer as a time.Duration
func (a *AudioConfig) GetOutputBuffer() time.Duration {
	return time.Duration(a.OutputBufferMs) * time.Millisecond
}
