// Package config loads the host process's YAML configuration file, using
// the same yaml.v3 struct-tag pattern the rest of the example pack uses
// for its application configs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration for the sofi host process.
type Config struct {
	// Receivers lists one device path per receiver, in the order they
	// should be combined. At least two are required.
	Receivers []string `yaml:"receivers"`

	// FrameSize is N, the FFT frame length in samples.
	FrameSize int `yaml:"frame_size"`

	// RingDepth is B, the number of frame-ring slots per receiver.
	RingDepth int `yaml:"ring_depth"`

	// Decimation is D, the combiner's decimation factor.
	Decimation int `yaml:"decimation"`

	// SampleRate is the receivers' sample rate in Hz. Neither the host
	// process nor the core pipeline reads it; the pipeline does not need
	// it to process samples.
	SampleRate uint `yaml:"sample_rate"`

	// WireOutput, if set, is a file path the combined output is written
	// to in the wire package's little-endian frame format.
	WireOutput string `yaml:"wire_output,omitempty"`

	// MetricsListen, if set, is the address the Prometheus /metrics
	// endpoint listens on (e.g. ":9090").
	MetricsListen string `yaml:"metrics_listen,omitempty"`

	// Logging controls the verbosity of the host process's logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls charmbracelet/log's verbosity. JSON is parsed from
// the file but the host process does not apply it.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
	JSON  bool   `yaml:"json,omitempty"`
}

// Default returns a Config with the module's default tunables, matching
// the defaults a bare "sofi --sim" invocation uses.
func Default() Config {
	return Config{
		FrameSize:  1024,
		RingDepth:  4,
		Decimation: 10,
		SampleRate: 2_400_000,
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load reads and parses the YAML configuration file at path, starting
// from Default() so a sparse file only needs to override what it cares
// about.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the structural invariants pipeline.New relies on.
func (c Config) Validate() error {
	if len(c.Receivers) < 2 {
		return fmt.Errorf("config: need at least two receivers, got %d", len(c.Receivers))
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("config: frame_size must be positive")
	}
	if c.RingDepth <= 0 {
		return fmt.Errorf("config: ring_depth must be positive")
	}
	if c.Decimation <= 0 {
		return fmt.Errorf("config: decimation must be positive")
	}
	return nil
}
