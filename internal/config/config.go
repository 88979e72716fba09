// Package config manages sessiond daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete sessiond configuration.
type Config struct {
	Listen  ListenConfig  `koanf:"listen"`
	Wire    WireConfig    `koanf:"wire"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ListenConfig holds the local control-socket listener configuration.
type ListenConfig struct {
	// Network is "tcp" or "unix".
	Network string `koanf:"network"`
	// Address is a host:port (for "tcp") or a filesystem path (for "unix").
	Address string `koanf:"address"`
}

// WireConfig holds the framed-protocol limits spec.md §4.1/§9 requires.
type WireConfig struct {
	// MaxFrameBytes bounds a single frame's payload length.
	MaxFrameBytes uint32 `koanf:"max_frame_bytes"`
	// OutboundQueueDepth bounds each UIConnection's outbound Response
	// queue (spec.md §9 REDESIGN FLAG 4: bounded queues, not unbounded).
	OutboundQueueDepth int `koanf:"outbound_queue_depth"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults. The
// listen address follows the original source's commented default of
// 127.0.0.1:55555.
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			Network: "tcp",
			Address: "127.0.0.1:55555",
		},
		Wire: WireConfig{
			MaxFrameBytes:      64 * 1024 * 1024,
			OutboundQueueDepth: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for sessiond configuration.
// Variables are named SESSIOND_<section>_<key>, e.g., SESSIOND_LISTEN_ADDRESS.
const envPrefix = "SESSIOND_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (SESSIOND_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	SESSIOND_LISTEN_NETWORK            -> listen.network
//	SESSIOND_LISTEN_ADDRESS            -> listen.address
//	SESSIOND_WIRE_MAX_FRAME_BYTES      -> wire.max_frame_bytes
//	SESSIOND_WIRE_OUTBOUND_QUEUE_DEPTH -> wire.outbound_queue_depth
//	SESSIOND_LOG_LEVEL                 -> log.level
//	SESSIOND_LOG_FORMAT                -> log.format
//	SESSIOND_METRICS_ADDR              -> metrics.addr
//	SESSIOND_METRICS_PATH              -> metrics.path
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms SESSIOND_WIRE_MAX_FRAME_BYTES -> wire.max_frame_bytes.
// Strips the SESSIOND_ prefix, lowercases, and replaces the first _ after
// the section name with a dot while leaving remaining underscores intact.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + "." + parts[1]
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"listen.network":            defaults.Listen.Network,
		"listen.address":            defaults.Listen.Address,
		"wire.max_frame_bytes":      defaults.Wire.MaxFrameBytes,
		"wire.outbound_queue_depth": defaults.Wire.OutboundQueueDepth,
		"log.level":                 defaults.Log.Level,
		"log.format":                defaults.Log.Format,
		"metrics.addr":              defaults.Metrics.Addr,
		"metrics.path":              defaults.Metrics.Path,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyListenAddress indicates the listen address is empty.
	ErrEmptyListenAddress = errors.New("listen.address must not be empty")

	// ErrInvalidListenNetwork indicates the listen network is neither
	// "tcp" nor "unix".
	ErrInvalidListenNetwork = errors.New("listen.network must be tcp or unix")

	// ErrInvalidMaxFrameBytes indicates the configured frame size limit
	// is zero.
	ErrInvalidMaxFrameBytes = errors.New("wire.max_frame_bytes must be > 0")

	// ErrInvalidQueueDepth indicates the configured outbound queue depth
	// is zero or negative.
	ErrInvalidQueueDepth = errors.New("wire.outbound_queue_depth must be > 0")
)

// ValidListenNetworks lists the recognized listen.network values.
var ValidListenNetworks = map[string]bool{
	"tcp":  true,
	"unix": true,
}

// Validate checks the configuration for logical errors. Returns the
// first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Listen.Address == "" {
		return ErrEmptyListenAddress
	}

	if !ValidListenNetworks[cfg.Listen.Network] {
		return ErrInvalidListenNetwork
	}

	if cfg.Wire.MaxFrameBytes == 0 {
		return ErrInvalidMaxFrameBytes
	}

	if cfg.Wire.OutboundQueueDepth <= 0 {
		return ErrInvalidQueueDepth
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
