package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sessiongw/sessiond/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.Listen.Network != "tcp" {
		t.Errorf("Listen.Network = %q, want %q", cfg.Listen.Network, "tcp")
	}

	if cfg.Listen.Address != "127.0.0.1:55555" {
		t.Errorf("Listen.Address = %q, want %q", cfg.Listen.Address, "127.0.0.1:55555")
	}

	if cfg.Wire.MaxFrameBytes != 64*1024*1024 {
		t.Errorf("Wire.MaxFrameBytes = %d, want %d", cfg.Wire.MaxFrameBytes, 64*1024*1024)
	}

	if cfg.Wire.OutboundQueueDepth != 256 {
		t.Errorf("Wire.OutboundQueueDepth = %d, want %d", cfg.Wire.OutboundQueueDepth, 256)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}

	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
listen:
  network: "unix"
  address: "/tmp/sessiond.sock"
wire:
  max_frame_bytes: 1048576
  outbound_queue_depth: 64
log:
  level: "debug"
  format: "text"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Listen.Network != "unix" {
		t.Errorf("Listen.Network = %q, want %q", cfg.Listen.Network, "unix")
	}

	if cfg.Listen.Address != "/tmp/sessiond.sock" {
		t.Errorf("Listen.Address = %q, want %q", cfg.Listen.Address, "/tmp/sessiond.sock")
	}

	if cfg.Wire.MaxFrameBytes != 1048576 {
		t.Errorf("Wire.MaxFrameBytes = %d, want %d", cfg.Wire.MaxFrameBytes, 1048576)
	}

	if cfg.Wire.OutboundQueueDepth != 64 {
		t.Errorf("Wire.OutboundQueueDepth = %d, want %d", cfg.Wire.OutboundQueueDepth, 64)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}

	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom-metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/custom-metrics")
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	// Partial YAML: only override listen.address and log.level.
	// Everything else should inherit from defaults.
	yamlContent := `
listen:
  address: "127.0.0.1:60000"
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Listen.Address != "127.0.0.1:60000" {
		t.Errorf("Listen.Address = %q, want %q", cfg.Listen.Address, "127.0.0.1:60000")
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	if cfg.Listen.Network != "tcp" {
		t.Errorf("Listen.Network = %q, want default %q", cfg.Listen.Network, "tcp")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "json")
	}

	if cfg.Wire.MaxFrameBytes != 64*1024*1024 {
		t.Errorf("Wire.MaxFrameBytes = %d, want default %d", cfg.Wire.MaxFrameBytes, 64*1024*1024)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty listen address",
			modify: func(cfg *config.Config) {
				cfg.Listen.Address = ""
			},
			wantErr: config.ErrEmptyListenAddress,
		},
		{
			name: "invalid listen network",
			modify: func(cfg *config.Config) {
				cfg.Listen.Network = "udp"
			},
			wantErr: config.ErrInvalidListenNetwork,
		},
		{
			name: "zero max frame bytes",
			modify: func(cfg *config.Config) {
				cfg.Wire.MaxFrameBytes = 0
			},
			wantErr: config.ErrInvalidMaxFrameBytes,
		},
		{
			name: "zero outbound queue depth",
			modify: func(cfg *config.Config) {
				cfg.Wire.OutboundQueueDepth = 0
			},
			wantErr: config.ErrInvalidQueueDepth,
		},
		{
			name: "negative outbound queue depth",
			modify: func(cfg *config.Config) {
				cfg.Wire.OutboundQueueDepth = -1
			},
			wantErr: config.ErrInvalidQueueDepth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "Error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

// -------------------------------------------------------------------------
// Environment Variable Override Tests
// -------------------------------------------------------------------------

func TestLoadEnvOverrides(t *testing.T) {
	// Environment variable tests cannot be parallel because they modify
	// process-wide state (os.Setenv).

	yamlContent := `
listen:
  address: "127.0.0.1:55555"
log:
  level: "info"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("SESSIOND_LISTEN_ADDRESS", "127.0.0.1:60000")
	t.Setenv("SESSIOND_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Listen.Address != "127.0.0.1:60000" {
		t.Errorf("Listen.Address = %q, want %q (from env)", cfg.Listen.Address, "127.0.0.1:60000")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "debug")
	}
}

func TestLoadEnvOverridesMetrics(t *testing.T) {
	yamlContent := `
listen:
  address: "127.0.0.1:55555"
metrics:
  addr: ":9100"
  path: "/metrics"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("SESSIOND_METRICS_ADDR", ":9200")
	t.Setenv("SESSIOND_METRICS_PATH", "/custom")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q (from env)", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Metrics.Path != "/custom" {
		t.Errorf("Metrics.Path = %q, want %q (from env)", cfg.Metrics.Path, "/custom")
	}
}

// writeTemp creates a temporary YAML file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "sessiond.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
