package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadBridgeConfigDefaultsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
listen_addr = "0.0.0.0:7331"
port = "/dev/ttyACM0"
baud = 250000
read_timeout_ms = 200
metrics_addr = "127.0.0.1:9203"
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadBridgeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:7331" || cfg.Port != "/dev/ttyACM0" {
		t.Fatalf("unexpected link settings: %#v", cfg)
	}
	if cfg.Baud != 250000 || cfg.ReadTimeout != 200*time.Millisecond {
		t.Fatalf("unexpected serial settings: %#v", cfg)
	}
	if cfg.MetricsAddr != "127.0.0.1:9203" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected observability settings: %#v", cfg)
	}
}

func TestLoadBridgeConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`port = "COM3"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadBridgeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7331" || cfg.Baud != 115200 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if cfg.MetricsAddr != "" {
		t.Fatalf("metrics should default off, got %q", cfg.MetricsAddr)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(envLogLevel, "trace")
	cfg := defaultBridgeConfig()
	applyEnvOverrides(&cfg)
	if cfg.LogLevel != "trace" {
		t.Fatalf("log level = %q, want trace", cfg.LogLevel)
	}
}

func TestLoadBridgeConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero baud", `baud = 0`},
		{"negative timeout", `read_timeout_ms = -1`},
		{"blank listen addr", `listen_addr = " "`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := loadBridgeConfig(path); err == nil {
				t.Fatalf("expected a validation error for %q", tc.content)
			}
		})
	}
}
