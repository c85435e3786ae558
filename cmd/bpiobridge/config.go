package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hexliner/gobpio/internal/transport"
)

// Environment override shared with bpioctl. Flags still take precedence.
const envLogLevel = "BPIO_LOG_LEVEL"

// bpiobridge config.toml key mapping to bridge settings.
type bridgeFileConfig struct {
	ListenAddr    string `toml:"listen_addr"`
	Port          string `toml:"port"`
	Baud          int    `toml:"baud"`
	ReadTimeoutMS int    `toml:"read_timeout_ms"`
	MetricsAddr   string `toml:"metrics_addr"`
	LogLevel      string `toml:"log_level"`
}

type bridgeConfig struct {
	ListenAddr  string
	Port        string
	Baud        int
	ReadTimeout time.Duration
	MetricsAddr string
	LogLevel    string
}

func defaultBridgeConfig() bridgeConfig {
	return bridgeConfig{
		ListenAddr:  "127.0.0.1:7331",
		Baud:        115200,
		ReadTimeout: transport.DefaultReadTimeout,
		LogLevel:    "info",
	}
}

// loadBridgeConfig overlays config file keys onto the defaults. Only keys
// the file defines override.
func loadBridgeConfig(path string) (bridgeConfig, error) {
	cfg := defaultBridgeConfig()

	var raw bridgeFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return bridgeConfig{}, fmt.Errorf("load bpiobridge config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return bridgeConfig{}, fmt.Errorf("load bpiobridge config: baud must be positive, got %d", raw.Baud)
		}
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("read_timeout_ms") {
		if raw.ReadTimeoutMS <= 0 {
			return bridgeConfig{}, fmt.Errorf("load bpiobridge config: read_timeout_ms must be positive, got %d", raw.ReadTimeoutMS)
		}
		cfg.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if cfg.ListenAddr == "" {
		return bridgeConfig{}, fmt.Errorf("load bpiobridge config: listen_addr must not be empty")
	}
	return cfg, nil
}

// applyEnvOverrides overlays environment settings onto cfg.
func applyEnvOverrides(cfg *bridgeConfig) {
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.LogLevel = v
	}
}
