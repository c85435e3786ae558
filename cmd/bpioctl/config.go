package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hexliner/gobpio/internal/modes"
	"github.com/hexliner/gobpio/internal/transport"
)

// Environment override recognized by every subcommand. Flags still take
// precedence.
const envLogLevel = "BPIO_LOG_LEVEL"

// bpioctl config.toml key mapping to runtime settings.
type fileConfig struct {
	Port          string `toml:"port"`
	Baud          int    `toml:"baud"`
	ReadTimeoutMS int    `toml:"read_timeout_ms"`
	TCPAddr       string `toml:"tcp_addr"`
	LogLevel      string `toml:"log_level"`
	CapturePath   string `toml:"capture_path"`
	PSUEnabled    bool   `toml:"psu"`
	PSUMillivolts int    `toml:"psu_mv"`
	PSUMilliamps  int    `toml:"psu_ma"`
	Pullups       bool   `toml:"pullups"`
}

// runtimeConfig is the merged view of defaults, config file and flags.
type runtimeConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
	TCPAddr     string
	LogLevel    string
	CapturePath string
	PSU         modes.Power
	Pullups     bool
}

// defaultRuntimeConfig mirrors how the instrument's own examples drive a
// bus: supply on at 3.3V, pullups on.
func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Baud:        115200,
		ReadTimeout: transport.DefaultReadTimeout,
		LogLevel:    "info",
		PSU:         modes.Power{Enable: true, Millivolts: 3300},
		Pullups:     true,
	}
}

// loadConfig overlays config file keys onto the defaults. Only keys the
// file defines override.
func loadConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load bpioctl config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return runtimeConfig{}, fmt.Errorf("load bpioctl config: baud must be positive, got %d", raw.Baud)
		}
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("read_timeout_ms") {
		if raw.ReadTimeoutMS <= 0 {
			return runtimeConfig{}, fmt.Errorf("load bpioctl config: read_timeout_ms must be positive, got %d", raw.ReadTimeoutMS)
		}
		cfg.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("tcp_addr") {
		cfg.TCPAddr = strings.TrimSpace(raw.TCPAddr)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("capture_path") {
		cfg.CapturePath = strings.TrimSpace(raw.CapturePath)
	}
	if meta.IsDefined("psu") {
		cfg.PSU.Enable = raw.PSUEnabled
	}
	if meta.IsDefined("psu_mv") {
		if raw.PSUMillivolts < 0 || raw.PSUMillivolts > 0xFFFF {
			return runtimeConfig{}, fmt.Errorf("load bpioctl config: psu_mv %d out of range", raw.PSUMillivolts)
		}
		cfg.PSU.Millivolts = uint16(raw.PSUMillivolts)
	}
	if meta.IsDefined("psu_ma") {
		if raw.PSUMilliamps < 0 || raw.PSUMilliamps > 0xFFFF {
			return runtimeConfig{}, fmt.Errorf("load bpioctl config: psu_ma %d out of range", raw.PSUMilliamps)
		}
		cfg.PSU.Milliamps = uint16(raw.PSUMilliamps)
	}
	if meta.IsDefined("pullups") {
		cfg.Pullups = raw.Pullups
	}

	return cfg, nil
}

// applyEnvOverrides overlays environment settings onto cfg.
func applyEnvOverrides(cfg *runtimeConfig) {
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.LogLevel = v
	}
}

// validateLink checks that exactly one link target is configured.
func validateLink(cfg runtimeConfig) error {
	if cfg.Port != "" && cfg.TCPAddr != "" {
		return fmt.Errorf("both a serial port (%s) and a tcp address (%s) are configured, choose one", cfg.Port, cfg.TCPAddr)
	}
	if cfg.Port == "" && cfg.TCPAddr == "" {
		return fmt.Errorf("no link configured, set --port or --tcp")
	}
	return nil
}
