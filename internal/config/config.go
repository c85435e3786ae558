package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type CtlConfig struct {
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

type BridgeConfig struct {
	ListenAddr    string `toml:"listen_addr"`
	Port          string `toml:"port"`
	Baud          int    `toml:"baud"`
	ReadTimeoutMS int    `toml:"read_timeout_ms"`
	MetricsAddr   string `toml:"metrics_addr"`
	LogLevel      string `toml:"log_level"`
}

func LoadCtlConfig(path string) (CtlConfig, error) {
	var cfg CtlConfig
	if err := loadToml(path, &cfg); err != nil {
		return CtlConfig{}, err
	}
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ReadTimeoutMS == 0 {
		cfg.ReadTimeoutMS = 500
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := ValidateCtlConfig(cfg); err != nil {
		return CtlConfig{}, err
	}
	return cfg, nil
}

func LoadBridgeConfig(path string) (BridgeConfig, error) {
	var cfg BridgeConfig
	if err := loadToml(path, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:7331"
	}
	if cfg.Baud == 0 {
		cfg.Baud = 115200
	}
	if cfg.ReadTimeoutMS == 0 {
		cfg.ReadTimeoutMS = 500
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateCtlConfig(cfg CtlConfig) error {
	if cfg.Baud <= 0 {
		return fmt.Errorf("ctl config baud must be positive, got %d", cfg.Baud)
	}
	if cfg.ReadTimeoutMS <= 0 {
		return fmt.Errorf("ctl config read_timeout_ms must be positive, got %d", cfg.ReadTimeoutMS)
	}
	if cfg.PSUMillivolts < 0 || cfg.PSUMillivolts > 0xFFFF {
		return fmt.Errorf("ctl config psu_mv %d out of range", cfg.PSUMillivolts)
	}
	if cfg.PSUMilliamps < 0 || cfg.PSUMilliamps > 0xFFFF {
		return fmt.Errorf("ctl config psu_ma %d out of range", cfg.PSUMilliamps)
	}
	if strings.TrimSpace(cfg.Port) != "" && strings.TrimSpace(cfg.TCPAddr) != "" {
		return fmt.Errorf("ctl config sets both port and tcp_addr, choose one")
	}
	return nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("bridge config missing listen_addr")
	}
	if cfg.Baud <= 0 {
		return fmt.Errorf("bridge config baud must be positive, got %d", cfg.Baud)
	}
	if cfg.ReadTimeoutMS <= 0 {
		return fmt.Errorf("bridge config read_timeout_ms must be positive, got %d", cfg.ReadTimeoutMS)
	}
	return nil
}
