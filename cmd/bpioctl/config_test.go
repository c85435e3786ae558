package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyACM0"
baud = 250000
read_timeout_ms = 1200
log_level = "debug"
capture_path = "/tmp/bus.db"
psu = false
psu_mv = 5000
psu_ma = 250
pullups = false
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "/dev/ttyACM0" || cfg.Baud != 250000 {
		t.Fatalf("unexpected link settings: %#v", cfg)
	}
	if cfg.ReadTimeout != 1200*time.Millisecond {
		t.Fatalf("unexpected read timeout: %v", cfg.ReadTimeout)
	}
	if cfg.LogLevel != "debug" || cfg.CapturePath != "/tmp/bus.db" {
		t.Fatalf("unexpected logging settings: %#v", cfg)
	}
	if cfg.PSU.Enable || cfg.PSU.Millivolts != 5000 || cfg.PSU.Milliamps != 250 {
		t.Fatalf("unexpected psu settings: %#v", cfg.PSU)
	}
	if cfg.Pullups {
		t.Fatalf("expected pullups disabled")
	}
}

func TestLoadConfigKeepsDefaultsForUndefinedKeys(t *testing.T) {
	path := writeConfig(t, `log_level = "trace"`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Baud != 115200 {
		t.Fatalf("unexpected default baud: %d", cfg.Baud)
	}
	if !cfg.PSU.Enable || cfg.PSU.Millivolts != 3300 || cfg.PSU.Milliamps != 0 {
		t.Fatalf("unexpected default psu: %#v", cfg.PSU)
	}
	if !cfg.Pullups {
		t.Fatalf("expected pullups on by default")
	}
	if cfg.LogLevel != "trace" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero baud", `baud = 0`},
		{"negative timeout", `read_timeout_ms = -5`},
		{"psu mv out of range", `psu_mv = 70000`},
		{"psu ma out of range", `psu_ma = -1`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := loadConfig(path); err == nil {
				t.Fatalf("expected a validation error for %q", tc.content)
			}
		})
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyACM0"
baud = 250000
`)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cf := registerCommon(fs)
	err := fs.Parse([]string{"--config", path, "--tcp", "127.0.0.1:7331", "--log-level", "warn"})
	if err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := cf.runtime()
	if err != nil {
		t.Fatalf("runtime config: %v", err)
	}
	if cfg.TCPAddr != "127.0.0.1:7331" || cfg.Port != "" {
		t.Fatalf("expected --tcp to displace the configured serial port: %#v", cfg)
	}
	if cfg.Baud != 250000 {
		t.Fatalf("expected file baud to survive, got %d", cfg.Baud)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func TestValidateLink(t *testing.T) {
	cfg := defaultRuntimeConfig()
	if err := validateLink(cfg); err == nil {
		t.Fatal("expected an error with no link configured")
	}
	cfg.Port = "/dev/ttyACM0"
	if err := validateLink(cfg); err != nil {
		t.Fatalf("serial link should validate: %v", err)
	}
	cfg.TCPAddr = "127.0.0.1:7331"
	if err := validateLink(cfg); err == nil {
		t.Fatal("expected an error with both links configured")
	}
}

func TestEnvOverridesLogLevelButNotFlags(t *testing.T) {
	path := writeConfig(t, `
port = "/dev/ttyACM0"
log_level = "error"
`)
	t.Setenv(envLogLevel, "debug")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cf := registerCommon(fs)
	if err := fs.Parse([]string{"--config", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := cf.runtime()
	if err != nil {
		t.Fatalf("runtime config: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("environment should override the file, got %q", cfg.LogLevel)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	cf = registerCommon(fs)
	if err := fs.Parse([]string{"--config", path, "--log-level", "warn"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err = cf.runtime()
	if err != nil {
		t.Fatalf("runtime config: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("flags should override the environment, got %q", cfg.LogLevel)
	}
}
