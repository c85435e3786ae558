package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTemplateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ctlPath := filepath.Join(dir, "bpioctl.toml")
	if err := WriteTemplate(ctlPath, "ctl", false); err != nil {
		t.Fatalf("write ctl template: %v", err)
	}
	ctl, err := LoadCtlConfig(ctlPath)
	if err != nil {
		t.Fatalf("load ctl template: %v", err)
	}
	if ctl.Port != "/dev/ttyACM0" {
		t.Fatalf("ctl template port = %q", ctl.Port)
	}
	if !ctl.PSUEnabled || ctl.PSUMillivolts != 3300 {
		t.Fatalf("ctl template psu = %v/%d", ctl.PSUEnabled, ctl.PSUMillivolts)
	}

	bridgePath := filepath.Join(dir, "bpiobridge.toml")
	if err := WriteTemplate(bridgePath, "bridge", false); err != nil {
		t.Fatalf("write bridge template: %v", err)
	}
	bridge, err := LoadBridgeConfig(bridgePath)
	if err != nil {
		t.Fatalf("load bridge template: %v", err)
	}
	if bridge.ListenAddr != "127.0.0.1:7331" {
		t.Fatalf("bridge template listen_addr = %q", bridge.ListenAddr)
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bpioctl.toml")
	if err := WriteTemplate(path, "ctl", false); err != nil {
		t.Fatalf("first write: %v", err)
	}
	err := WriteTemplate(path, "ctl", false)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second write err = %v, want already exists", err)
	}
	if err := WriteTemplate(path, "ctl", true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	if _, err := Template("daemon"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestLoadCtlConfigFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.toml")
	if err := os.WriteFile(path, []byte("port = \"COM7\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadCtlConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Baud != 115200 || cfg.ReadTimeoutMS != 500 || cfg.LogLevel != "info" {
		t.Fatalf("defaults not filled: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		kind    string
		body    string
		wantSub string
	}{
		{"ctl both links", "ctl", "port = \"COM7\"\ntcp_addr = \"10.0.0.5:7331\"\n", "choose one"},
		{"ctl psu_mv range", "ctl", "psu_mv = 70000\n", "out of range"},
		{"ctl negative baud", "ctl", "baud = -9600\n", "baud must be positive"},
		{"bridge negative timeout", "bridge", "read_timeout_ms = -1\n", "read_timeout_ms must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			var err error
			switch tc.kind {
			case "ctl":
				_, err = LoadCtlConfig(path)
			case "bridge":
				_, err = LoadBridgeConfig(path)
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("err = %v, want substring %q", err, tc.wantSub)
			}
		})
	}
}

func TestValidateBridgeConfigMissingListenAddr(t *testing.T) {
	err := ValidateBridgeConfig(BridgeConfig{ListenAddr: "  ", Baud: 115200, ReadTimeoutMS: 500})
	if err == nil || !strings.Contains(err.Error(), "listen_addr") {
		t.Fatalf("err = %v, want listen_addr complaint", err)
	}
}
