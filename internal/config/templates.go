package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "ctl":
		return ctlTemplate, nil
	case "bridge":
		return bridgeTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const ctlTemplate = `port = "/dev/ttyACM0"
baud = 115200
read_timeout_ms = 500
log_level = "info"
capture_path = "bpio-capture.db"
psu = true
psu_mv = 3300
psu_ma = 0
pullups = true
`

const bridgeTemplate = `listen_addr = "127.0.0.1:7331"
port = "/dev/ttyACM0"
baud = 115200
read_timeout_ms = 500
metrics_addr = "127.0.0.1:9130"
log_level = "info"
`
