package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialConfig selects and times the local serial control channel. The
// instrument enumerates as CDC-ACM, so Baud is nominal; 8N1 is fixed.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// WithDefaults fills unset fields.
func (c SerialConfig) WithDefaults() SerialConfig {
	if c.Baud <= 0 {
		c.Baud = 115200
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// Serial is the instrument's local control channel.
type Serial struct {
	port serial.Port
	name string
}

// OpenSerial opens and configures the port. The library reports a timed-out
// read as (0, nil); Read translates that to ErrTimeout.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	cfg = cfg.WithDefaults()
	if cfg.Port == "" {
		return nil, errors.New("transport: serial port required")
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("transport: set read timeout on %s: %w", cfg.Port, err)
	}
	return &Serial{port: port, name: cfg.Port}, nil
}

func (s *Serial) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Drain discards bytes queued in the receive buffer. The bridge calls it
// between clients so a new session never starts mid-frame.
func (s *Serial) Drain() error {
	return s.port.ResetInputBuffer()
}

func (s *Serial) Close() error {
	return s.port.Close()
}

// String describes the link for logs and the capture journal.
func (s *Serial) String() string {
	return "serial:" + s.name
}
