package modes

import (
	"fmt"

	"github.com/hexliner/gobpio/internal/bpio"
)

// UART drives the instrument's UART bridge mode. Reads return whatever
// the firmware has buffered, so short reads are normal here.
type UART struct {
	c          *bpio.Client
	configured bool
}

func NewUART(c *bpio.Client) *UART {
	return &UART{c: c}
}

type UARTConfig struct {
	Baud         uint32
	DataBits     uint8
	ParityEven   bool
	StopBits     uint8
	FlowControl  bool
	SignalInvert bool
	Power        Power
}

// DefaultUARTConfig is 115200 8N1.
func DefaultUARTConfig() UARTConfig {
	return UARTConfig{Baud: 115200, DataBits: 8, StopBits: 1}
}

func (m *UART) Configure(cfg UARTConfig) error {
	req := bpio.ConfigurationRequest{
		Mode:         "UART",
		Speed:        cfg.Baud,
		DataBits:     cfg.DataBits,
		ParityEven:   cfg.ParityEven,
		StopBits:     cfg.StopBits,
		FlowControl:  cfg.FlowControl,
		SignalInvert: cfg.SignalInvert,
	}
	applyPower(&req, cfg.Power)
	if _, err := m.c.Configure(req); err != nil {
		return err
	}
	m.configured = true
	return nil
}

// Write sends bytes out the bridged line.
func (m *UART) Write(data []byte) error {
	_, err := m.Transfer(data, 0)
	return err
}

// Read returns up to count buffered bytes.
func (m *UART) Read(count int) ([]byte, error) {
	return m.Transfer(nil, count)
}

// Transfer writes then reads in one transaction.
func (m *UART) Transfer(write []byte, count int) ([]byte, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}
	if count < 0 || count > 0xFFFF {
		return nil, fmt.Errorf("modes: uart read count %d out of range", count)
	}
	resp, err := m.c.Transfer(bpio.DataRequest{
		DataWrite: write,
		BytesRead: uint16(count),
	})
	if err != nil {
		return nil, err
	}
	return resp.DataRead, nil
}

// ReadAsync drains one frame the firmware pushed on its own, without
// issuing a request. ok is false when the line was quiet.
func (m *UART) ReadAsync() ([]byte, bool, error) {
	if !m.configured {
		return nil, false, ErrNotConfigured
	}
	resp, ok, err := m.c.Poll()
	if err != nil || !ok {
		return nil, ok, err
	}
	return resp.DataRead, true, nil
}
