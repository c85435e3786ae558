package modes

import (
	"errors"
	"fmt"

	"github.com/hexliner/gobpio/internal/bpio"
)

// 7-bit address range worth probing; below and above are reserved.
const (
	ScanFirst = 0x08
	ScanLast  = 0x77
)

// I2C drives the instrument's I2C mode.
type I2C struct {
	c          *bpio.Client
	configured bool
}

func NewI2C(c *bpio.Client) *I2C {
	return &I2C{c: c}
}

type I2CConfig struct {
	Speed        uint32 // bus clock in hertz
	ClockStretch bool
	Power        Power
	Pullups      bool
}

// DefaultI2CConfig is the common open-drain setup: 400 kHz with the
// instrument's pullups on.
func DefaultI2CConfig() I2CConfig {
	return I2CConfig{Speed: 400000, Pullups: true}
}

func (m *I2C) Configure(cfg I2CConfig) error {
	req := bpio.ConfigurationRequest{
		Mode:         "I2C",
		Speed:        cfg.Speed,
		ClockStretch: cfg.ClockStretch,
		PullupEnable: cfg.Pullups,
	}
	applyPower(&req, cfg.Power)
	if _, err := m.c.Configure(req); err != nil {
		return err
	}
	m.configured = true
	return nil
}

// Transfer runs one addressed transaction: start, write, read count
// bytes, stop. The write bytes carry the 8-bit device address first; the
// firmware drives the repeated start and read address itself. The device
// must return exactly count bytes.
func (m *I2C) Transfer(write []byte, count int) ([]byte, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}
	if count < 0 || count > 0xFFFF {
		return nil, fmt.Errorf("modes: i2c read count %d out of range", count)
	}
	resp, err := m.c.Transfer(bpio.DataRequest{
		StartMain: true,
		StopMain:  true,
		DataWrite: write,
		BytesRead: uint16(count),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.DataRead) != count {
		return nil, fmt.Errorf("modes: i2c read returned %d bytes, want %d", len(resp.DataRead), count)
	}
	return resp.DataRead, nil
}

// Write addresses a device and writes without reading back.
func (m *I2C) Write(write []byte) error {
	_, err := m.Transfer(write, 0)
	return err
}

// ReadRegister reads count bytes from a register behind a device. device
// is the 8-bit write address.
func (m *I2C) ReadRegister(device, register byte, count int) ([]byte, error) {
	return m.Transfer([]byte{device, register}, count)
}

// Scan probes every 7-bit address with a zero-length write and returns
// those that acknowledged. A missing acknowledgment is the expected
// negative, any other failure aborts the scan.
func (m *I2C) Scan() ([]byte, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}
	var found []byte
	for addr := byte(ScanFirst); addr <= ScanLast; addr++ {
		_, err := m.c.Transfer(bpio.DataRequest{
			StartMain: true,
			StopMain:  true,
			DataWrite: []byte{addr << 1},
		})
		if err != nil {
			var de *bpio.DomainError
			if errors.As(err, &de) {
				continue
			}
			return nil, err
		}
		found = append(found, addr)
	}
	return found, nil
}
