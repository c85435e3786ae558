package modes

import (
	"fmt"

	"github.com/hexliner/gobpio/internal/bpio"
)

// SPI drives the instrument's SPI mode. Start and stop map to chip select
// assert and release.
type SPI struct {
	c          *bpio.Client
	configured bool
}

func NewSPI(c *bpio.Client) *SPI {
	return &SPI{c: c}
}

type SPIConfig struct {
	Speed          uint32 // clock in hertz
	ClockPolarity  bool
	ClockPhase     bool
	ChipSelectIdle bool // true = idle high, the usual flash wiring
	Power          Power
	Pullups        bool
}

// DefaultSPIConfig is mode 0 at 1 MHz with chip select idling high.
func DefaultSPIConfig() SPIConfig {
	return SPIConfig{Speed: 1000000, ChipSelectIdle: true}
}

func (m *SPI) Configure(cfg SPIConfig) error {
	req := bpio.ConfigurationRequest{
		Mode:           "SPI",
		Speed:          cfg.Speed,
		ClockPolarity:  cfg.ClockPolarity,
		ClockPhase:     cfg.ClockPhase,
		ChipSelectIdle: cfg.ChipSelectIdle,
		PullupEnable:   cfg.Pullups,
	}
	applyPower(&req, cfg.Power)
	if _, err := m.c.Configure(req); err != nil {
		return err
	}
	m.configured = true
	return nil
}

// Transfer asserts chip select, writes, clocks in count bytes and
// releases chip select.
func (m *SPI) Transfer(write []byte, count int) ([]byte, error) {
	if !m.configured {
		return nil, ErrNotConfigured
	}
	if count < 0 || count > 0xFFFF {
		return nil, fmt.Errorf("modes: spi read count %d out of range", count)
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
		return nil, fmt.Errorf("modes: spi read returned %d bytes, want %d", len(resp.DataRead), count)
	}
	return resp.DataRead, nil
}

// ReadJEDECID issues the identification command a serial flash answers
// with manufacturer, type and capacity.
func (m *SPI) ReadJEDECID() ([]byte, error) {
	return m.Transfer([]byte{0x9F}, 3)
}

// ReadStatusRegister reads the flash status register.
func (m *SPI) ReadStatusRegister() (byte, error) {
	b, err := m.Transfer([]byte{0x05}, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
