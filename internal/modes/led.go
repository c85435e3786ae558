package modes

import (
	"fmt"

	"github.com/hexliner/gobpio/internal/bpio"
)

// LEDKind selects the attached LED chain type.
type LEDKind uint8

const (
	LEDWS2812 LEDKind = iota + 1
	LEDAPA102
	LEDOnboard
)

func (k LEDKind) String() string {
	switch k {
	case LEDWS2812:
		return "ws2812"
	case LEDAPA102:
		return "apa102"
	case LEDOnboard:
		return "onboard"
	default:
		return "unknown"
	}
}

// submode is the kind's wire value. WS2812 is the firmware default and
// travels as zero.
func (k LEDKind) submode() uint8 {
	return uint8(k) - 1
}

// MaxBrightness is the top of the 5-bit brightness field framed chains
// carry per pixel.
const MaxBrightness = 31

type Color struct {
	R, G, B uint8
}

// LED drives the instrument's LED mode. The firmware wraps each write in
// the chain's own framing: a reset pulse for WS2812, start and end frames
// for APA102. The client only lays out pixel data.
type LED struct {
	c          *bpio.Client
	kind       LEDKind
	configured bool
}

func NewLED(c *bpio.Client) *LED {
	return &LED{c: c}
}

type LEDConfig struct {
	Kind  LEDKind
	Power Power
}

func DefaultLEDConfig() LEDConfig {
	return LEDConfig{Kind: LEDWS2812}
}

func (m *LED) Configure(cfg LEDConfig) error {
	if cfg.Kind == 0 {
		cfg.Kind = LEDWS2812
	}
	req := bpio.ConfigurationRequest{Mode: "LED", Submode: cfg.Kind.submode()}
	applyPower(&req, cfg.Power)
	if _, err := m.c.Configure(req); err != nil {
		return err
	}
	m.kind = cfg.Kind
	m.configured = true
	return nil
}

// SetMany pushes one frame of pixel data down the chain. brightness only
// affects chains that carry it per pixel; it is clamped to MaxBrightness.
func (m *LED) SetMany(colors []Color, brightness uint8) error {
	if !m.configured {
		return ErrNotConfigured
	}
	return m.write(renderChain(m.kind, colors, brightness))
}

// SetRGB lights a single pixel at full brightness.
func (m *LED) SetRGB(r, g, b uint8) error {
	return m.SetMany([]Color{{R: r, G: g, B: b}}, MaxBrightness)
}

// SetRGBW lights a single four-channel pixel. Only WS2812 chains carry a
// white channel.
func (m *LED) SetRGBW(r, g, b, w uint8) error {
	if !m.configured {
		return ErrNotConfigured
	}
	if m.kind != LEDWS2812 {
		return fmt.Errorf("modes: %s chain has no white channel", m.kind)
	}
	return m.write([]byte{g, r, b, w})
}

// Clear blanks count pixels.
func (m *LED) Clear(count int) error {
	if count <= 0 {
		count = 1
	}
	return m.SetMany(make([]Color, count), MaxBrightness)
}

func (m *LED) write(stream []byte) error {
	_, err := m.c.Transfer(bpio.DataRequest{
		StartMain: true,
		StopMain:  true,
		DataWrite: stream,
	})
	return err
}

// renderChain lays out pixel bytes per chain type: WS2812 shifts GRB, the
// onboard controller takes RGB, APA102 a 0xE0|brightness prefix then BGR.
func renderChain(kind LEDKind, colors []Color, brightness uint8) []byte {
	if brightness > MaxBrightness {
		brightness = MaxBrightness
	}
	switch kind {
	case LEDAPA102:
		out := make([]byte, 0, 4*len(colors))
		for _, c := range colors {
			out = append(out, 0xE0|brightness, c.B, c.G, c.R)
		}
		return out
	case LEDOnboard:
		out := make([]byte, 0, 3*len(colors))
		for _, c := range colors {
			out = append(out, c.R, c.G, c.B)
		}
		return out
	default:
		out := make([]byte, 0, 3*len(colors))
		for _, c := range colors {
			out = append(out, c.G, c.R, c.B)
		}
		return out
	}
}
