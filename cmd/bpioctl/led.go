package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/hexliner/gobpio/internal/modes"
)

func ledCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bpioctl led <set|off> [options]")
	}
	switch args[0] {
	case "set":
		return ledSet(args[1:])
	case "off":
		return ledOff(args[1:])
	default:
		return fmt.Errorf("unknown led subcommand %q", args[0])
	}
}

func parseLEDKind(s string) (modes.LEDKind, error) {
	switch strings.ToLower(s) {
	case "ws2812":
		return modes.LEDWS2812, nil
	case "apa102":
		return modes.LEDAPA102, nil
	case "onboard":
		return modes.LEDOnboard, nil
	default:
		return 0, fmt.Errorf("unknown led type %q (ws2812, apa102, onboard)", s)
	}
}

func parseColor(s string) (modes.Color, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || len(b) != 3 {
		return modes.Color{}, fmt.Errorf("bad color %q, want RRGGBB", s)
	}
	return modes.Color{R: b[0], G: b[1], B: b[2]}, nil
}

func (cf *commonFlags) openLED(kind modes.LEDKind) (*session, *modes.LED, error) {
	s, err := openSession(cf)
	if err != nil {
		return nil, nil, err
	}
	m := modes.NewLED(s.client)
	if err := m.Configure(modes.LEDConfig{Kind: kind, Power: s.cfg.PSU}); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, m, nil
}

func ledSet(args []string) error {
	fs := flag.NewFlagSet("led set", flag.ExitOnError)
	cf := registerCommon(fs)
	color := fs.String("color", "FF0000", "Pixel color as RRGGBB")
	count := fs.Int("count", 1, "Pixels to set")
	typ := fs.String("type", "ws2812", "Chain type (ws2812, apa102, onboard)")
	brightness := fs.Int("brightness", modes.MaxBrightness, "Brightness 0-31, framed chains only")
	_ = fs.Parse(args)

	kind, err := parseLEDKind(*typ)
	if err != nil {
		return err
	}
	col, err := parseColor(*color)
	if err != nil {
		return err
	}
	if *count <= 0 {
		return fmt.Errorf("count must be positive, got %d", *count)
	}

	s, m, err := cf.openLED(kind)
	if err != nil {
		return err
	}
	defer s.Close()

	colors := make([]modes.Color, *count)
	for i := range colors {
		colors[i] = col
	}
	if err := m.SetMany(colors, uint8(*brightness)); err != nil {
		return err
	}
	fmt.Printf("set %d %s pixels to #%02X%02X%02X\n", *count, kind, col.R, col.G, col.B)
	return nil
}

func ledOff(args []string) error {
	fs := flag.NewFlagSet("led off", flag.ExitOnError)
	cf := registerCommon(fs)
	count := fs.Int("count", 1, "Pixels to blank")
	typ := fs.String("type", "ws2812", "Chain type (ws2812, apa102, onboard)")
	_ = fs.Parse(args)

	kind, err := parseLEDKind(*typ)
	if err != nil {
		return err
	}

	s, m, err := cf.openLED(kind)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := m.Clear(*count); err != nil {
		return err
	}
	fmt.Printf("cleared %d %s pixels\n", *count, kind)
	return nil
}
