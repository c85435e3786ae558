package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/hexliner/gobpio/internal/modes"
)

func spiCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bpioctl spi <id|status> [options]")
	}
	switch args[0] {
	case "id":
		return spiID(args[1:])
	case "status":
		return spiStatus(args[1:])
	default:
		return fmt.Errorf("unknown spi subcommand %q", args[0])
	}
}

var flashManufacturers = map[byte]string{
	0xEF: "Winbond",
	0xC2: "Macronix",
	0x20: "Micron/ST",
	0x01: "Spansion/Cypress",
	0xBF: "SST/Microchip",
	0x1F: "Atmel/Adesto",
	0x85: "Puya",
}

func manufacturerName(id byte) string {
	if name, ok := flashManufacturers[id]; ok {
		return name
	}
	return "unknown"
}

func (cf *commonFlags) openSPI(speed int) (*session, *modes.SPI, error) {
	s, err := openSession(cf)
	if err != nil {
		return nil, nil, err
	}
	m := modes.NewSPI(s.client)
	err = m.Configure(modes.SPIConfig{
		Speed:          uint32(speed),
		ChipSelectIdle: true,
		Power:          s.cfg.PSU,
		Pullups:        s.cfg.Pullups,
	})
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, m, nil
}

func spiID(args []string) error {
	fs := flag.NewFlagSet("spi id", flag.ExitOnError)
	cf := registerCommon(fs)
	speed := fs.Int("speed", 1000000, "Clock in hertz")
	_ = fs.Parse(args)

	s, m, err := cf.openSPI(*speed)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := m.ReadJEDECID()
	if err != nil {
		return err
	}
	fmt.Printf("JEDEC ID:     %02X%02X%02X\n", id[0], id[1], id[2])
	fmt.Printf("Manufacturer: %s (0x%02X)\n", manufacturerName(id[0]), id[0])
	fmt.Printf("Device type:  0x%02X\n", id[1])
	fmt.Printf("Capacity:     0x%02X\n", id[2])
	return nil
}

func spiStatus(args []string) error {
	fs := flag.NewFlagSet("spi status", flag.ExitOnError)
	cf := registerCommon(fs)
	speed := fs.Int("speed", 1000000, "Clock in hertz")
	_ = fs.Parse(args)

	s, m, err := cf.openSPI(*speed)
	if err != nil {
		return err
	}
	defer s.Close()

	sr, err := m.ReadStatusRegister()
	if err != nil {
		return err
	}
	fmt.Printf("Status register: 0x%02X (0b%08b)\n", sr, sr)
	fmt.Printf("  WIP (write in progress):  %s\n", yesNo(sr&0x01 != 0))
	fmt.Printf("  WEL (write enable latch): %s\n", yesNo(sr&0x02 != 0))
	fmt.Printf("  Block protection bits:    0b%03b\n", (sr>>2)&0x07)
	return nil
}
