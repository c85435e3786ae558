package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hexliner/gobpio/internal/modes"
)

func i2cCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bpioctl i2c <read|scan|dump> [options]")
	}
	switch args[0] {
	case "read":
		return i2cRead(args[1:])
	case "scan":
		return i2cScan(args[1:])
	case "dump":
		return i2cDump(args[1:])
	default:
		return fmt.Errorf("unknown i2c subcommand %q", args[0])
	}
}

// parseByte accepts decimal or 0x-prefixed values.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad byte value %q: %w", s, err)
	}
	return byte(v), nil
}

func (cf *commonFlags) openI2C(speed int) (*session, *modes.I2C, error) {
	s, err := openSession(cf)
	if err != nil {
		return nil, nil, err
	}
	m := modes.NewI2C(s.client)
	err = m.Configure(modes.I2CConfig{
		Speed:   uint32(speed),
		Power:   s.cfg.PSU,
		Pullups: s.cfg.Pullups,
	})
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, m, nil
}

func i2cRead(args []string) error {
	fs := flag.NewFlagSet("i2c read", flag.ExitOnError)
	cf := registerCommon(fs)
	device := fs.String("device", "0xA0", "8-bit device address")
	register := fs.String("register", "0x00", "Register to start reading at")
	count := fs.Int("count", 8, "Bytes to read")
	speed := fs.Int("speed", 400000, "Bus clock in hertz")
	_ = fs.Parse(args)

	dev, err := parseByte(*device)
	if err != nil {
		return err
	}
	reg, err := parseByte(*register)
	if err != nil {
		return err
	}

	s, m, err := cf.openI2C(*speed)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := m.ReadRegister(dev, reg, *count)
	if err != nil {
		return err
	}
	fmt.Printf("device 0x%02X register 0x%02X: %s\n", dev, reg, hexBytes(data))
	return nil
}

func i2cScan(args []string) error {
	fs := flag.NewFlagSet("i2c scan", flag.ExitOnError)
	cf := registerCommon(fs)
	speed := fs.Int("speed", 100000, "Bus clock in hertz")
	_ = fs.Parse(args)

	s, m, err := cf.openI2C(*speed)
	if err != nil {
		return err
	}
	defer s.Close()

	found, err := m.Scan()
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Println("no devices acknowledged")
		return nil
	}
	parts := make([]string, len(found))
	for i, addr := range found {
		parts[i] = fmt.Sprintf("0x%02X", addr)
	}
	fmt.Printf("%d devices acknowledged: %s\n", len(found), strings.Join(parts, " "))
	return nil
}

func i2cDump(args []string) error {
	fs := flag.NewFlagSet("i2c dump", flag.ExitOnError)
	cf := registerCommon(fs)
	device := fs.String("device", "0xA0", "8-bit device address")
	size := fs.Int("size", 256, "Bytes to dump")
	speed := fs.Int("speed", 400000, "Bus clock in hertz")
	_ = fs.Parse(args)

	dev, err := parseByte(*device)
	if err != nil {
		return err
	}

	s, m, err := cf.openI2C(*speed)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := m.Transfer([]byte{dev, 0x00}, *size)
	if err != nil {
		return err
	}
	fmt.Printf("EEPROM at 0x%02X, %d bytes:\n", dev, len(data))
	writeHexDump(os.Stdout, data)
	return nil
}

// writeHexDump prints 16-byte rows with an offset column and an ASCII
// gutter.
func writeHexDump(w io.Writer, data []byte) {
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[i:end]
		hexPart := make([]string, len(row))
		ascii := make([]byte, len(row))
		for j, b := range row {
			hexPart[j] = fmt.Sprintf("%02X", b)
			if b >= 32 && b < 127 {
				ascii[j] = b
			} else {
				ascii[j] = '.'
			}
		}
		fmt.Fprintf(w, "%04X: %-47s %s\n", i, strings.Join(hexPart, " "), ascii)
	}
}
