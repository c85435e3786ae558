package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/hexliner/gobpio/internal/modes"
)

func uartCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bpioctl uart <send|watch> [options]")
	}
	switch args[0] {
	case "send":
		return uartSend(args[1:])
	case "watch":
		return uartWatch(args[1:])
	default:
		return fmt.Errorf("unknown uart subcommand %q", args[0])
	}
}

func (cf *commonFlags) openUART(baud int) (*session, *modes.UART, error) {
	s, err := openSession(cf)
	if err != nil {
		return nil, nil, err
	}
	m := modes.NewUART(s.client)
	cfg := modes.DefaultUARTConfig()
	cfg.Baud = uint32(baud)
	cfg.Power = s.cfg.PSU
	if err := m.Configure(cfg); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, m, nil
}

func uartSend(args []string) error {
	fs := flag.NewFlagSet("uart send", flag.ExitOnError)
	cf := registerCommon(fs)
	data := fs.String("data", "", "Bytes to send")
	hexIn := fs.Bool("hex", false, "Treat --data as hex pairs")
	crlf := fs.Bool("crlf", false, "Append CR LF")
	baud := fs.Int("speed", 115200, "Line speed in bits per second")
	_ = fs.Parse(args)

	if *data == "" {
		return errors.New("nothing to send, set --data")
	}
	payload := []byte(*data)
	if *hexIn {
		var err error
		payload, err = hex.DecodeString(strings.ReplaceAll(*data, " ", ""))
		if err != nil {
			return fmt.Errorf("bad hex data: %w", err)
		}
	}
	if *crlf {
		payload = append(payload, '\r', '\n')
	}

	s, m, err := cf.openUART(*baud)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := m.Write(payload); err != nil {
		return err
	}
	fmt.Printf("sent %d bytes: %s\n", len(payload), hexBytes(payload))
	return nil
}

func uartWatch(args []string) error {
	fs := flag.NewFlagSet("uart watch", flag.ExitOnError)
	cf := registerCommon(fs)
	seconds := fs.Int("seconds", 30, "How long to watch the line")
	baud := fs.Int("speed", 115200, "Line speed in bits per second")
	_ = fs.Parse(args)

	s, m, err := cf.openUART(*baud)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("watching for %ds, ^C to stop early\n", *seconds)
	deadline := time.Now().Add(time.Duration(*seconds) * time.Second)
	total := 0
	for time.Now().Before(deadline) {
		data, ok, err := m.ReadAsync()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		total += len(data)
		fmt.Printf("rx %s (%q)\n", hexBytes(data), data)
	}
	fmt.Printf("received %d bytes\n", total)
	return nil
}
