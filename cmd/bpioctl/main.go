package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/hexliner/gobpio/internal/bpio"
	"github.com/hexliner/gobpio/internal/capture"
	"github.com/hexliner/gobpio/internal/observability"
	"github.com/hexliner/gobpio/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "status":
		err = statusCommand(os.Args[2:])
	case "i2c":
		err = i2cCommand(os.Args[2:])
	case "spi":
		err = spiCommand(os.Args[2:])
	case "uart":
		err = uartCommand(os.Args[2:])
	case "led":
		err = ledCommand(os.Args[2:])
	case "capture":
		err = captureCommand(os.Args[2:])
	case "version":
		fmt.Printf("bpioctl speaking protocol %s\n", bpio.ProtocolVersion)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "bpioctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: bpioctl <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  status            Query device identity, mode, supply and pin state")
	fmt.Println("  i2c read          Read bytes from a register behind an I2C device")
	fmt.Println("  i2c scan          Probe the bus for acknowledging addresses")
	fmt.Println("  i2c dump          Hex dump an EEPROM")
	fmt.Println("  spi id            Read and decode a flash JEDEC ID")
	fmt.Println("  spi status        Read a flash status register")
	fmt.Println("  uart send         Send bytes out the bridged line")
	fmt.Println("  uart watch        Print asynchronous receive data for a while")
	fmt.Println("  led set           Set a chain of LEDs to one color")
	fmt.Println("  led off           Blank a chain of LEDs")
	fmt.Println("  capture tail      Print recent journal entries")
	fmt.Println("  capture sessions  Summarize journal sessions")
	fmt.Println("  version           Print the protocol version")
	fmt.Println("Common options: --config, --port, --baud, --tcp, --log-level, --capture")
}

// commonFlags are the link settings every instrument command shares.
type commonFlags struct {
	config  *string
	port    *string
	baud    *int
	tcp     *string
	level   *string
	capture *string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:  fs.String("config", "", "Path to config.toml"),
		port:    fs.String("port", "", "Serial port (e.g. /dev/ttyACM0, COM3)"),
		baud:    fs.Int("baud", 0, "Serial baud rate"),
		tcp:     fs.String("tcp", "", "bpiobridge address instead of a serial port"),
		level:   fs.String("log-level", "", "Log level (trace, debug, info, warn, error)"),
		capture: fs.String("capture", "", "Journal transactions into a SQLite file"),
	}
}

// runtime merges defaults, the config file, the environment and flag
// overrides, in that order.
func (cf *commonFlags) runtime() (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()
	if *cf.config != "" {
		var err error
		cfg, err = loadConfig(*cf.config)
		if err != nil {
			return runtimeConfig{}, err
		}
	}
	applyEnvOverrides(&cfg)
	if *cf.port != "" {
		cfg.Port = *cf.port
		cfg.TCPAddr = ""
	}
	if *cf.tcp != "" {
		cfg.TCPAddr = *cf.tcp
		cfg.Port = ""
	}
	if *cf.baud > 0 {
		cfg.Baud = *cf.baud
	}
	if *cf.level != "" {
		cfg.LogLevel = *cf.level
	}
	if *cf.capture != "" {
		cfg.CapturePath = *cf.capture
	}
	return cfg, nil
}

// session is one open link to the instrument, with optional journaling.
type session struct {
	cfg    runtimeConfig
	client *bpio.Client
	store  *capture.Store
	link   io.Closer
}

func openSession(cf *commonFlags) (*session, error) {
	cfg, err := cf.runtime()
	if err != nil {
		return nil, err
	}
	if err := validateLink(cfg); err != nil {
		return nil, err
	}
	observability.InitLogger("bpioctl", cfg.LogLevel)

	var (
		rw   io.ReadWriter
		link io.Closer
		desc string
	)
	if cfg.TCPAddr != "" {
		conn, err := transport.DialTCP(transport.TCPConfig{Addr: cfg.TCPAddr, ReadTimeout: cfg.ReadTimeout})
		if err != nil {
			return nil, err
		}
		rw, link, desc = conn, conn, conn.String()
	} else {
		ser, err := transport.OpenSerial(transport.SerialConfig{Port: cfg.Port, Baud: cfg.Baud, ReadTimeout: cfg.ReadTimeout})
		if err != nil {
			return nil, err
		}
		rw, link, desc = ser, ser, ser.String()
	}
	log.Debug().Str("link", desc).Msg("connected")

	ccfg := bpio.DefaultClientConfig()
	var store *capture.Store
	if cfg.CapturePath != "" {
		ctx := context.Background()
		store, err = capture.Open(cfg.CapturePath)
		if err != nil {
			link.Close()
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			store.Close()
			link.Close()
			return nil, err
		}
		if _, err := store.BeginSession(ctx, desc); err != nil {
			store.Close()
			link.Close()
			return nil, err
		}
		ccfg.Recorder = store
	}

	return &session{
		cfg:    cfg,
		client: bpio.NewClient(rw, ccfg),
		store:  store,
		link:   link,
	}, nil
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warn().Err(err).Msg("close capture store")
		}
	}
	if err := s.link.Close(); err != nil {
		log.Warn().Err(err).Msg("close link")
	}
}
