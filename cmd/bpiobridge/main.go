// bpiobridge exposes a serial-attached instrument over TCP so bpioctl and
// other engines can reach it remotely. The wire protocol is strictly
// request/response with no channel multiplexing, so the bridge serves one
// client at a time and drops stale instrument output between clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hexliner/gobpio/internal/observability"
	"github.com/hexliner/gobpio/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to config.toml")
	listen := flag.String("listen", "", "TCP listen address")
	port := flag.String("port", "", "Serial port (e.g. /dev/ttyACM0, COM3)")
	baud := flag.Int("baud", 0, "Serial baud rate")
	metrics := flag.String("metrics", "", "Prometheus listen address (empty disables)")
	level := flag.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flag.Parse()

	cfg := defaultBridgeConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadBridgeConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bpiobridge: %v\n", err)
			os.Exit(1)
		}
	}
	applyEnvOverrides(&cfg)
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *baud > 0 {
		cfg.Baud = *baud
	}
	if *metrics != "" {
		cfg.MetricsAddr = *metrics
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if cfg.Port == "" {
		fmt.Fprintln(os.Stderr, "bpiobridge: no serial port configured, set --port or port")
		os.Exit(1)
	}

	observability.InitLogger("bpiobridge", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("bridge failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg bridgeConfig) error {
	ser, err := transport.OpenSerial(transport.SerialConfig{
		Port:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return err
	}
	defer ser.Close()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}
	defer ln.Close()

	observability.RegisterMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Info().Str("listen", cfg.ListenAddr).Str("serial", ser.String()).Msg("bridge ready")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("shutting down")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		peer := conn.RemoteAddr().String()
		observability.RecordBridgeSession()
		log.Info().Str("peer", peer).Msg("client connected")
		serveClient(ctx, conn, ser)
		log.Info().Str("peer", peer).Msg("client disconnected")
		// Anything the instrument pushed with nobody attached belongs to
		// no transaction.
		if err := ser.Drain(); err != nil {
			log.Warn().Err(err).Msg("drain serial buffer")
		}
	}
}

// serveClient proxies bytes both directions until the client goes away,
// the serial port fails or the bridge shuts down.
func serveClient(ctx context.Context, conn net.Conn, ser *transport.Serial) {
	defer conn.Close()

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				observability.RecordBridgeBytes("tx", n)
				if _, werr := ser.Write(buf[:n]); werr != nil {
					log.Error().Err(werr).Msg("serial write failed")
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			<-clientGone
			return
		case <-clientGone:
			return
		default:
		}
		n, err := ser.Read(buf)
		if n > 0 {
			observability.RecordBridgeBytes("rx", n)
			if _, werr := conn.Write(buf[:n]); werr != nil {
				<-clientGone
				return
			}
		}
		if err != nil && !errors.Is(err, transport.ErrTimeout) {
			log.Error().Err(err).Msg("serial read failed")
			conn.Close()
			<-clientGone
			return
		}
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
