package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/hexliner/gobpio/internal/capture"
)

func captureCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bpioctl capture <tail|sessions> [options]")
	}
	switch args[0] {
	case "tail":
		return captureTail(args[1:])
	case "sessions":
		return captureSessions(args[1:])
	default:
		return fmt.Errorf("unknown capture subcommand %q", args[0])
	}
}

// openJournal opens the capture store without touching the instrument.
func openJournal(cf *commonFlags) (*capture.Store, error) {
	cfg, err := cf.runtime()
	if err != nil {
		return nil, err
	}
	if cfg.CapturePath == "" {
		return nil, errors.New("no journal configured, set --capture or capture_path")
	}
	store, err := capture.Open(cfg.CapturePath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(context.Background()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func captureTail(args []string) error {
	fs := flag.NewFlagSet("capture tail", flag.ExitOnError)
	cf := registerCommon(fs)
	limit := fs.Int("limit", 20, "Entries to print")
	wire := fs.Bool("wire", false, "Include request and response bytes")
	_ = fs.Parse(args)

	store, err := openJournal(cf)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("journal is empty")
		return nil
	}
	// Recent returns newest first; a tail reads oldest first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		line := fmt.Sprintf("%s  %-13s -> %-13s  %-15s  %10s",
			e.StartedAt.Format("2006-01-02 15:04:05.000"),
			e.RequestKind, e.ResponseKind, e.Status, e.Duration)
		if e.Detail != "" {
			line += "  " + e.Detail
		}
		fmt.Println(line)
		if *wire {
			fmt.Printf("    tx %s\n", hexBytes(e.RequestBytes))
			if len(e.ResponseBytes) > 0 {
				fmt.Printf("    rx %s\n", hexBytes(e.ResponseBytes))
			}
		}
	}
	return nil
}

func captureSessions(args []string) error {
	fs := flag.NewFlagSet("capture sessions", flag.ExitOnError)
	cf := registerCommon(fs)
	_ = fs.Parse(args)

	store, err := openJournal(cf)
	if err != nil {
		return err
	}
	defer store.Close()

	sums, err := store.Summary(context.Background())
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		fmt.Println("journal has no sessions")
		return nil
	}
	for _, sum := range sums {
		fmt.Printf("%s  %s  %-20s  %d transactions%s\n",
			sum.ID, sum.OpenedAt.Format("2006-01-02 15:04:05"),
			sum.Transport, sum.Total, formatStatusCounts(sum.ByStatus))
	}
	return nil
}

func formatStatusCounts(byStatus map[string]int) string {
	if len(byStatus) == 0 {
		return ""
	}
	statuses := make([]string, 0, len(byStatus))
	for status := range byStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	parts := make([]string, len(statuses))
	for i, status := range statuses {
		parts[i] = fmt.Sprintf("%s=%d", status, byStatus[status])
	}
	return " (" + strings.Join(parts, " ") + ")"
}
