package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hexliner/gobpio/internal/modes"
)

func TestParseByte(t *testing.T) {
	cases := []struct {
		in   string
		want byte
		ok   bool
	}{
		{"0xA0", 0xA0, true},
		{"160", 0xA0, true},
		{"0", 0x00, true},
		{"0x1FF", 0, false},
		{"zz", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := parseByte(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("parseByte(%q) err=%v", tc.in, err)
		}
		if err == nil && got != tc.want {
			t.Fatalf("parseByte(%q) = %#02x, want %#02x", tc.in, got, tc.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	col, err := parseColor("FF8000")
	if err != nil {
		t.Fatalf("parse color: %v", err)
	}
	if col != (modes.Color{R: 0xFF, G: 0x80, B: 0x00}) {
		t.Fatalf("color %#v", col)
	}
	if col, err = parseColor("#00FF00"); err != nil || col.G != 0xFF {
		t.Fatalf("hash prefix should parse, got %#v err=%v", col, err)
	}
	for _, bad := range []string{"FFF", "FF80001", "GGHHII", ""} {
		if _, err := parseColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseLEDKind(t *testing.T) {
	kind, err := parseLEDKind("WS2812")
	if err != nil || kind != modes.LEDWS2812 {
		t.Fatalf("kind %v err=%v", kind, err)
	}
	if _, err := parseLEDKind("sk6812"); err == nil {
		t.Fatal("expected error for unsupported chain")
	}
}

func TestManufacturerName(t *testing.T) {
	if got := manufacturerName(0xEF); got != "Winbond" {
		t.Fatalf("0xEF = %q", got)
	}
	if got := manufacturerName(0x00); got != "unknown" {
		t.Fatalf("0x00 = %q", got)
	}
}

func TestWriteHexDump(t *testing.T) {
	data := append([]byte("Hello, world!!"), 0x00, 0x01, 0xFF)
	var buf bytes.Buffer
	writeHexDump(&buf, data)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d:\n%s", len(lines), buf.String())
	}
	want0 := "0000: 48 65 6C 6C 6F 2C 20 77 6F 72 6C 64 21 21 00 01 Hello, world!!.."
	if lines[0] != want0 {
		t.Fatalf("row 0:\n got %q\nwant %q", lines[0], want0)
	}
	want1 := "0010: FF" + strings.Repeat(" ", 45) + " ."
	if lines[1] != want1 {
		t.Fatalf("row 1:\n got %q\nwant %q", lines[1], want1)
	}
}

func TestHexBytes(t *testing.T) {
	if got := hexBytes([]byte{0xDE, 0xAD}); got != "DE AD" {
		t.Fatalf("hexBytes = %q", got)
	}
	if got := hexBytes(nil); got != "(none)" {
		t.Fatalf("hexBytes(nil) = %q", got)
	}
}

func TestFormatStatusCounts(t *testing.T) {
	got := formatStatusCounts(map[string]int{"ok": 3, "domain": 1})
	if got != " (domain=1 ok=3)" {
		t.Fatalf("formatted %q", got)
	}
	if got := formatStatusCounts(nil); got != "" {
		t.Fatalf("empty map formatted %q", got)
	}
}
