package bpiotest

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/hexliner/gobpio/internal/bpio"
	"github.com/hexliner/gobpio/internal/bpio/cobs"
	"github.com/hexliner/gobpio/internal/testutil/testlog"
	"github.com/hexliner/gobpio/internal/transport"
)

func startDevice(t *testing.T, d *Device) (*bpio.Client, *transport.Conn) {
	t.Helper()
	link, devEnd := transport.NewPipe(250 * time.Millisecond)
	go func() { _ = Serve(devEnd, d) }()
	t.Cleanup(func() { _ = devEnd.Close() })
	cfg := bpio.DefaultClientConfig()
	cfg.Logger = testlog.Start(t)
	return bpio.NewClient(link, cfg), link
}

func TestEEPROMReadEndToEnd(t *testing.T) {
	// A 256-byte memory behind bus address 0xA0 with one-byte addressing,
	// the way a small serial EEPROM answers a write-then-read transaction.
	mem := make([]byte, 256)
	for i := range mem {
		mem[i] = byte(255 - i)
	}
	dev := NewDevice()
	dev.OnData = func(req *bpio.DataRequest) bpio.Response {
		if len(req.DataWrite) < 2 || req.DataWrite[0] != 0xA0 {
			return &bpio.DataResponse{Error: "no ack"}
		}
		addr := int(req.DataWrite[1])
		end := addr + int(req.BytesRead)
		if end > len(mem) {
			return &bpio.DataResponse{Error: "read past end of array"}
		}
		return &bpio.DataResponse{DataRead: append([]byte(nil), mem[addr:end]...)}
	}
	c, _ := startDevice(t, dev)

	cfgResp, err := c.Configure(bpio.ConfigurationRequest{
		Mode:          "I2C",
		Speed:         400000,
		PSUEnable:     true,
		PSUMillivolts: 3300,
		PSUMilliamps:  300,
		PullupEnable:  true,
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if cfgResp.Error != "" {
		t.Fatalf("configure rejected: %q", cfgResp.Error)
	}

	data, err := c.Transfer(bpio.DataRequest{
		StartMain: true,
		StopMain:  true,
		DataWrite: []byte{0xA0, 0x10},
		BytesRead: 8,
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !bytes.Equal(data.DataRead, mem[0x10:0x18]) {
		t.Fatalf("read %x, want %x", data.DataRead, mem[0x10:0x18])
	}
}

func TestStatusAnswersIdentity(t *testing.T) {
	c, _ := startDevice(t, NewDevice())

	st, err := c.Status(bpio.StatusRequest{})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.VersionSchemaMajor != 2 || st.ModeCurrent != "HiZ" {
		t.Fatalf("identity %#v", st)
	}
	if len(st.ModesAvailable) == 0 {
		t.Fatalf("expected a mode list")
	}
}

func TestStatusSelectorsNarrowTheAnswer(t *testing.T) {
	c, _ := startDevice(t, NewDevice())

	st, err := c.Status(bpio.StatusRequest{QueryMode: true})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.ModeCurrent == "" || len(st.ModesAvailable) == 0 {
		t.Fatalf("mode section missing: %#v", st)
	}
	if st.VersionSchemaMajor != 0 || st.FirmwareGitHash != "" {
		t.Fatalf("version section should be excluded: %#v", st)
	}
}

func TestDataBeforeConfigureIsRejected(t *testing.T) {
	c, _ := startDevice(t, NewDevice())

	_, err := c.Transfer(bpio.DataRequest{BytesRead: 1})
	var pe *bpio.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestConfigureUnknownModeIsDomainFailure(t *testing.T) {
	c, _ := startDevice(t, NewDevice())

	_, err := c.Configure(bpio.ConfigurationRequest{Mode: "SWD"})
	var de *bpio.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if de.Kind != bpio.KindConfiguration {
		t.Fatalf("kind %v", de.Kind)
	}
}

func TestDeviceRejectsForeignMajorVersion(t *testing.T) {
	dev := NewDevice()
	raw := dev.Handle(mustEncodeRequest(t, bpio.Version{Major: 1, Minor: 9}, &bpio.StatusRequest{}))
	resp := mustDecodeFramed(t, raw)
	er, ok := resp.(*bpio.ErrorResponse)
	if !ok {
		t.Fatalf("expected ErrorResponse, got %#v", resp)
	}
	if er.Message == "" {
		t.Fatalf("expected a version message")
	}
}

func TestScriptedSilenceTimesTheClientOut(t *testing.T) {
	dev := NewDevice()
	dev.EnqueueSilence()
	c, _ := startDevice(t, dev)

	_, err := c.Status(bpio.StatusRequest{})
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestServeResynchronizesAfterBadStuffing(t *testing.T) {
	c, link := startDevice(t, NewDevice())

	// The bad sequence consumes its own delimiter, so the next request
	// must be answered normally.
	if _, err := link.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatalf("inject: %v", err)
	}
	if _, err := c.Status(bpio.StatusRequest{}); err != nil {
		t.Fatalf("status after garbage: %v", err)
	}
}

func mustEncodeRequest(t *testing.T, v bpio.Version, req bpio.Request) []byte {
	t.Helper()
	buf, err := bpio.EncodeRequest(nil, v, req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	return buf
}

func mustDecodeFramed(t *testing.T, stream []byte) bpio.Response {
	t.Helper()
	dec := cobs.NewDecoder(make([]byte, 4096))
	_, done, err := dec.Push(stream)
	if err != nil || !done {
		t.Fatalf("reassemble reply: done=%v err=%v", done, err)
	}
	resp, err := bpio.DecodeResponse(dec.Bytes())
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}
