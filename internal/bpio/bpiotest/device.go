// Package bpiotest emulates the instrument end of the protocol for tests:
// a scriptable device that speaks real frames over any byte stream. Tests
// either let the built-in handlers answer like idle firmware or enqueue
// exact responses, raw payloads and silence to drive the engine down a
// chosen path.
package bpiotest

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/hexliner/gobpio/internal/bpio"
	"github.com/hexliner/gobpio/internal/bpio/cobs"
)

// Device models instrument state and answers decoded requests. The zero
// value is not usable; construct with NewDevice.
type Device struct {
	mu     sync.Mutex
	script []reply
	mode   string

	// Identity seeds status responses.
	Identity bpio.StatusResponse

	// Handler overrides. A nil handler keeps the built-in behavior.
	OnConfigure func(*bpio.ConfigurationRequest) bpio.Response
	OnData      func(*bpio.DataRequest) bpio.Response
	OnStatus    func(*bpio.StatusRequest) bpio.Response
}

type reply struct {
	resp    bpio.Response
	payload []byte
	stream  []byte
	silence bool
}

// NewDevice returns a device announcing a plausible idle instrument.
func NewDevice() *Device {
	return &Device{
		Identity: bpio.StatusResponse{
			VersionSchemaMajor:   2,
			VersionSchemaMinor:   0,
			VersionFirmwareMajor: 1,
			VersionFirmwareMinor: 3,
			FirmwareGitHash:      "8d2c41f",
			FirmwareDate:         "2026-05-12",
			ModesAvailable:       []string{"HiZ", "1-WIRE", "UART", "I2C", "SPI", "DIO", "LED"},
			ModeCurrent:          "HiZ",
		},
	}
}

// Enqueue scripts the next reply as a typed response, bypassing handlers.
func (d *Device) Enqueue(resp bpio.Response) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, reply{resp: resp})
}

// EnqueueRaw scripts the next reply as an exact packet payload, framed
// normally. Use it for discriminants and field sets the codec refuses to
// produce.
func (d *Device) EnqueueRaw(payload []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, reply{payload: append([]byte(nil), payload...)})
}

// EnqueueStream scripts the next reply as verbatim stream bytes with no
// framing applied. Use it to corrupt the byte stuffing itself.
func (d *Device) EnqueueStream(stream []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, reply{stream: append([]byte(nil), stream...)})
}

// EnqueueSilence scripts the next request to go unanswered.
func (d *Device) EnqueueSilence() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = append(d.script, reply{silence: true})
}

// Mode reports the device's current mode.
func (d *Device) Mode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == "" {
		return d.Identity.ModeCurrent
	}
	return d.mode
}

// Handle answers one request payload with the stream bytes to write back,
// or nil for silence.
func (d *Device) Handle(payload []byte) []byte {
	d.mu.Lock()
	if len(d.script) > 0 {
		r := d.script[0]
		d.script = d.script[1:]
		d.mu.Unlock()
		switch {
		case r.silence:
			return nil
		case r.stream != nil:
			return r.stream
		case r.payload != nil:
			return cobs.EncodeFrame(nil, r.payload)
		default:
			return frameResponse(r.resp)
		}
	}
	d.mu.Unlock()
	return frameResponse(d.answer(payload))
}

func (d *Device) answer(payload []byte) bpio.Response {
	pkt, err := bpio.DecodeRequest(payload)
	if err != nil {
		return &bpio.ErrorResponse{Message: fmt.Sprintf("malformed request: %v", err)}
	}
	if pkt.Version.Major != bpio.ProtocolVersion.Major {
		return &bpio.ErrorResponse{Message: fmt.Sprintf("unsupported protocol version %s", pkt.Version)}
	}
	switch req := pkt.Request.(type) {
	case *bpio.ConfigurationRequest:
		if d.OnConfigure != nil {
			return d.OnConfigure(req)
		}
		return d.configure(req)
	case *bpio.DataRequest:
		if d.OnData != nil {
			return d.OnData(req)
		}
		return d.data(req)
	case *bpio.StatusRequest:
		if d.OnStatus != nil {
			return d.OnStatus(req)
		}
		return d.status(req)
	default:
		return &bpio.ErrorResponse{Message: "unhandled request"}
	}
}

func (d *Device) configure(req *bpio.ConfigurationRequest) bpio.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.Identity.ModesAvailable {
		if m == req.Mode {
			d.mode = req.Mode
			return &bpio.ConfigurationResponse{}
		}
	}
	return &bpio.ConfigurationResponse{Error: "unknown mode: " + req.Mode}
}

func (d *Device) data(req *bpio.DataRequest) bpio.Response {
	d.mu.Lock()
	mode := d.mode
	d.mu.Unlock()
	if mode == "" || mode == "HiZ" {
		return &bpio.ErrorResponse{Message: "active mode has no data handler"}
	}
	return &bpio.DataResponse{DataRead: make([]byte, req.BytesRead)}
}

func (d *Device) status(req *bpio.StatusRequest) bpio.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp := d.Identity
	if d.mode != "" {
		resp.ModeCurrent = d.mode
	}
	all := !req.QueryVersion && !req.QueryMode && !req.QueryPSU &&
		!req.QueryPullup && !req.QueryIO && !req.QueryADC
	if !all {
		if !req.QueryVersion {
			resp.VersionSchemaMajor, resp.VersionSchemaMinor = 0, 0
			resp.VersionFirmwareMajor, resp.VersionFirmwareMinor = 0, 0
			resp.FirmwareGitHash, resp.FirmwareDate = "", ""
		}
		if !req.QueryMode {
			resp.ModesAvailable, resp.ModeCurrent = nil, ""
		}
		if !req.QueryPSU {
			resp.PSUEnabled = false
			resp.PSUSetMillivolts, resp.PSUSetMilliamps = 0, 0
			resp.PSUMeasuredMillivolts, resp.PSUMeasuredMilliamps = 0, 0
		}
		if !req.QueryPullup {
			resp.PullupEnabled = false
		}
		if !req.QueryIO {
			resp.IODirections, resp.IOValues = 0, 0
		}
		if !req.QueryADC {
			resp.ADCMillivolts = nil
		}
	}
	return &resp
}

func frameResponse(resp bpio.Response) []byte {
	payload, err := bpio.EncodeResponse(nil, resp)
	if err != nil {
		payload, _ = bpio.EncodeResponse(nil, &bpio.ErrorResponse{Message: err.Error()})
	}
	return cobs.EncodeFrame(nil, payload)
}

// Serve pumps the device side of a stream until the peer closes: frames
// in, frames out. Framing errors resynchronize on the next delimiter the
// way firmware does.
func Serve(conn io.ReadWriter, d *Device) error {
	dec := cobs.NewDecoder(make([]byte, 4096))
	buf := make([]byte, 512)
	resync := false
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		chunk := buf[:n]
		for len(chunk) > 0 {
			if resync {
				i := bytes.IndexByte(chunk, cobs.Delimiter)
				if i < 0 {
					chunk = nil
					break
				}
				chunk = chunk[i+1:]
				dec.Reset()
				resync = false
				continue
			}
			used, done, derr := dec.Push(chunk)
			chunk = chunk[used:]
			if derr != nil {
				// Bad stuffing consumed its delimiter already; an
				// oversized frame has not.
				dec.Reset()
				resync = derr == cobs.ErrOverflow
				continue
			}
			if !done {
				continue
			}
			out := d.Handle(dec.Bytes())
			dec.Reset()
			if out != nil {
				if _, werr := conn.Write(out); werr != nil {
					return werr
				}
			}
		}
	}
}
