package bpio

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/hexliner/gobpio/internal/bpio/wire"
)

func TestRequestRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"configuration i2c", &ConfigurationRequest{
			Mode:          "I2C",
			Speed:         400000,
			PSUEnable:     true,
			PSUMillivolts: 3300,
			PSUMilliamps:  300,
			PullupEnable:  true,
		}},
		{"configuration uart", &ConfigurationRequest{
			Mode:       "UART",
			Speed:      115200,
			DataBits:   8,
			StopBits:   1,
			ParityEven: true,
		}},
		{"configuration disable actions", &ConfigurationRequest{
			Mode:          "HiZ",
			PSUDisable:    true,
			PullupDisable: true,
		}},
		{"data write read", &DataRequest{
			StartMain: true,
			StopMain:  true,
			DataWrite: []byte{0xA0, 0x10},
			BytesRead: 8,
		}},
		{"data empty", &DataRequest{}},
		{"status selectors", &StatusRequest{QueryVersion: true, QueryPSU: true}},
		{"status everything", &StatusRequest{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := EncodeRequest(nil, ProtocolVersion, tt.req)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			pkt, err := DecodeRequest(buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if pkt.Version != ProtocolVersion {
				t.Fatalf("version %s, want %s", pkt.Version, ProtocolVersion)
			}
			if !reflect.DeepEqual(pkt.Request, tt.req) {
				t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", pkt.Request, tt.req)
			}
		})
	}
}

func TestResponseRoundTrips(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{"error", &ErrorResponse{Message: "unsupported protocol version 1.0"}},
		{"configuration ok", &ConfigurationResponse{}},
		{"configuration failed", &ConfigurationResponse{Error: "unknown mode: SWD"}},
		{"data with bytes", &DataResponse{DataRead: []byte{1, 2, 3, 4, 5, 6, 7, 8}}},
		{"data nack", &DataResponse{Error: "no ack from device"}},
		{"status full", &StatusResponse{
			VersionSchemaMajor:   2,
			VersionFirmwareMajor: 1,
			VersionFirmwareMinor: 3,
			FirmwareGitHash:      "8d2c41f",
			FirmwareDate:         "2026-05-12",
			ModesAvailable:       []string{"HiZ", "I2C", "SPI"},
			ModeCurrent:          "I2C",
			PSUEnabled:           true,
			PSUSetMillivolts:     3300,
			PSUSetMilliamps:      300,
			PullupEnabled:        true,
			ADCMillivolts:        []uint16{3312, 17, 1650},
			IODirections:         0b11110000,
			IOValues:             0b10100000,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := EncodeResponse(nil, tt.resp)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := DecodeResponse(buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.resp) {
				t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, tt.resp)
			}
		})
	}
}

func TestRequestEnvelopeCarriesVersion(t *testing.T) {
	buf, err := EncodeRequest(nil, ProtocolVersion, &StatusRequest{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{reqStatus, 2, 0}
	if !bytes.Equal(buf, want) {
		t.Fatalf("empty status request encoded to %x, want %x", buf, want)
	}
}

func TestDataRequestWireLayout(t *testing.T) {
	// The canonical bus read: start, write device and register address,
	// read eight bytes, stop.
	buf, err := EncodeRequest(nil, ProtocolVersion, &DataRequest{
		StartMain: true,
		StopMain:  true,
		DataWrite: []byte{0xA0, 0x10},
		BytesRead: 8,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{
		reqData, 2, 0,
		datStartMain, wire.TypeBool, 0, 1, 1,
		datStopMain, wire.TypeBool, 0, 1, 1,
		datWrite, wire.TypeBytes, 0, 2, 0xA0, 0x10,
		datBytesRead, wire.TypeU16, 0, 2, 0, 8,
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("encoded %x, want %x", buf, want)
	}
}

func TestZeroValuedFieldsOmitted(t *testing.T) {
	buf, err := EncodeRequest(nil, ProtocolVersion, &ConfigurationRequest{Mode: "I2C"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{reqConfiguration, 2, 0, cfgMode, wire.TypeString, 0, 3, 'I', '2', 'C'}
	if !bytes.Equal(buf, want) {
		t.Fatalf("encoded %x, want %x: unset fields must stay off the wire", buf, want)
	}
}

func TestEncodeRequestValidation(t *testing.T) {
	if _, err := EncodeRequest(nil, ProtocolVersion, &ConfigurationRequest{}); err == nil {
		t.Fatalf("expected error for configuration request without mode")
	}
	if _, err := EncodeRequest(nil, ProtocolVersion, &ConfigurationRequest{
		Mode: "I2C", PSUEnable: true, PSUDisable: true,
	}); err == nil {
		t.Fatalf("expected error for conflicting psu actions")
	}
}

func TestEncodeErrorResponseRequiresMessage(t *testing.T) {
	if _, err := EncodeResponse(nil, &ErrorResponse{}); err == nil {
		t.Fatalf("expected error for error response without message")
	}
}

func TestDecodeUnknownDiscriminant(t *testing.T) {
	var de *DecodeError
	if _, err := DecodeResponse([]byte{9}); !errors.As(err, &de) {
		t.Fatalf("expected DecodeError for response discriminant 9, got %v", err)
	}
	if _, err := DecodeRequest([]byte{9, 2, 0}); !errors.As(err, &de) {
		t.Fatalf("expected DecodeError for request discriminant 9, got %v", err)
	}
}

func TestDecodeEmptyAndShortEnvelopes(t *testing.T) {
	var de *DecodeError
	if _, err := DecodeResponse(nil); !errors.As(err, &de) {
		t.Fatalf("expected DecodeError for empty response, got %v", err)
	}
	if _, err := DecodeRequest([]byte{reqData, 2}); !errors.As(err, &de) {
		t.Fatalf("expected DecodeError for short request envelope, got %v", err)
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	payload := []byte{respConfiguration}
	payload = append(payload, 200, wire.TypeU32, 0, 4, 1, 2, 3, 4) // future field
	resp, err := DecodeResponse(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	cfg, ok := resp.(*ConfigurationResponse)
	if !ok || cfg.Error != "" {
		t.Fatalf("expected clean configuration response, got %#v", resp)
	}
}

func TestDecodeMissingRequiredFields(t *testing.T) {
	var de *DecodeError
	// Configuration request with no mode field.
	if _, err := DecodeRequest([]byte{reqConfiguration, 2, 0}); !errors.As(err, &de) {
		t.Fatalf("expected DecodeError for missing mode, got %v", err)
	}
	// Error response with no message field.
	if _, err := DecodeResponse([]byte{respError}); !errors.As(err, &de) {
		t.Fatalf("expected DecodeError for missing message, got %v", err)
	}
}

func TestDecodeTruncatedField(t *testing.T) {
	payload := []byte{respData, datRead, wire.TypeBytes, 0, 8, 1, 2} // promises 8, carries 2
	_, err := DecodeResponse(payload)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !errors.Is(err, wire.ErrShortFieldValue) {
		t.Fatalf("expected wrapped ErrShortFieldValue, got %v", err)
	}
}

func TestDecodeWrongFieldType(t *testing.T) {
	payload := []byte{reqConfiguration, 2, 0}
	payload = append(payload, cfgMode, wire.TypeString, 0, 3, 'I', '2', 'C')
	payload = append(payload, cfgSpeed, wire.TypeBool, 0, 1, 1) // speed must be u32
	_, err := DecodeRequest(payload)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if !errors.Is(err, wire.ErrFieldTypeMismatch) {
		t.Fatalf("expected wrapped ErrFieldTypeMismatch, got %v", err)
	}
}

func TestStatusResponseRepeatedFieldsKeepOrder(t *testing.T) {
	resp := &StatusResponse{
		ModesAvailable: []string{"HiZ", "I2C", "SPI", "UART"},
		ADCMillivolts:  []uint16{10, 20, 30},
	}
	buf, err := EncodeResponse(nil, resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	st := got.(*StatusResponse)
	if !reflect.DeepEqual(st.ModesAvailable, resp.ModesAvailable) {
		t.Fatalf("modes %v, want %v", st.ModesAvailable, resp.ModesAvailable)
	}
	if !reflect.DeepEqual(st.ADCMillivolts, resp.ADCMillivolts) {
		t.Fatalf("adc %v, want %v", st.ADCMillivolts, resp.ADCMillivolts)
	}
}
