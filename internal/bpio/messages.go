// Package bpio speaks the request/response protocol of the instrument's
// binary control channel. A transaction encodes one typed request, frames
// it for the stream, and classifies the single framed response the device
// answers with. The packages underneath split the same way the wire does:
// cobs owns frame boundaries, wire owns field encoding, this package owns
// message meaning and the transaction engine.
package bpio

import (
	"fmt"
	"strings"
)

// Version is the protocol schema revision stamped on every request. The
// device rejects a major it does not implement; the minor only advertises
// optional fields.
type Version struct {
	Major uint8
	Minor uint8
}

// ProtocolVersion is the revision this package implements.
var ProtocolVersion = Version{Major: 2, Minor: 0}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Kind identifies a message variant independent of direction.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindStatus
	KindConfiguration
	KindData
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindConfiguration:
		return "configuration"
	case KindData:
		return "data"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Request is one of StatusRequest, ConfigurationRequest or DataRequest.
// Exactly one variant travels per packet.
type Request interface {
	Kind() Kind
	Validate() error
	isRequest()
}

// Response is one of ErrorResponse, StatusResponse, ConfigurationResponse
// or DataResponse.
type Response interface {
	Kind() Kind
	isResponse()
}

// RequestPacket is a decoded request envelope, as a device-side handler
// receives it.
type RequestPacket struct {
	Version Version
	Request Request
}

// ConfigurationRequest changes instrument state: the active mode, its
// timing parameters, the programmable supply and the bus pullups. Mode is
// required; everything else defaults to off or zero and is omitted from
// the wire when unset. Turning the supply or pullups off takes the
// explicit disable field, an unset enable means "leave as is".
type ConfigurationRequest struct {
	Mode string

	Speed          uint32
	DataBits       uint8
	ParityEven     bool
	StopBits       uint8
	FlowControl    bool
	SignalInvert   bool
	ClockStretch   bool
	ClockPolarity  bool
	ClockPhase     bool
	ChipSelectIdle bool
	Submode        uint8

	PSUEnable     bool
	PSUDisable    bool
	PSUMillivolts uint16
	PSUMilliamps  uint16

	PullupEnable  bool
	PullupDisable bool
}

func (*ConfigurationRequest) Kind() Kind { return KindConfiguration }
func (*ConfigurationRequest) isRequest() {}

func (r *ConfigurationRequest) Validate() error {
	if strings.TrimSpace(r.Mode) == "" {
		return fmt.Errorf("configuration request missing mode")
	}
	if r.PSUEnable && r.PSUDisable {
		return fmt.Errorf("configuration request enables and disables the psu")
	}
	if r.PullupEnable && r.PullupDisable {
		return fmt.Errorf("configuration request enables and disables pullups")
	}
	return nil
}

// DataRequest performs one bus transaction in the active mode: optional
// start condition, write bytes, read count, optional stop condition. All
// fields are optional; an empty request is a legal no-op on the bus.
type DataRequest struct {
	StartMain bool
	StartAlt  bool
	StopMain  bool
	StopAlt   bool
	DataWrite []byte
	BytesRead uint16
}

func (*DataRequest) Kind() Kind      { return KindData }
func (*DataRequest) isRequest()      {}
func (*DataRequest) Validate() error { return nil }

// StatusRequest queries device identity and state. Selectors narrow the
// answer; all false asks for everything.
type StatusRequest struct {
	QueryVersion bool
	QueryMode    bool
	QueryPSU     bool
	QueryPullup  bool
	QueryIO      bool
	QueryADC     bool
}

func (*StatusRequest) Kind() Kind      { return KindStatus }
func (*StatusRequest) isRequest()      {}
func (*StatusRequest) Validate() error { return nil }

// ErrorResponse is the device's top-level rejection: the request never
// reached a mode handler. Message is always present.
type ErrorResponse struct {
	Message string
}

func (*ErrorResponse) Kind() Kind  { return KindError }
func (*ErrorResponse) isResponse() {}

// ConfigurationResponse acknowledges a ConfigurationRequest. An empty
// Error means every requested change was applied.
type ConfigurationResponse struct {
	Error string
}

func (*ConfigurationResponse) Kind() Kind  { return KindConfiguration }
func (*ConfigurationResponse) isResponse() {}

// DataResponse carries the outcome of a DataRequest. An empty Error means
// the bus transaction completed; DataRead holds whatever the device read.
type DataResponse struct {
	Error    string
	DataRead []byte
}

func (*DataResponse) Kind() Kind  { return KindData }
func (*DataResponse) isResponse() {}

// StatusResponse answers a StatusRequest. Slices are empty for sections
// the selectors excluded.
type StatusResponse struct {
	Error string

	VersionSchemaMajor   uint16
	VersionSchemaMinor   uint16
	VersionFirmwareMajor uint16
	VersionFirmwareMinor uint16
	FirmwareGitHash      string
	FirmwareDate         string

	ModesAvailable []string
	ModeCurrent    string

	PSUEnabled            bool
	PSUSetMillivolts      uint16
	PSUSetMilliamps       uint16
	PSUMeasuredMillivolts uint16
	PSUMeasuredMilliamps  uint16
	PullupEnabled         bool

	ADCMillivolts []uint16
	IODirections  uint8
	IOValues      uint8
}

func (*StatusResponse) Kind() Kind  { return KindStatus }
func (*StatusResponse) isResponse() {}

// embeddedError returns the in-band failure message a matching-kind
// response can carry.
func embeddedError(resp Response) string {
	switch r := resp.(type) {
	case *ConfigurationResponse:
		return r.Error
	case *DataResponse:
		return r.Error
	case *StatusResponse:
		return r.Error
	default:
		return ""
	}
}
