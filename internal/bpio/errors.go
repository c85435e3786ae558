package bpio

import "fmt"

// FrameError reports a byte-stuffing failure while reassembling a response
// frame. The transaction is lost; the engine resynchronizes on the next
// delimiter.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("bpio: framing failed: %v", e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// DecodeError reports a payload that does not satisfy the message schema:
// unknown discriminant, missing required field, or a known field with the
// wrong type or length.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bpio: decode %s", e.Reason)
	}
	return fmt.Sprintf("bpio: decode %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError reports an I/O failure on the underlying link. Op is the
// operation that failed, "read" or "write". A read timeout carries
// transport.ErrTimeout as the cause.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bpio: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports that the device answered with its top-level error
// message instead of a typed response. The request never reached a handler.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bpio: device rejected request: %s", e.Message)
}

// DomainError reports that the device executed the request and the
// operation itself failed, for example an unacknowledged bus address.
type DomainError struct {
	Kind    Kind
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("bpio: %s failed on device: %s", e.Kind, e.Message)
}

// UnexpectedKindError reports a well-formed response of the wrong kind for
// the request in flight.
type UnexpectedKindError struct {
	Want Kind
	Got  Kind
}

func (e *UnexpectedKindError) Error() string {
	return fmt.Sprintf("bpio: expected %s response, got %s", e.Want, e.Got)
}
