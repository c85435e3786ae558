package bpio

import (
	"errors"
	"io"
	"time"

	"github.com/hexliner/gobpio/internal/bpio/cobs"
	"github.com/hexliner/gobpio/internal/observability"
	"github.com/hexliner/gobpio/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFrameCapacity = 4096
	DefaultReadChunk     = 512
)

// Transaction outcome labels, shared by logs, metrics and the journal.
const (
	StatusOK             = "ok"
	StatusInvalid        = "invalid"
	StatusTransport      = "transport"
	StatusFrame          = "frame"
	StatusDecode         = "decode"
	StatusProtocol       = "protocol"
	StatusDomain         = "domain"
	StatusUnexpectedKind = "unexpected_kind"
)

// Transaction is one finished exchange as a Recorder sees it. Byte slices
// are private copies of the unframed packets.
type Transaction struct {
	StartedAt     time.Time
	Duration      time.Duration
	RequestKind   Kind
	RequestBytes  []byte
	ResponseKind  Kind
	ResponseBytes []byte
	Status        string
	Detail        string
}

// Recorder consumes finished transactions, typically into the capture
// journal.
type Recorder interface {
	RecordTransaction(tx Transaction)
}

// ClientConfig carries the engine's knobs. The zero value is not usable;
// start from DefaultClientConfig.
type ClientConfig struct {
	Logger        zerolog.Logger
	Recorder      Recorder
	FrameCapacity int
	ReadChunk     int
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Logger:        log.Logger,
		FrameCapacity: DefaultFrameCapacity,
		ReadChunk:     DefaultReadChunk,
	}
}

func (c ClientConfig) WithDefaults() ClientConfig {
	if c.FrameCapacity <= 0 {
		c.FrameCapacity = DefaultFrameCapacity
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = DefaultReadChunk
	}
	return c
}

// Client runs the protocol over one transport. One transaction is in
// flight at a time; the wire carries no correlation IDs, so the Client is
// not safe for concurrent use. Opening and closing the transport belongs
// to the caller.
type Client struct {
	rw      io.ReadWriter
	log     zerolog.Logger
	rec     Recorder
	version Version

	dec      *cobs.Decoder
	payload  []byte // encoded request scratch, reset per transaction
	frame    []byte // stuffed frame scratch, reset per transaction
	read     []byte // per-read chunk
	carry    []byte // stream bytes past the last terminator
	carryBuf []byte
}

func NewClient(rw io.ReadWriter, cfg ClientConfig) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		rw:      rw,
		log:     cfg.Logger.With().Str("component", "bpio.client").Logger(),
		rec:     cfg.Recorder,
		version: ProtocolVersion,
		dec:     cobs.NewDecoder(make([]byte, cfg.FrameCapacity)),
		read:    make([]byte, cfg.ReadChunk),
	}
}

// Do performs one transaction: encode, frame, write, reassemble the
// response frame, decode, classify. The error is nil only when the device
// answered with the matching kind and no in-band failure; see the package
// error types for the failure classes.
func (c *Client) Do(req Request) (Response, error) {
	tx := Transaction{StartedAt: time.Now(), RequestKind: req.Kind()}
	resp, err := c.exchange(&tx, req)
	c.finish(&tx, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Configure applies instrument configuration and returns the device's
// acknowledgment.
func (c *Client) Configure(req ConfigurationRequest) (*ConfigurationResponse, error) {
	resp, err := c.Do(&req)
	if err != nil {
		return nil, err
	}
	return resp.(*ConfigurationResponse), nil
}

// Transfer runs one bus transaction in the active mode.
func (c *Client) Transfer(req DataRequest) (*DataResponse, error) {
	resp, err := c.Do(&req)
	if err != nil {
		return nil, err
	}
	return resp.(*DataResponse), nil
}

// Status queries device identity and state.
func (c *Client) Status(req StatusRequest) (*StatusResponse, error) {
	resp, err := c.Do(&req)
	if err != nil {
		return nil, err
	}
	return resp.(*StatusResponse), nil
}

// Poll drains one unsolicited frame if the device has sent one, for modes
// that push data outside a transaction. It returns ok=false with a nil
// error when the link stays silent through the transport's read window.
// An arriving frame is classified exactly like a data response.
func (c *Client) Poll() (*DataResponse, bool, error) {
	c.dec.Reset()
	progress := false
	for len(c.carry) > 0 {
		progress = true
		n, done, err := c.dec.Push(c.carry)
		c.carry = c.carry[n:]
		if err != nil {
			c.dropCarry()
			return nil, false, &FrameError{Err: err}
		}
		if done {
			return c.classifyPoll(c.dec.Bytes())
		}
	}
	for {
		n, err := c.rw.Read(c.read)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) && !progress {
				return nil, false, nil
			}
			return nil, false, &TransportError{Op: "read", Err: err}
		}
		if n == 0 {
			if !progress {
				return nil, false, nil
			}
			return nil, false, &TransportError{Op: "read", Err: transport.ErrTimeout}
		}
		progress = true
		used, done, derr := c.dec.Push(c.read[:n])
		if derr != nil {
			return nil, false, &FrameError{Err: derr}
		}
		if done {
			c.stash(c.read[used:n])
			return c.classifyPoll(c.dec.Bytes())
		}
	}
}

func (c *Client) classifyPoll(raw []byte) (*DataResponse, bool, error) {
	c.log.Debug().Hex("rx", raw).Msg("unsolicited frame")
	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, false, err
	}
	final, err := classify(KindData, resp)
	if err != nil {
		return nil, false, err
	}
	return final.(*DataResponse), true, nil
}

func (c *Client) exchange(tx *Transaction, req Request) (Response, error) {
	var err error
	c.payload, err = EncodeRequest(c.payload[:0], c.version, req)
	if err != nil {
		return nil, err
	}
	tx.RequestBytes = append([]byte(nil), c.payload...)

	c.frame = cobs.EncodeFrame(c.frame[:0], c.payload)
	c.log.Debug().Hex("tx", c.frame).Msg("frame out")
	n, werr := c.rw.Write(c.frame)
	if werr != nil {
		return nil, &TransportError{Op: "write", Err: werr}
	}
	if n < len(c.frame) {
		return nil, &TransportError{Op: "write", Err: io.ErrShortWrite}
	}

	raw, rerr := c.readFrame()
	if rerr != nil {
		return nil, rerr
	}
	c.log.Debug().Hex("rx", raw).Msg("frame in")

	resp, derr := DecodeResponse(raw)
	if derr != nil {
		return nil, derr
	}
	tx.ResponseKind = resp.Kind()
	tx.ResponseBytes = append([]byte(nil), raw...)
	return classify(req.Kind(), resp)
}

// readFrame reassembles one response frame, consuming buffered leftovers
// before touching the transport. A read window that closes without data is
// a transport failure here; only Poll treats silence as normal.
func (c *Client) readFrame() ([]byte, error) {
	c.dec.Reset()
	for len(c.carry) > 0 {
		n, done, err := c.dec.Push(c.carry)
		c.carry = c.carry[n:]
		if err != nil {
			c.dropCarry()
			return nil, &FrameError{Err: err}
		}
		if done {
			return c.dec.Bytes(), nil
		}
	}
	for {
		n, err := c.rw.Read(c.read)
		if err != nil {
			return nil, &TransportError{Op: "read", Err: err}
		}
		if n == 0 {
			return nil, &TransportError{Op: "read", Err: transport.ErrTimeout}
		}
		used, done, derr := c.dec.Push(c.read[:n])
		if derr != nil {
			return nil, &FrameError{Err: derr}
		}
		if done {
			c.stash(c.read[used:n])
			return c.dec.Bytes(), nil
		}
	}
}

// stash keeps bytes that arrived after a frame terminator; they open the
// next frame, solicited or not.
func (c *Client) stash(rest []byte) {
	if len(rest) == 0 {
		c.carry = nil
		return
	}
	c.carryBuf = append(c.carryBuf[:0], rest...)
	c.carry = c.carryBuf
}

func (c *Client) dropCarry() {
	if len(c.carry) > 0 {
		c.log.Warn().Int("bytes", len(c.carry)).Msg("dropping buffered stream bytes after framing error")
	}
	c.carry = nil
}

func (c *Client) finish(tx *Transaction, err error) {
	tx.Duration = time.Since(tx.StartedAt)
	tx.Status = statusOf(err)
	if err != nil {
		tx.Detail = err.Error()
		c.log.Error().Err(err).
			Str("kind", tx.RequestKind.String()).
			Str("status", tx.Status).
			Dur("duration", tx.Duration).
			Msg("transaction failed")
	} else {
		c.log.Info().
			Str("kind", tx.RequestKind.String()).
			Dur("duration", tx.Duration).
			Msg("transaction ok")
	}
	observability.RecordTransaction(tx.RequestKind.String(), tx.Status, tx.Duration)
	if c.rec != nil {
		c.rec.RecordTransaction(*tx)
	}
}

// classify applies the response contract for a request of kind want.
func classify(want Kind, resp Response) (Response, error) {
	if er, ok := resp.(*ErrorResponse); ok {
		return nil, &ProtocolError{Message: er.Message}
	}
	if resp.Kind() != want {
		return nil, &UnexpectedKindError{Want: want, Got: resp.Kind()}
	}
	if msg := embeddedError(resp); msg != "" {
		return nil, &DomainError{Kind: resp.Kind(), Message: msg}
	}
	return resp, nil
}

func statusOf(err error) string {
	if err == nil {
		return StatusOK
	}
	var (
		te *TransportError
		fe *FrameError
		de *DecodeError
		pe *ProtocolError
		me *DomainError
		ue *UnexpectedKindError
	)
	switch {
	case errors.As(err, &te):
		return StatusTransport
	case errors.As(err, &fe):
		return StatusFrame
	case errors.As(err, &de):
		return StatusDecode
	case errors.As(err, &pe):
		return StatusProtocol
	case errors.As(err, &me):
		return StatusDomain
	case errors.As(err, &ue):
		return StatusUnexpectedKind
	default:
		return StatusInvalid
	}
}
