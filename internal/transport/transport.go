// Package transport owns the byte links the protocol engine runs over:
// the instrument's serial control channel, a TCP bridge to a remote
// instrument, and an in-memory pipe for tests. The engine itself never
// opens, configures or closes a link; it only reads and writes.
//
// Every implementation shares one timeout contract: a Read that waits out
// the configured window without data fails with ErrTimeout. The engine
// relies on that to tell a silent link from a slow frame.
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrTimeout reports a read window that elapsed without data.
var ErrTimeout = errors.New("transport: read timeout")

// DefaultReadTimeout bounds a single read when the caller does not choose.
const DefaultReadTimeout = 500 * time.Millisecond

// Conn adapts a net.Conn to the engine's timeout contract by arming a read
// deadline per call and translating the deadline error to ErrTimeout.
type Conn struct {
	conn        net.Conn
	readTimeout time.Duration
	desc        string
}

// NewConn wraps an established connection. A non-positive readTimeout
// falls back to DefaultReadTimeout.
func NewConn(conn net.Conn, readTimeout time.Duration) *Conn {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Conn{conn: conn, readTimeout: readTimeout, desc: "conn:" + conn.RemoteAddr().String()}
}

// TCPConfig locates a remote instrument behind a serial-over-TCP bridge.
type TCPConfig struct {
	Addr           string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// DialTCP connects to a bridged instrument.
func DialTCP(cfg TCPConfig) (*Conn, error) {
	if cfg.Addr == "" {
		return nil, errors.New("transport: tcp address required")
	}
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.Dial("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", cfg.Addr, err)
	}
	c := NewConn(conn, cfg.ReadTimeout)
	c.desc = "tcp:" + cfg.Addr
	return c, nil
}

// NewPipe returns an in-memory link: the wrapped end for the engine and
// the raw peer for a scripted device.
func NewPipe(readTimeout time.Duration) (*Conn, net.Conn) {
	a, b := net.Pipe()
	c := NewConn(a, readTimeout)
	c.desc = "pipe"
	return c, b
}

func (c *Conn) Read(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(p)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return n, ErrTimeout
		}
		return n, err
	}
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// String describes the link for logs and the capture journal.
func (c *Conn) String() string {
	return c.desc
}
