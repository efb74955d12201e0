package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultReadTimeout bounds a single ReadExact call when none is given
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds a single Write call when none is given
	DefaultWriteTimeout = 2 * time.Second

	// DefaultBaudRate is the ACE USB serial speed
	DefaultBaudRate = 115200
)

// ErrClosed is returned (wrapped in *Error) by operations on a channel that
// is not open, or that was closed while the operation was in flight.
var ErrClosed = errors.New("channel closed")

// Channel is a duplex byte stream to a single unit
type Channel interface {
	// Open acquires the underlying resource. Calling Open on an open
	// channel is a no-op.
	Open() error

	// Close releases the resource. Safe to call when not open.
	Close() error

	// IsOpen reports whether the channel is open
	IsOpen() bool

	// Write sends all of p or fails within timeout
	Write(p []byte, timeout time.Duration) error

	// ReadExact returns exactly n bytes or fails within timeout.
	// Fewer than n bytes is always an error.
	ReadExact(n int, timeout time.Duration) ([]byte, error)

	// Discard drops received bytes that have not been read yet
	Discard() error

	// String identifies the channel in logs and errors
	String() string
}

// ConnectError reports that a channel could not be opened
type ConnectError struct {
	Target string // Port name or URL
	Err    error  // Underlying error
}

// Error implements the error interface
func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to open %s: %v", e.Target, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Error reports a failed read or write on an open channel
type Error struct {
	Op      string // "read" or "write"
	Target  string // Port name or URL
	Timeout bool   // The operation ran out of time
	Err     error  // Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s on %s %s: %v", e.Op, e.Target, kind, e.Err)
	}
	return fmt.Sprintf("%s on %s %s", e.Op, e.Target, kind)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// IsTimeout checks if err is a transport timeout
func IsTimeout(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Timeout
}

// IsClosed checks if err was caused by using a closed channel
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// newTimeoutError builds a timeout error with a progress note
func newTimeoutError(op, target string, got, want int) *Error {
	return &Error{
		Op:      op,
		Target:  target,
		Timeout: true,
		Err:     fmt.Errorf("got %d of %d bytes", got, want),
	}
}

// Options configure channels built by New
type Options struct {
	BaudRate         int           // Serial only
	HandshakeTimeout time.Duration // WebSocket only
}

// New returns a channel for target. ws:// and wss:// URLs select the
// websocket bridge; anything else is treated as a serial port name.
// The channel is returned closed.
func New(target string, opts Options) Channel {
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "ws://") || strings.HasPrefix(lower, "wss://") {
		ws := NewWebSocket(target)
		if opts.HandshakeTimeout > 0 {
			ws.HandshakeTimeout = opts.HandshakeTimeout
		}
		return ws
	}

	baud := opts.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return NewSerial(target, baud)
}

func effective(timeout, fallback time.Duration) time.Duration {
	if timeout <= 0 {
		return fallback
	}
	return timeout
}
