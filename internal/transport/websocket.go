package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/acectl/internal/logging"
)

// DefaultHandshakeTimeout bounds the websocket dial
const DefaultHandshakeTimeout = 10 * time.Second

// WebSocket is a Channel over a websocket-to-serial bridge. Each binary
// (or text) message carries raw serial bytes in either direction; message
// boundaries carry no meaning.
//
// gorilla/websocket connections cannot be read again after a read error or
// deadline, so any I/O failure drops the connection and the next Write
// redials. The channel stays "open" until Close is called.
type WebSocket struct {
	URL              string
	HandshakeTimeout time.Duration
	Dialer           *websocket.Dialer

	mu      sync.Mutex
	open    bool
	conn    *websocket.Conn
	pending []byte
}

// NewWebSocket creates a closed websocket channel for url
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		URL:              url,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// String implements Channel
func (w *WebSocket) String() string {
	return w.URL
}

func (w *WebSocket) dial() (*websocket.Conn, error) {
	dialer := w.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: w.HandshakeTimeout,
		}
	}
	conn, resp, err := dialer.Dial(w.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// Open implements Channel
func (w *WebSocket) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.open {
		return nil
	}

	conn, err := w.dial()
	if err != nil {
		return &ConnectError{Target: w.URL, Err: err}
	}

	w.conn = conn
	w.open = true
	w.pending = nil
	logging.LogConnection(w.URL, "opened")
	return nil
}

// Close implements Channel
func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	wasOpen := w.open
	w.conn = nil
	w.open = false
	w.pending = nil
	w.mu.Unlock()

	if !wasOpen {
		return nil
	}
	logging.LogConnection(w.URL, "closed")
	if conn == nil {
		return nil
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

// IsOpen implements Channel
func (w *WebSocket) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// connection returns the live connection, redialing if a previous failure
// dropped it.
func (w *WebSocket) connection(op string) (*websocket.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.open {
		return nil, &Error{Op: op, Target: w.URL, Err: ErrClosed}
	}
	if w.conn != nil {
		return w.conn, nil
	}

	conn, err := w.dial()
	if err != nil {
		return nil, &Error{Op: op, Target: w.URL, Err: fmt.Errorf("redial failed: %w", err)}
	}
	logging.LogConnection(w.URL, "redialed")
	w.conn = conn
	w.pending = nil
	return conn, nil
}

// drop discards a broken connection so the next call redials
func (w *WebSocket) drop(conn *websocket.Conn) {
	w.mu.Lock()
	if w.conn == conn {
		w.conn = nil
		w.pending = nil
	}
	w.mu.Unlock()
	_ = conn.Close()
}

// Write implements Channel
func (w *WebSocket) Write(p []byte, timeout time.Duration) error {
	conn, err := w.connection("write")
	if err != nil {
		return err
	}
	timeout = effective(timeout, DefaultWriteTimeout)

	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		w.drop(conn)
		return w.ioError("write", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		w.drop(conn)
		return w.ioError("write", err)
	}

	logging.LogFrame(w.URL, "tx", p)
	return nil
}

// Discard implements Channel. Only buffered bytes are dropped; a read
// failure already drops the connection, so a late reply addressed to it
// is never seen.
func (w *WebSocket) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return &Error{Op: "discard", Target: w.URL, Err: ErrClosed}
	}
	w.pending = nil
	return nil
}

// ReadExact implements Channel. Bytes beyond n from the last message are
// kept for the next call.
func (w *WebSocket) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	conn, err := w.connection("read")
	if err != nil {
		return nil, err
	}
	timeout = effective(timeout, DefaultReadTimeout)

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		w.drop(conn)
		return nil, w.ioError("read", err)
	}

	for {
		w.mu.Lock()
		if len(w.pending) >= n {
			out := make([]byte, n)
			copy(out, w.pending[:n])
			w.pending = w.pending[n:]
			w.mu.Unlock()
			logging.LogFrame(w.URL, "rx", out)
			return out, nil
		}
		have := len(w.pending)
		w.mu.Unlock()

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			w.drop(conn)
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, newTimeoutError("read", w.URL, have, n)
			}
			return nil, w.ioError("read", err)
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}

		w.mu.Lock()
		if w.conn != conn {
			// Closed or redialed underneath us
			w.mu.Unlock()
			return nil, &Error{Op: "read", Target: w.URL, Err: ErrClosed}
		}
		w.pending = append(w.pending, data...)
		w.mu.Unlock()

		logging.Debug("Bridge message",
			zap.String("target", w.URL),
			zap.Int("length", len(data)),
		)
	}
}

func (w *WebSocket) ioError(op string, err error) *Error {
	if !w.IsOpen() || errors.Is(err, websocket.ErrCloseSent) {
		err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return &Error{Op: op, Target: w.URL, Err: err}
}
