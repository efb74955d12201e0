package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/acectl/internal/protocol"
)

// bridge is a fake websocket-to-serial bridge. It answers request frames
// with a canned response split across two messages; a silent bridge never
// answers.
type bridge struct {
	server   *httptest.Server
	conns    atomic.Int32
	silent   atomic.Bool
	upgrader websocket.Upgrader
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	b := &bridge{}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *bridge) url() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func (b *bridge) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	b.conns.Add(1)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if b.silent.Load() {
			continue
		}
		req, err := protocol.DecodeRequest(data)
		if err != nil {
			continue
		}
		resp, _ := protocol.EncodePayload([]byte(`{"code":0,"msg":"` + req.Method + `"}`))
		half := len(resp) / 2
		_ = conn.WriteMessage(websocket.BinaryMessage, resp[:half])
		_ = conn.WriteMessage(websocket.BinaryMessage, resp[half:])
	}
}

func roundTrip(t *testing.T, ch Channel, method string) any {
	t.Helper()
	req, _ := protocol.Encode(method, nil)
	if err := ch.Write(req, time.Second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	frame, err := protocol.ReadFrame(protocol.ReadExactFunc(func(n int) ([]byte, error) {
		return ch.ReadExact(n, time.Second)
	}))
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	value, err := protocol.Decode(frame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return value
}

func TestWebSocket_RoundTrip(t *testing.T) {
	b := newBridge(t)
	ws := NewWebSocket(b.url())

	if err := ws.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ws.Close()

	for _, method := range []string{"get_status", "get_info"} {
		value := roundTrip(t, ws, method)
		obj, ok := value.(map[string]any)
		if !ok || obj["msg"] != method {
			t.Errorf("response = %v, want msg=%s", value, method)
		}
	}
	if got := b.conns.Load(); got != 1 {
		t.Errorf("bridge saw %d connections, want 1", got)
	}
}

func TestWebSocket_TimeoutRedials(t *testing.T) {
	b := newBridge(t)
	ws := NewWebSocket(b.url())
	if err := ws.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ws.Close()

	b.silent.Store(true)
	req, _ := protocol.Encode("get_status", nil)
	if err := ws.Write(req, time.Second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_, err := ws.ReadExact(2, 50*time.Millisecond)
	if !IsTimeout(err) {
		t.Fatalf("ReadExact() error = %v, want timeout", err)
	}
	if !ws.IsOpen() {
		t.Fatal("channel should stay open after a timeout")
	}

	b.silent.Store(false)
	value := roundTrip(t, ws, "get_status")
	if obj, ok := value.(map[string]any); !ok || obj["msg"] != "get_status" {
		t.Errorf("response after redial = %v", value)
	}
	if got := b.conns.Load(); got != 2 {
		t.Errorf("bridge saw %d connections, want 2", got)
	}
}

func TestWebSocket_ConnectFailure(t *testing.T) {
	b := newBridge(t)
	url := b.url()
	b.server.Close()

	ws := NewWebSocket(url)
	ws.HandshakeTimeout = time.Second
	err := ws.Open()
	if _, ok := err.(*ConnectError); !ok {
		t.Fatalf("Open() error = %v, want *ConnectError", err)
	}
	if ws.IsOpen() {
		t.Error("IsOpen() = true after failed Open")
	}
}

func TestWebSocket_Closed(t *testing.T) {
	b := newBridge(t)
	ws := NewWebSocket(b.url())

	if err := ws.Write([]byte{1}, 0); !IsClosed(err) {
		t.Errorf("Write() before Open error = %v, want ErrClosed", err)
	}

	_ = ws.Open()
	if err := ws.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := ws.ReadExact(1, 0); !IsClosed(err) {
		t.Errorf("ReadExact() after Close error = %v, want ErrClosed", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWebSocket_Discard(t *testing.T) {
	b := newBridge(t)
	ws := NewWebSocket(b.url())

	if err := ws.Discard(); !IsClosed(err) {
		t.Errorf("Discard() before Open error = %v, want ErrClosed", err)
	}

	if err := ws.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ws.Close()

	req, _ := protocol.Encode("get_status", nil)
	if err := ws.Write(req, time.Second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	// Reading the header leaves the rest of the first message buffered
	if _, err := ws.ReadExact(2, time.Second); err != nil {
		t.Fatalf("ReadExact() error = %v", err)
	}
	if err := ws.Discard(); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}

	ws.mu.Lock()
	pending := len(ws.pending)
	ws.mu.Unlock()
	if pending != 0 {
		t.Errorf("pending = %d bytes after Discard, want 0", pending)
	}
}
