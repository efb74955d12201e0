package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/acectl/internal/driver"
	"github.com/muurk/acectl/internal/protocol"
	"github.com/muurk/acectl/internal/transport"
)

func statusHandler(method string, params map[string]any) any {
	if method != "get_status" {
		return transport.ErrUnknownMethod
	}
	return map[string]any{"code": 0, "msg": "success", "result": map[string]any{"status": "ready"}}
}

// startBridge serves unit on a loopback port and returns the client URL
func startBridge(t *testing.T, unit transport.Channel, cfg Config) (*Server, string) {
	t.Helper()

	srv, err := New(cfg, unit)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve() did not return after cancel")
		}
	})

	return srv, "ws://" + ln.Addr().String() + DefaultPath
}

func TestDriverThroughBridge(t *testing.T) {
	unit := transport.NewEmulator("unit", statusHandler)
	_, url := startBridge(t, unit, Config{ReadTimeout: time.Second})

	drv := driver.New(transport.NewWebSocket(url), driver.WithRetry(1, 0))
	if err := drv.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = drv.Disconnect() }()

	resp, err := drv.ExecuteMap(context.Background(), "get_status", nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp["msg"] != "success" {
		t.Errorf("msg = %v, want success", resp["msg"])
	}
	if unit.WriteCount() != 1 {
		t.Errorf("unit writes = %d, want 1", unit.WriteCount())
	}
	if !unit.IsOpen() {
		t.Error("bridge should hold the unit open while serving")
	}
}

func TestSplitRequest(t *testing.T) {
	unit := transport.NewEmulator("unit", statusHandler)
	_, url := startBridge(t, unit, Config{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	frame, err := protocol.Encode("get_status", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, part := range [][]byte{frame[:5], frame[5:]} {
		if err := conn.WriteMessage(websocket.BinaryMessage, part); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := protocol.Decode(data); err != nil {
		t.Errorf("response is not a valid frame: %v", err)
	}
}

func TestGarbageDisconnects(t *testing.T) {
	unit := transport.NewEmulator("unit", statusHandler)
	_, url := startBridge(t, unit, Config{})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("hello unit")); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("bridge should drop a client that sends non-frame bytes")
	}
	if unit.WriteCount() != 0 {
		t.Errorf("unit writes = %d, want 0", unit.WriteCount())
	}
}

func echoMethod(method string, params map[string]any) any {
	return map[string]any{"code": 0, "msg": "success", "method": method}
}

// sendFrame writes one request frame and waits up to wait for a reply
func sendFrame(t *testing.T, conn *websocket.Conn, method string, wait time.Duration) (any, error) {
	t.Helper()
	frame, err := protocol.Encode(method, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.Decode(data)
}

func TestStaleReplyNotForwarded(t *testing.T) {
	unit := transport.NewEmulator("unit", echoMethod)
	unit.FailReads(errors.New("glitch"))
	_, url := startBridge(t, unit, Config{})

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = first.Close() }()
	if _, err := sendFrame(t, first, "get_status", 200*time.Millisecond); err == nil {
		t.Fatal("a request whose reply was lost should get no answer")
	}

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = second.Close() }()
	value, err := sendFrame(t, second, "get_filament_info", 2*time.Second)
	if err != nil {
		t.Fatalf("second client: %v", err)
	}
	if obj, _ := value.(map[string]any); obj["method"] != "get_filament_info" {
		t.Errorf("second client got %v, want its own get_filament_info reply", value)
	}
	if unit.Pending() != 0 {
		t.Errorf("unit pending = %d bytes, want 0", unit.Pending())
	}
}

func TestLargeRequest(t *testing.T) {
	unit := transport.NewEmulator("unit", statusHandler)
	_, url := startBridge(t, unit, Config{})

	drv := driver.New(transport.NewWebSocket(url), driver.WithRetry(1, 0))
	if err := drv.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = drv.Disconnect() }()

	params := map[string]any{"note": strings.Repeat("x", 20000)}
	if _, err := drv.Execute(context.Background(), "get_status", params); err != nil {
		t.Fatalf("Execute() with a 20 KB request error = %v", err)
	}
}

func TestSilentUnit(t *testing.T) {
	unit := transport.NewMemory()
	_, url := startBridge(t, unit, Config{})

	drv := driver.New(transport.NewWebSocket(url),
		driver.WithRetry(2, 0),
		driver.WithTimeouts(time.Second, 200*time.Millisecond),
	)
	if err := drv.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = drv.Disconnect() }()

	_, err := drv.Execute(context.Background(), "get_status", nil)
	if !driver.IsExhaustedRetries(err) {
		t.Fatalf("Execute() error = %v, want exhausted retries", err)
	}
	if unit.WriteCount() != 2 {
		t.Errorf("unit writes = %d, want 2", unit.WriteCount())
	}
}

func TestCapture(t *testing.T) {
	dir := t.TempDir()
	unit := transport.NewEmulator("unit", statusHandler)
	srv, url := startBridge(t, unit, Config{CaptureDir: dir})

	drv := driver.New(transport.NewWebSocket(url), driver.WithRetry(1, 0))
	if err := drv.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, err := drv.Execute(context.Background(), "get_status", nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	_ = drv.Disconnect()

	f, err := os.Open(srv.capture.Path())
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer func() { _ = f.Close() }()

	var records []CaptureRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r CaptureRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("bad capture line %q: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Direction != DirectionRequest || records[0].Payload != `{"method":"get_status"}` {
		t.Errorf("request record = %+v", records[0])
	}
	if records[1].Direction != DirectionResponse || records[1].MessageNum != 1 {
		t.Errorf("response record = %+v", records[1])
	}
}

func TestNewCaptureDisabled(t *testing.T) {
	c, err := NewCapture("")
	if err != nil || c != nil {
		t.Fatalf("NewCapture(\"\") = %v, %v, want nil, nil", c, err)
	}
	if c.Path() != "" {
		t.Errorf("Path() = %q, want empty", c.Path())
	}
	c.Record("x", 1, DirectionRequest, []byte{0xFF})
}

func TestNewTLSConfigErrors(t *testing.T) {
	if _, err := New(Config{CertPath: "cert.pem"}, transport.NewMemory()); err == nil {
		t.Error("New() with only a certificate should fail")
	}
	if _, err := NewTLSConfig("/nonexistent/cert.pem", "/nonexistent/key.pem"); err == nil {
		t.Error("NewTLSConfig() with missing files should fail")
	}
}

func TestServeOpenFailure(t *testing.T) {
	unit := transport.NewMemory()
	unit.FailOpen(os.ErrPermission)

	srv, err := New(Config{}, unit)
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Serve(context.Background(), ln); err == nil {
		t.Error("Serve() should fail when the unit cannot be opened")
	}
}
