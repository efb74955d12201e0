package bridge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/acectl/internal/logging"
	"github.com/muurk/acectl/internal/protocol"
)

// Capture directions
const (
	DirectionRequest  = "client->unit"
	DirectionResponse = "unit->client"
)

// CaptureRecord is one relayed frame, written as a JSON line
type CaptureRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	MessageNum int       `json:"message_num"`
	RemoteAddr string    `json:"remote_addr"`
	Direction  string    `json:"direction"`
	Length     int       `json:"length"`
	Payload    string    `json:"payload,omitempty"`
	FrameHex   string    `json:"frame_hex"`
}

// Capture appends relayed frames to a JSONL file. A nil *Capture records
// nothing.
type Capture struct {
	path string
	mu   sync.Mutex
}

// NewCapture prepares a capture file in dir named after the current time.
// An empty dir disables capturing and returns nil.
func NewCapture(dir string) (*Capture, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	name := fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405"))
	return &Capture{path: filepath.Join(dir, name)}, nil
}

// Path returns the capture file path, or "" when capturing is disabled
func (c *Capture) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Record appends one frame. Failures are logged, never returned.
func (c *Capture) Record(remoteAddr string, messageNum int, direction string, frame []byte) {
	if c == nil {
		return
	}

	record := CaptureRecord{
		Timestamp:  time.Now(),
		MessageNum: messageNum,
		RemoteAddr: remoteAddr,
		Direction:  direction,
		Length:     len(frame),
		FrameHex:   hex.EncodeToString(frame),
	}
	if payload, err := protocol.Payload(frame); err == nil {
		record.Payload = string(payload)
	}

	data, err := json.Marshal(record)
	if err != nil {
		logging.Error("Failed to marshal capture record", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logging.Error("Failed to open capture file",
			zap.String("filename", c.path),
			zap.Error(err),
		)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write to capture file",
			zap.String("filename", c.path),
			zap.Error(err),
		)
		return
	}

	logging.Debug("Saved frame to capture file",
		zap.String("filename", c.path),
		zap.Int("message_num", messageNum),
		zap.String("direction", direction),
	)
}
