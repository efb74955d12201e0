package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/muurk/acectl/internal/protocol"
)

// Responder produces the bytes a fake unit sends back for one written
// buffer. Returning nil bytes sends nothing.
type Responder func(written []byte) []byte

// Memory is an in-process Channel backed by buffers. Reads are served from
// queued bytes and from a Responder; failures can be injected per call.
// Memory never blocks: a read that cannot be satisfied times out at once.
type Memory struct {
	Name string

	mu         sync.Mutex
	open       bool
	openErr    error
	rx         bytes.Buffer
	writes     [][]byte
	writeErrs  []error
	readErrs   []error
	responder  Responder
	openCount  int
	closeCount int
	discards   int
	onWrite    func()
}

// NewMemory creates a closed in-memory channel
func NewMemory() *Memory {
	return &Memory{Name: "memory"}
}

// String implements Channel
func (m *Memory) String() string {
	return m.Name
}

// FailOpen makes the next Open calls fail with err (nil clears it)
func (m *Memory) FailOpen(err error) {
	m.mu.Lock()
	m.openErr = err
	m.mu.Unlock()
}

// QueueRead appends bytes that subsequent reads will return
func (m *Memory) QueueRead(data []byte) {
	m.mu.Lock()
	m.rx.Write(data)
	m.mu.Unlock()
}

// FailWrites queues errors returned by the next writes, one per call.
// A nil entry lets that write succeed.
func (m *Memory) FailWrites(errs ...error) {
	m.mu.Lock()
	m.writeErrs = append(m.writeErrs, errs...)
	m.mu.Unlock()
}

// FailReads queues errors returned by the next reads, one per call.
// A nil entry lets that read proceed normally.
func (m *Memory) FailReads(errs ...error) {
	m.mu.Lock()
	m.readErrs = append(m.readErrs, errs...)
	m.mu.Unlock()
}

// SetResponder installs a function that answers every successful write
func (m *Memory) SetResponder(r Responder) {
	m.mu.Lock()
	m.responder = r
	m.mu.Unlock()
}

// OnWrite registers a hook run (without the lock) after each successful write
func (m *Memory) OnWrite(fn func()) {
	m.mu.Lock()
	m.onWrite = fn
	m.mu.Unlock()
}

// Writes returns a copy of every buffer written successfully
func (m *Memory) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// WriteCount returns the number of successful writes
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// Pending returns the number of queued bytes not yet read
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rx.Len()
}

// OpenCount and CloseCount report how often the resource was acquired and released
func (m *Memory) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCount
}

func (m *Memory) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// Open implements Channel
func (m *Memory) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return nil
	}
	if m.openErr != nil {
		return &ConnectError{Target: m.Name, Err: m.openErr}
	}
	m.open = true
	m.openCount++
	return nil
}

// Close implements Channel
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	m.open = false
	m.closeCount++
	return nil
}

// IsOpen implements Channel
func (m *Memory) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Write implements Channel
func (m *Memory) Write(p []byte, _ time.Duration) error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return &Error{Op: "write", Target: m.Name, Err: ErrClosed}
	}
	if len(m.writeErrs) > 0 {
		err := m.writeErrs[0]
		m.writeErrs = m.writeErrs[1:]
		if err != nil {
			m.mu.Unlock()
			return &Error{Op: "write", Target: m.Name, Err: err}
		}
	}

	m.writes = append(m.writes, append([]byte(nil), p...))
	if m.responder != nil {
		m.rx.Write(m.responder(p))
	}
	hook := m.onWrite
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// Discard implements Channel
func (m *Memory) Discard() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return &Error{Op: "discard", Target: m.Name, Err: ErrClosed}
	}
	m.discards++
	m.rx.Reset()
	return nil
}

// DiscardCount returns how often Discard emptied the input
func (m *Memory) DiscardCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discards
}

// ReadExact implements Channel. Too few queued bytes consumes what is
// there and reports a timeout, like a real port would.
func (m *Memory) ReadExact(n int, _ time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return nil, &Error{Op: "read", Target: m.Name, Err: ErrClosed}
	}
	if len(m.readErrs) > 0 {
		err := m.readErrs[0]
		m.readErrs = m.readErrs[1:]
		if err != nil {
			return nil, &Error{Op: "read", Target: m.Name, Err: err}
		}
	}

	if m.rx.Len() < n {
		got := m.rx.Len()
		m.rx.Reset()
		return nil, newTimeoutError("read", m.Name, got, n)
	}

	out := make([]byte, n)
	copy(out, m.rx.Next(n))
	return out, nil
}

// Handler answers a decoded request with a JSON-encodable result
type Handler func(method string, params map[string]any) any

// ErrUnknownMethod can be returned (as the result) by a Handler to signal
// an unsupported method; the emulator then answers with an error object.
var ErrUnknownMethod = errors.New("unknown method")

// NewEmulator returns a Memory channel that decodes every written request
// frame and answers with a framed JSON response from h. Malformed requests
// get no answer, so the caller's read times out as it would on hardware.
func NewEmulator(name string, h Handler) *Memory {
	m := NewMemory()
	m.Name = name
	m.SetResponder(func(written []byte) []byte {
		req, err := protocol.DecodeRequest(written)
		if err != nil {
			return nil
		}

		result := h(req.Method, req.Params)
		if err, ok := result.(error); ok {
			result = map[string]any{"code": 1, "msg": err.Error()}
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return nil
		}
		frame, err := protocol.EncodePayload(payload)
		if err != nil {
			return nil
		}
		return frame
	})
	return m
}
