package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// chunkReader serves ReadExact calls from a byte slice and records the
// requested sizes.
type chunkReader struct {
	data     []byte
	requests []int
	failAt   int // request index that returns errInjected, -1 for never
}

var errInjected = errors.New("injected read failure")

func (c *chunkReader) ReadExact(n int) ([]byte, error) {
	c.requests = append(c.requests, n)
	if c.failAt >= 0 && len(c.requests)-1 == c.failAt {
		return nil, errInjected
	}
	if len(c.data) < n {
		return nil, io.ErrUnexpectedEOF
	}
	out := c.data[:n]
	c.data = c.data[n:]
	return out, nil
}

func TestReadFrame(t *testing.T) {
	r := &chunkReader{data: append(append([]byte(nil), getStatusFrame...), 0xFF, 0xAA), failAt: -1}

	frame, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(frame, getStatusFrame) {
		t.Errorf("ReadFrame() = % x, want % x", frame, getStatusFrame)
	}

	wantRequests := []int{2, 2, 23, 2, 1}
	if len(r.requests) != len(wantRequests) {
		t.Fatalf("requests = %v, want %v", r.requests, wantRequests)
	}
	for i := range wantRequests {
		if r.requests[i] != wantRequests[i] {
			t.Errorf("request %d = %d, want %d", i, r.requests[i], wantRequests[i])
		}
	}

	// Bytes after the trailer are left for the next frame
	if len(r.data) != 2 {
		t.Errorf("remaining bytes = %d, want 2", len(r.data))
	}
}

func TestReadFrame_EmptyPayload(t *testing.T) {
	empty := []byte{0xFF, 0xAA, 0x00, 0x00, 0xFF, 0xFF, 0xFE}
	r := &chunkReader{data: empty, failAt: -1}

	frame, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(frame, empty) {
		t.Errorf("ReadFrame() = % x, want % x", frame, empty)
	}
	if len(r.requests) != 4 {
		t.Errorf("requests = %v, zero-length payload should not be read", r.requests)
	}
}

func TestReadFrame_Errors(t *testing.T) {
	badTrailer := append([]byte(nil), getStatusFrame...)
	badTrailer[len(badTrailer)-1] = 0xEE

	tests := []struct {
		name       string
		data       []byte
		failAt     int
		wantFormat bool
		wantErr    error
		wantStage  string
	}{
		{
			name:       "bad header",
			data:       append([]byte{0xAA, 0xFF}, getStatusFrame[2:]...),
			failAt:     -1,
			wantFormat: true,
			wantStage:  StageHeader,
		},
		{
			name:       "bad trailer",
			data:       badTrailer,
			failAt:     -1,
			wantFormat: true,
			wantStage:  StageTrailer,
		},
		{
			name:    "reader fails on header",
			data:    getStatusFrame,
			failAt:  0,
			wantErr: errInjected,
		},
		{
			name:    "reader fails mid payload",
			data:    getStatusFrame,
			failAt:  2,
			wantErr: errInjected,
		},
		{
			name:    "reader fails on trailer",
			data:    getStatusFrame,
			failAt:  4,
			wantErr: errInjected,
		},
		{
			name:    "stream ends early",
			data:    getStatusFrame[:10],
			failAt:  -1,
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(&chunkReader{data: tt.data, failAt: tt.failAt})
			if err == nil {
				t.Fatal("ReadFrame() should fail")
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadFrame() error = %v, want %v", err, tt.wantErr)
				}
				if IsFormatError(err) {
					t.Errorf("reader errors must pass through unchanged, got format error %v", err)
				}
				return
			}

			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("ReadFrame() error = %T, want *FrameError", err)
			}
			if fe.Type != ErrTypeFormat {
				t.Errorf("Type = %v, want format", fe.Type)
			}
			if fe.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", fe.Stage, tt.wantStage)
			}
		})
	}
}

func TestReadFrame_ShortReadIsFormatError(t *testing.T) {
	// A reader that violates the contract and returns fewer bytes than asked
	r := ReadExactFunc(func(n int) ([]byte, error) {
		return []byte{0xFF}, nil
	})

	_, err := ReadFrame(r)
	if !IsFormatError(err) {
		t.Fatalf("ReadFrame() error = %v, want format error", err)
	}
}
