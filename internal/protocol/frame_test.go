package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"
	"strings"
	"testing"
)

// getStatusFrame is the exact frame the unit expects for a status query
var getStatusFrame = append(append([]byte{0xFF, 0xAA, 0x17, 0x00},
	[]byte(`{"method":"get_status"}`)...), 0xD3, 0xB0, 0xFE)

func TestEncode_GetStatus(t *testing.T) {
	frame, err := Encode("get_status", map[string]any{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if !bytes.Equal(frame, getStatusFrame) {
		t.Errorf("Encode() = % x\nwant       % x", frame, getStatusFrame)
	}

	if frame[0] != 0xFF || frame[1] != 0xAA {
		t.Errorf("header = % x, want ff aa", frame[:2])
	}
	if got := binary.LittleEndian.Uint16(frame[2:4]); got != 23 {
		t.Errorf("length = %d, want 23", got)
	}
	if frame[len(frame)-1] != 0xFE {
		t.Errorf("trailer = 0x%02x, want 0xfe", frame[len(frame)-1])
	}
}

func TestDecode_GetStatus(t *testing.T) {
	value, err := Decode(getStatusFrame)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := map[string]any{"method": "get_status"}
	if !reflect.DeepEqual(value, want) {
		t.Errorf("Decode() = %#v, want %#v", value, want)
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		params      map[string]any
		wantPayload string
	}{
		{
			name:        "nil params omitted",
			method:      "drying_stop",
			params:      nil,
			wantPayload: `{"method":"drying_stop"}`,
		},
		{
			name:        "empty params omitted",
			method:      "get_status",
			params:      map[string]any{},
			wantPayload: `{"method":"get_status"}`,
		},
		{
			name:        "single param",
			method:      "get_filament_info",
			params:      map[string]any{"slot": 1},
			wantPayload: `{"method":"get_filament_info","params":{"slot":1}}`,
		},
		{
			name:        "params keys sorted",
			method:      "feed_filament",
			params:      map[string]any{"speed": 25, "slot": 0, "length": 100.5},
			wantPayload: `{"method":"feed_filament","params":{"length":100.5,"slot":0,"speed":25}}`,
		},
		{
			name:        "no html escaping",
			method:      "debug<&>",
			params:      nil,
			wantPayload: `{"method":"debug<&>"}`,
		},
		{
			name:        "unicode method",
			method:      "статус",
			params:      nil,
			wantPayload: `{"method":"статус"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.method, tt.params)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			payload, err := Payload(frame)
			if err != nil {
				t.Fatalf("Payload() error = %v", err)
			}
			if string(payload) != tt.wantPayload {
				t.Errorf("payload = %s, want %s", payload, tt.wantPayload)
			}
			if got := int(binary.LittleEndian.Uint16(frame[2:4])); got != len(tt.wantPayload) {
				t.Errorf("length field = %d, want %d", got, len(tt.wantPayload))
			}
			if len(frame) != MinFrameSize+len(tt.wantPayload) {
				t.Errorf("frame size = %d, want %d", len(frame), MinFrameSize+len(tt.wantPayload))
			}
		})
	}
}

func TestEncode_Unencodable(t *testing.T) {
	_, err := Encode("bad", map[string]any{"value": math.NaN()})
	if err == nil {
		t.Fatal("Encode() should fail for NaN")
	}
	if !IsPayloadError(err) {
		t.Errorf("Encode() error should be payload error, got %v", err)
	}
}

func TestEncodePayload_TooLarge(t *testing.T) {
	_, err := EncodePayload(make([]byte, MaxPayloadSize+1))
	if !IsFormatError(err) {
		t.Errorf("EncodePayload() error = %v, want format error", err)
	}

	frame, err := EncodePayload(make([]byte, MaxPayloadSize))
	if err != nil {
		t.Fatalf("EncodePayload(max) error = %v", err)
	}
	if len(frame) != MaxPayloadSize+MinFrameSize {
		t.Errorf("frame size = %d, want %d", len(frame), MaxPayloadSize+MinFrameSize)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		method string
		params map[string]any
		want   map[string]any
	}{
		{
			name:   "no params",
			method: "get_status",
			want:   map[string]any{"method": "get_status"},
		},
		{
			name:   "numbers decode as float64",
			method: "feed_filament",
			params: map[string]any{"slot": 2, "length": 50.25, "speed": 20},
			want: map[string]any{
				"method": "feed_filament",
				"params": map[string]any{"slot": 2.0, "length": 50.25, "speed": 20.0},
			},
		},
		{
			name:   "nested values",
			method: "set_profile",
			params: map[string]any{
				"enabled": true,
				"name":    "PLA",
				"temps":   []any{190, 210},
				"extra":   map[string]any{"note": nil},
			},
			want: map[string]any{
				"method": "set_profile",
				"params": map[string]any{
					"enabled": true,
					"name":    "PLA",
					"temps":   []any{190.0, 210.0},
					"extra":   map[string]any{"note": nil},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Encode(tt.method, tt.params)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			got, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(Encode()) = %#v, want %#v", got, tt.want)
			}

			req, err := DecodeRequest(frame)
			if err != nil {
				t.Fatalf("DecodeRequest() error = %v", err)
			}
			if req.Method != tt.method {
				t.Errorf("DecodeRequest().Method = %q, want %q", req.Method, tt.method)
			}
			if len(tt.params) == 0 && req.Params != nil {
				t.Errorf("DecodeRequest().Params = %v, want nil", req.Params)
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	valid, err := Encode("get_filament_info", map[string]any{"slot": 1})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	mutate := func(f func(b []byte) []byte) []byte {
		return f(append([]byte(nil), valid...))
	}

	tests := []struct {
		name      string
		frame     []byte
		wantType  ErrorType
		wantStage string
	}{
		{
			name:      "length minus one",
			frame:     mutate(func(b []byte) []byte { b[2]--; return b }),
			wantType:  ErrTypeFormat,
			wantStage: StageLength,
		},
		{
			name:      "length plus one",
			frame:     mutate(func(b []byte) []byte { b[2]++; return b }),
			wantType:  ErrTypeFormat,
			wantStage: StageLength,
		},
		{
			name:      "bad trailer",
			frame:     mutate(func(b []byte) []byte { b[len(b)-1] = 0x00; return b }),
			wantType:  ErrTypeFormat,
			wantStage: StageTrailer,
		},
		{
			name:      "bad first header byte",
			frame:     mutate(func(b []byte) []byte { b[0] = 0xFE; return b }),
			wantType:  ErrTypeFormat,
			wantStage: StageHeader,
		},
		{
			name:      "bad second header byte",
			frame:     mutate(func(b []byte) []byte { b[1] = 0xAB; return b }),
			wantType:  ErrTypeFormat,
			wantStage: StageHeader,
		},
		{
			name:      "trailing garbage",
			frame:     mutate(func(b []byte) []byte { return append(b, 0x00, 0xFE) }),
			wantType:  ErrTypeFormat,
			wantStage: StageLength,
		},
		{
			name:      "payload byte flipped",
			frame:     mutate(func(b []byte) []byte { b[6] ^= 0x01; return b }),
			wantType:  ErrTypeIntegrity,
			wantStage: StageChecksum,
		},
		{
			name:      "checksum byte flipped",
			frame:     mutate(func(b []byte) []byte { b[len(b)-2] ^= 0x80; return b }),
			wantType:  ErrTypeIntegrity,
			wantStage: StageChecksum,
		},
		{
			name:      "invalid utf-8",
			frame:     mustEncodePayload(t, []byte{'"', 0xC3, 0x28, '"'}),
			wantType:  ErrTypePayload,
			wantStage: StagePayload,
		},
		{
			name:      "invalid json",
			frame:     mustEncodePayload(t, []byte(`{"code":`)),
			wantType:  ErrTypePayload,
			wantStage: StageJSON,
		},
		{
			name:      "empty payload",
			frame:     mustEncodePayload(t, nil),
			wantType:  ErrTypePayload,
			wantStage: StageJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Decode(tt.frame)
			if err == nil {
				t.Fatalf("Decode() = %v, want error", value)
			}
			if value != nil {
				t.Errorf("Decode() returned partial value %v", value)
			}

			fe, ok := err.(*FrameError)
			if !ok {
				t.Fatalf("Decode() error type = %T, want *FrameError", err)
			}
			if fe.Type != tt.wantType {
				t.Errorf("Type = %v, want %v (%v)", fe.Type, tt.wantType, err)
			}
			if fe.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", fe.Stage, tt.wantStage)
			}
			if fe.Length != len(tt.frame) {
				t.Errorf("Length = %d, want %d", fe.Length, len(tt.frame))
			}
		})
	}
}

func TestDecode_MinimumSize(t *testing.T) {
	for n := 0; n < MinFrameSize; n++ {
		data := bytes.Repeat([]byte{0xFF}, n)
		_, err := Decode(data)
		if !IsFormatError(err) {
			t.Errorf("Decode(%d bytes) error = %v, want format error", n, err)
		}
	}

	// Smallest well-formed frame still needs a JSON payload
	_, err := Decode([]byte{0xFF, 0xAA, 0x00, 0x00, 0xFF, 0xFF, 0xFE})
	if !IsPayloadError(err) {
		t.Errorf("Decode(empty payload) error = %v, want payload error", err)
	}
}

func TestDecode_NonObjectValues(t *testing.T) {
	tests := []struct {
		payload string
		want    any
	}{
		{`[1,2]`, []any{1.0, 2.0}},
		{`"ok"`, "ok"},
		{`42`, 42.0},
		{`null`, nil},
		{` {"code":0} `, map[string]any{"code": 0.0}},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := Decode(mustEncodePayload(t, []byte(tt.payload)))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFrameError_Message(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"Format Error", "stage=size", "2 bytes"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should contain %q", msg, want)
		}
	}
}

func TestDump(t *testing.T) {
	got := Dump(getStatusFrame)
	want := `header=ffaa len=23 payload={"method":"get_status"} crc=0xb0d3(ok) trailer=fe`
	if got != want {
		t.Errorf("Dump() = %q, want %q", got, want)
	}

	corrupt := append([]byte(nil), getStatusFrame...)
	corrupt[len(corrupt)-2] = 0x00
	if got := Dump(corrupt); !strings.Contains(got, "bad, want 0xb0d3") {
		t.Errorf("Dump(corrupt) = %q, should flag checksum", got)
	}

	if got := Dump([]byte{0xFF}); !strings.HasPrefix(got, "short frame") {
		t.Errorf("Dump(short) = %q", got)
	}
}

func mustEncodePayload(t *testing.T, payload []byte) []byte {
	t.Helper()
	frame, err := EncodePayload(payload)
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}
	return frame
}
