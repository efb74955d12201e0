package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Frame layout constants
const (
	HeaderByte0 = 0xFF
	HeaderByte1 = 0xAA
	TrailerByte = 0xFE

	HeaderSize   = 2
	LengthSize   = 2
	ChecksumSize = 2
	TrailerSize  = 1

	// MinFrameSize is an empty-payload frame: header + length + checksum + trailer
	MinFrameSize = HeaderSize + LengthSize + ChecksumSize + TrailerSize

	// MaxPayloadSize is the largest payload the 16-bit length field can describe
	MaxPayloadSize = 0xFFFF
)

// Header is the two-byte frame preamble
var Header = [HeaderSize]byte{HeaderByte0, HeaderByte1}

// Request is the JSON document carried by an outgoing frame
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// MarshalJSONPayload serializes the request without HTML escaping or a
// trailing newline so the bytes on the wire are exactly the JSON text.
func (r Request) MarshalJSONPayload() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, newPayloadError(StageEncoding, 0, fmt.Sprintf("cannot encode request %q", r.Method), err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// MarshalFrame encodes the request as a complete wire frame
func (r Request) MarshalFrame() ([]byte, error) {
	payload, err := r.MarshalJSONPayload()
	if err != nil {
		return nil, err
	}
	return EncodePayload(payload)
}

// Encode builds a request frame for method with optional params.
// The "params" key is omitted when params is nil or empty.
func Encode(method string, params map[string]any) ([]byte, error) {
	return Request{Method: method, Params: params}.MarshalFrame()
}

// EncodePayload wraps an already serialized payload in a frame:
//
//	FF AA | len(payload) LE | payload | Checksum(payload) LE | FE
func EncodePayload(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, newFormatError(StageLength, len(payload),
			"payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	frame := make([]byte, 0, MinFrameSize+len(payload))
	frame = append(frame, Header[:]...)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)
	frame = binary.LittleEndian.AppendUint16(frame, Checksum(payload))
	frame = append(frame, TrailerByte)

	return frame, nil
}

// Payload validates the frame structure and checksum and returns the
// payload bytes without interpreting them.
//
// Validation order: size, header, trailer, length consistency, checksum.
func Payload(frame []byte) ([]byte, error) {
	n := len(frame)
	if n < MinFrameSize {
		return nil, newFormatError(StageSize, n, "frame too short: %d bytes (minimum %d)", n, MinFrameSize)
	}

	if frame[0] != HeaderByte0 || frame[1] != HeaderByte1 {
		return nil, newFormatError(StageHeader, n, "invalid header: 0x%02x 0x%02x (expected 0x%02x 0x%02x)",
			frame[0], frame[1], HeaderByte0, HeaderByte1)
	}

	if frame[n-1] != TrailerByte {
		return nil, newFormatError(StageTrailer, n, "invalid trailer: 0x%02x (expected 0x%02x)", frame[n-1], TrailerByte)
	}

	payloadLen := int(binary.LittleEndian.Uint16(frame[2:4]))
	expected := HeaderSize + LengthSize + payloadLen + ChecksumSize + TrailerSize
	if n != expected {
		return nil, newFormatError(StageLength, n, "invalid frame length: declared payload %d needs %d bytes, got %d",
			payloadLen, expected, n)
	}

	payload := frame[4 : 4+payloadLen]
	received := binary.LittleEndian.Uint16(frame[4+payloadLen : 4+payloadLen+ChecksumSize])
	if computed := Checksum(payload); computed != received {
		return nil, newIntegrityError(n, computed, received)
	}

	return payload, nil
}

// Decode validates a complete response frame and returns its decoded JSON
// value. Objects decode to map[string]any, numbers to float64.
func Decode(frame []byte) (any, error) {
	payload, err := Payload(frame)
	if err != nil {
		return nil, err
	}

	if !utf8.Valid(payload) {
		return nil, newPayloadError(StagePayload, len(frame), "payload is not valid UTF-8", nil)
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, newPayloadError(StageJSON, len(frame), "payload is not valid JSON", err)
	}

	return value, nil
}

// DecodeRequest decodes a request frame back into a Request. It is the
// inverse of Encode and is used by device emulators and tests.
func DecodeRequest(frame []byte) (*Request, error) {
	payload, err := Payload(frame)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(payload) {
		return nil, newPayloadError(StagePayload, len(frame), "payload is not valid UTF-8", nil)
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, newPayloadError(StageJSON, len(frame), "payload is not a valid request", err)
	}
	return &req, nil
}
