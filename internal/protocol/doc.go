// Package protocol implements the ACE serial wire protocol.
//
// This package handles construction, staged reading, and validation of the
// binary frames exchanged with an ACE filament-handling unit. Each frame
// carries a single UTF-8 JSON document: a request of the form
// {"method": "...", "params": {...}} on the way out, and an arbitrary JSON
// value on the way back.
//
// # Frame Layout
//
//	[0-1]      header    0xFF 0xAA
//	[2-3]      length    Payload length (little-endian uint16)
//	[4..4+n]   payload   UTF-8 JSON
//	[4+n..+2]  checksum  CRC-16 of the payload (little-endian uint16)
//	[last]     trailer   0xFE
//
// The checksum is the reflected CCITT variant with an initial value of
// 0xFFFF and no final XOR (CRC-16/MCRF4XX). It is computed nibble-wise to
// match the unit firmware bit for bit; see Checksum.
//
// # Usage Example - Encoding
//
//	frame, err := protocol.Encode("get_filament_info", map[string]any{"slot": 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = port.Write(frame)
//
// # Usage Example - Reading and Decoding
//
//	raw, err := protocol.ReadFrame(protocol.ReadExactFunc(func(n int) ([]byte, error) {
//	    return ch.ReadExact(n, 5*time.Second)
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := protocol.Decode(raw)
//
// # Error Handling
//
// Every validation failure is reported as a *FrameError whose Type tells
// the caller how to react:
//   - ErrTypeFormat: header, trailer, or length fields are inconsistent
//   - ErrTypeIntegrity: the payload checksum does not match
//   - ErrTypePayload: the payload is not valid UTF-8 or not valid JSON
//
// None of these are worth retrying on the same link. Errors returned by the
// byte source passed to ReadFrame are handed back unchanged so transport
// failures stay distinguishable from malformed frames.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
