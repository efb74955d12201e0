package protocol

import (
	"encoding/binary"
)

// FrameReader supplies exactly n bytes or an error. Short reads must be
// reported as errors by the implementation.
type FrameReader interface {
	ReadExact(n int) ([]byte, error)
}

// ReadExactFunc adapts a function to the FrameReader interface
type ReadExactFunc func(n int) ([]byte, error)

// ReadExact implements FrameReader
func (f ReadExactFunc) ReadExact(n int) ([]byte, error) {
	return f(n)
}

// ReadFrame reads one frame from r in stages: header, length, payload,
// checksum, trailer. The returned bytes are the complete frame, ready for
// Decode.
//
// Errors returned by r are passed back unchanged. A header or trailer
// mismatch, or a reader that hands back fewer bytes than requested, is
// reported as an ErrTypeFormat *FrameError; the stream is out of sync at
// that point and no further frame boundary can be trusted.
func ReadFrame(r FrameReader) ([]byte, error) {
	header, err := readStage(r, HeaderSize, StageHeader, 0)
	if err != nil {
		return nil, err
	}
	if header[0] != HeaderByte0 || header[1] != HeaderByte1 {
		return nil, newFormatError(StageHeader, len(header), "invalid header: 0x%02x 0x%02x (expected 0x%02x 0x%02x)",
			header[0], header[1], HeaderByte0, HeaderByte1)
	}

	lengthBytes, err := readStage(r, LengthSize, StageLength, HeaderSize)
	if err != nil {
		return nil, err
	}
	payloadLen := int(binary.LittleEndian.Uint16(lengthBytes))

	frame := make([]byte, 0, MinFrameSize+payloadLen)
	frame = append(frame, header...)
	frame = append(frame, lengthBytes...)

	if payloadLen > 0 {
		payload, err := readStage(r, payloadLen, StagePayload, len(frame))
		if err != nil {
			return nil, err
		}
		frame = append(frame, payload...)
	}

	checksum, err := readStage(r, ChecksumSize, StageChecksum, len(frame))
	if err != nil {
		return nil, err
	}
	frame = append(frame, checksum...)

	trailer, err := readStage(r, TrailerSize, StageTrailer, len(frame))
	if err != nil {
		return nil, err
	}
	frame = append(frame, trailer...)
	if trailer[0] != TrailerByte {
		return nil, newFormatError(StageTrailer, len(frame), "invalid trailer: 0x%02x (expected 0x%02x)", trailer[0], TrailerByte)
	}

	return frame, nil
}

// readStage reads n bytes for one stage; have is the number of frame bytes
// already consumed, reported in errors.
func readStage(r FrameReader, n int, stage string, have int) ([]byte, error) {
	buf, err := r.ReadExact(n)
	if err != nil {
		return nil, err
	}
	if len(buf) < n {
		return nil, newFormatError(stage, have+len(buf), "short read: got %d of %d bytes", len(buf), n)
	}
	return buf[:n], nil
}
