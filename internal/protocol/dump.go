package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// maxDumpPayload limits how much payload text Dump includes
const maxDumpPayload = 256

// Dump returns a one-line annotated breakdown of a frame for debug logs.
// It never fails; malformed input is described rather than rejected.
//
//	header=ffaa len=23 payload={"method":"get_status"} crc=0xb0d3(ok) trailer=fe
func Dump(frame []byte) string {
	if len(frame) < MinFrameSize {
		return fmt.Sprintf("short frame (%d bytes): %s", len(frame), hex.EncodeToString(frame))
	}

	var sb strings.Builder
	payloadLen := int(binary.LittleEndian.Uint16(frame[2:4]))
	fmt.Fprintf(&sb, "header=%s len=%d", hex.EncodeToString(frame[:2]), payloadLen)

	end := 4 + payloadLen
	if end+ChecksumSize+TrailerSize != len(frame) {
		fmt.Fprintf(&sb, " size-mismatch(total=%d) raw=%s", len(frame), hex.EncodeToString(frame))
		return sb.String()
	}

	payload := frame[4:end]
	text := string(payload)
	if len(text) > maxDumpPayload {
		text = text[:maxDumpPayload] + "..."
	}
	fmt.Fprintf(&sb, " payload=%s", text)

	received := binary.LittleEndian.Uint16(frame[end : end+ChecksumSize])
	status := "ok"
	if computed := Checksum(payload); computed != received {
		status = fmt.Sprintf("bad, want 0x%04x", computed)
	}
	fmt.Fprintf(&sb, " crc=0x%04x(%s) trailer=%02x", received, status, frame[len(frame)-1])

	return sb.String()
}
