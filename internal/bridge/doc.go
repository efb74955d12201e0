// Package bridge serves an ACE unit to websocket clients.
//
// The bridge owns one transport.Channel (normally the serial port) and
// accepts clients on a websocket endpoint. Each client sends request frames
// as binary messages; message boundaries do not need to line up with
// frames. For every complete request frame the bridge writes the frame to
// the unit, reads one response frame and sends it back as a single binary
// message. Exchanges from all clients are serialized onto the channel.
//
// A request the unit does not answer gets no reply, so clients see the same
// timeout they would see on a direct serial link. A client that sends bytes
// which are not a frame is disconnected.
//
// acectl talks to a bridge when --port is a ws:// or wss:// URL:
//
//	acectl bridge --listen :8080                    # on the host with the unit
//	acectl --port ws://printer:8080/ace status      # anywhere else
//
// # Capture
//
// With CaptureDir set, every relayed frame is appended to a JSON Lines file
// (capture-YYYYMMDD-HHMMSS.jsonl) with its direction, hex bytes and decoded
// payload, for protocol analysis.
package bridge
