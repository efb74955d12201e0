// Package transport provides the byte channels an ACE unit is reached over.
//
// A Channel is a duplex byte stream with explicit lifecycle and per-call
// timeouts. The driver package owns one Channel per unit and serializes all
// access to it; implementations only need to tolerate Close being called
// concurrently with an in-flight Write or ReadExact, which must then fail.
//
// # Implementations
//
//   - Serial: a local serial port (USB CDC or UART) via go.bug.st/serial
//   - WebSocket: a websocket-to-serial bridge (ser2net style) via gorilla/websocket
//   - Memory: an in-process fake with scripted responses and injected faults
//
// New picks Serial or WebSocket from the target string.
//
// # Errors
//
//   - *ConnectError: Open failed; not retried by the driver
//   - *Error: a read or write failed, including timeouts and short reads;
//     the driver retries these
//   - ErrClosed (wrapped in *Error): the channel was closed underneath the call
package transport
