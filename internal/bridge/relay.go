package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/acectl/internal/logging"
	"github.com/muurk/acectl/internal/protocol"
	"github.com/muurk/acectl/internal/transport"
)

const (
	// Time allowed to write a message to the client
	writeWait = 10 * time.Second

	// Idle time after which a silent client is dropped
	idleWait = 5 * time.Minute

	// Maximum message size accepted from a client: one full-size frame
	maxMessageSize = protocol.MinFrameSize + protocol.MaxPayloadSize
)

// clientStream reads request bytes from a websocket connection. Message
// boundaries are ignored; bytes are buffered until a read can be satisfied.
type clientStream struct {
	conn    *websocket.Conn
	pending []byte
}

// ReadExact implements protocol.FrameReader
func (c *clientStream) ReadExact(n int) ([]byte, error) {
	for len(c.pending) < n {
		if err := c.conn.SetReadDeadline(time.Now().Add(idleWait)); err != nil {
			return nil, err
		}
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}
		c.pending = append(c.pending, data...)
	}
	out := c.pending[:n:n]
	c.pending = c.pending[n:]
	return out, nil
}

// relay forwards request frames from one client to the unit and sends each
// unit response back as a single binary message. It returns when the client
// goes away or sends bytes that are not a frame.
func (s *Server) relay(conn *websocket.Conn, remoteAddr string) error {
	conn.SetReadLimit(maxMessageSize)
	stream := &clientStream{conn: conn}

	for messageNum := 1; ; messageNum++ {
		request, err := protocol.ReadFrame(stream)
		if err != nil {
			if protocol.IsFormatError(err) {
				return fmt.Errorf("client stream out of sync: %w", err)
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		s.capture.Record(remoteAddr, messageNum, DirectionRequest, request)
		logging.LogFrame(remoteAddr, "rx", request)

		response, err := s.exchange(request)
		if err != nil {
			// No reply; the client times out and retries as it would on a serial link.
			logging.Warn("Unit exchange failed",
				zap.String("remote_addr", remoteAddr),
				zap.Int("message_num", messageNum),
				zap.Error(err),
			)
			if errors.Is(err, transport.ErrClosed) {
				return err
			}
			continue
		}

		s.capture.Record(remoteAddr, messageNum, DirectionResponse, response)

		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, response); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		logging.LogFrame(remoteAddr, "tx", response)
	}
}

// exchange writes one request to the unit and reads one response frame.
// Leftovers from an earlier unanswered or late exchange are dropped first.
func (s *Server) exchange(request []byte) ([]byte, error) {
	s.exchangeMu.Lock()
	defer s.exchangeMu.Unlock()

	if err := s.unit.Discard(); err != nil {
		return nil, err
	}
	if err := s.unit.Write(request, s.config.WriteTimeout); err != nil {
		return nil, err
	}
	return protocol.ReadFrame(protocol.ReadExactFunc(func(n int) ([]byte, error) {
		return s.unit.ReadExact(n, s.config.ReadTimeout)
	}))
}
