package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/acectl/internal/logging"
	"github.com/muurk/acectl/internal/transport"
)

// DefaultPath is the websocket endpoint served by the bridge
const DefaultPath = "/ace"

// shutdownGrace bounds how long Shutdown waits for open connections
const shutdownGrace = 10 * time.Second

// Config holds the bridge configuration
type Config struct {
	Host         string
	Port         int
	Path         string        // Websocket endpoint, DefaultPath if empty
	CertPath     string        // Serve wss:// when set together with KeyPath
	KeyPath      string
	ReadTimeout  time.Duration // Unit response timeout per request
	WriteTimeout time.Duration // Unit write timeout per request
	CaptureDir   string        // Directory for JSONL frame captures (empty = disabled)
}

// Server exposes one unit channel to websocket clients. Requests from all
// clients are serialized onto the channel one exchange at a time.
type Server struct {
	config    Config
	unit      transport.Channel
	tlsConfig *tls.Config
	upgrader  websocket.Upgrader
	capture   *Capture

	httpServer *http.Server
	wg         sync.WaitGroup

	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	closing     bool

	// exchangeMu is held for a whole request/response relay
	exchangeMu sync.Mutex
}

// New creates a bridge for unit. The channel is opened by Serve.
func New(config Config, unit transport.Channel) (*Server, error) {
	if config.Path == "" {
		config.Path = DefaultPath
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	capture, err := NewCapture(config.CaptureDir)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      config,
		unit:        unit,
		tlsConfig:   tlsConfig,
		capture:     capture,
		activeConns: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
}

// Start listens on the configured address and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	return s.Serve(ctx, ln)
}

// Serve opens the unit channel and accepts websocket clients on ln until
// ctx is done. It then shuts down and closes the channel.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.unit.Open(); err != nil {
		_ = ln.Close()
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleUpgrade)

	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logging.Info("Bridge listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("path", s.config.Path),
		zap.String("unit", s.unit.String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.String("capture", s.capture.Path()),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping bridge...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		_ = s.unit.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "bridge shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Warn("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	logging.LogConnection(remoteAddr, "websocket_upgraded")
	if err := s.relay(conn, remoteAddr); err != nil {
		logging.Info("Client connection ended",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting clients, closes open connections, waits for
// them to finish and closes the unit channel.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.closing = true
	s.mu.Unlock()

	if srv != nil {
		if err := srv.Close(); err != nil {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	return s.unit.Close()
}

// ActiveConnections returns the number of connected clients
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
