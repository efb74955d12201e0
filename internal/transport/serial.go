package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/acectl/internal/logging"
)

// Serial is a Channel over a local serial port, 8N1 at BaudRate
type Serial struct {
	PortName string
	BaudRate int

	// openPort opens the OS port; replaced in tests
	openPort func(name string, mode *serial.Mode) (serial.Port, error)

	mu   sync.Mutex
	port serial.Port

	// writing holds a token while a port.Write is running, including one
	// abandoned by a timed-out Write
	writing chan struct{}
}

// NewSerial creates a closed serial channel
func NewSerial(portName string, baudRate int) *Serial {
	return &Serial{
		PortName: portName,
		BaudRate: baudRate,
		openPort: serial.Open,
		writing:  make(chan struct{}, 1),
	}
}

// String implements Channel
func (s *Serial) String() string {
	return s.PortName
}

// Open implements Channel
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: s.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := s.openPort(s.PortName, mode)
	if err != nil {
		return &ConnectError{Target: s.PortName, Err: describePortError(err)}
	}

	// Stale bytes from a previous session would desync the first frame
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return &ConnectError{Target: s.PortName, Err: fmt.Errorf("failed to flush input: %w", err)}
	}
	if err := port.ResetOutputBuffer(); err != nil {
		_ = port.Close()
		return &ConnectError{Target: s.PortName, Err: fmt.Errorf("failed to flush output: %w", err)}
	}

	s.port = port
	logging.Info("Serial port opened",
		zap.String("target", s.PortName),
		zap.Int("baud", s.BaudRate),
	)
	return nil
}

// Close implements Channel. Closing unblocks a pending Read on the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()

	if port == nil {
		return nil
	}
	logging.LogConnection(s.PortName, "closed")
	if err := port.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.PortName, err)
	}
	return nil
}

// IsOpen implements Channel
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *Serial) current(op string) (serial.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, &Error{Op: op, Target: s.PortName, Err: ErrClosed}
	}
	return s.port, nil
}

type writeResult struct {
	n   int
	err error
}

// Write implements Channel. The serial library has no write deadline, so
// the write runs on its own goroutine and is abandoned on timeout; the
// goroutine exits when the port is closed. A Write issued while an
// abandoned one is still running waits for it, within its own timeout,
// so at most one write is ever in progress on the port.
func (s *Serial) Write(p []byte, timeout time.Duration) error {
	port, err := s.current("write")
	if err != nil {
		return err
	}
	timeout = effective(timeout, DefaultWriteTimeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.writing <- struct{}{}:
	case <-timer.C:
		return &Error{Op: "write", Target: s.PortName, Timeout: true,
			Err: errors.New("previous write still in progress")}
	}

	done := make(chan writeResult, 1)
	go func() {
		n, err := port.Write(p)
		<-s.writing
		done <- writeResult{n: n, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return s.ioError("write", res.err)
		}
		if res.n < len(p) {
			return &Error{Op: "write", Target: s.PortName, Err: fmt.Errorf("short write: %d of %d bytes", res.n, len(p))}
		}
		logging.LogFrame(s.PortName, "tx", p)
		return nil
	case <-timer.C:
		return newTimeoutError("write", s.PortName, 0, len(p))
	}
}

// Discard implements Channel by flushing the OS input buffer
func (s *Serial) Discard() error {
	port, err := s.current("discard")
	if err != nil {
		return err
	}
	if err := port.ResetInputBuffer(); err != nil {
		return s.ioError("discard", err)
	}
	return nil
}

// ReadExact implements Channel. A read that returns no data means the
// port's read timeout elapsed; partial data is kept until the overall
// deadline for the call runs out.
func (s *Serial) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	port, err := s.current("read")
	if err != nil {
		return nil, err
	}
	timeout = effective(timeout, DefaultReadTimeout)
	deadline := time.Now().Add(timeout)

	buf := make([]byte, n)
	got := 0
	for got < n {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, newTimeoutError("read", s.PortName, got, n)
		}
		if err := port.SetReadTimeout(remaining); err != nil {
			return nil, s.ioError("read", err)
		}

		m, err := port.Read(buf[got:])
		if err != nil {
			return nil, s.ioError("read", err)
		}
		got += m
	}

	logging.LogFrame(s.PortName, "rx", buf)
	return buf, nil
}

// ioError wraps a port error, mapping a closed port to ErrClosed
func (s *Serial) ioError(op string, err error) *Error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		err = fmt.Errorf("%w: %v", ErrClosed, err)
	} else if !s.IsOpen() {
		err = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return &Error{Op: op, Target: s.PortName, Err: err}
}

// describePortError adds a hint for the common open failures
func describePortError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w (is the unit plugged in?)", err)
	case serial.PortBusy:
		return fmt.Errorf("%w (another program holds the port)", err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w (add your user to the dialout group)", err)
	default:
		return err
	}
}
