package driver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"

	"github.com/muurk/acectl/internal/logging"
	"github.com/muurk/acectl/internal/protocol"
	"github.com/muurk/acectl/internal/transport"
)

const (
	// DefaultMaxAttempts is the default number of exchange attempts per command
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the default pause between failed attempts
	DefaultRetryDelay = 2 * time.Second
)

// Driver runs request/response exchanges with one unit over a Channel.
// All exchanges on a Driver are serialized: the lock is held for the whole
// of an Execute call, including retries and delays.
type Driver struct {
	ch transport.Channel

	maxAttempts  int
	retryDelay   time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration
	logger       *zap.Logger

	mu sync.Mutex
}

// Option configures a Driver
type Option func(*Driver)

// WithRetry sets the attempt budget and the fixed delay between attempts.
// attempts below 1 is treated as 1.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(d *Driver) {
		if attempts < 1 {
			attempts = 1
		}
		if delay < 0 {
			delay = 0
		}
		d.maxAttempts = attempts
		d.retryDelay = delay
	}
}

// WithTimeouts sets the per-write and per-read timeouts passed to the channel
func WithTimeouts(write, read time.Duration) Option {
	return func(d *Driver) {
		if write > 0 {
			d.writeTimeout = write
		}
		if read > 0 {
			d.readTimeout = read
		}
	}
}

// WithLogger replaces the driver's logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a driver for ch. The channel is not opened until Connect.
func New(ch transport.Channel, opts ...Option) *Driver {
	d := &Driver{
		ch:           ch,
		maxAttempts:  DefaultMaxAttempts,
		retryDelay:   DefaultRetryDelay,
		writeTimeout: transport.DefaultWriteTimeout,
		readTimeout:  transport.DefaultReadTimeout,
		logger:       logging.Named("driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Target identifies the underlying channel
func (d *Driver) Target() string {
	return d.ch.String()
}

// MaxAttempts returns the attempt budget per exchange
func (d *Driver) MaxAttempts() int {
	return d.maxAttempts
}

// Connect opens the channel. Connecting an open driver is a no-op.
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ch.IsOpen() {
		return nil
	}
	if err := d.ch.Open(); err != nil {
		d.logger.Warn("Connect failed",
			zap.String("target", d.ch.String()),
			zap.Error(err),
		)
		return Classify(err)
	}

	d.logger.Info("Connected", zap.String("target", d.ch.String()))
	return nil
}

// Disconnect closes the channel. It waits for an in-flight exchange to
// finish. Disconnecting a closed driver is a no-op.
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ch.IsOpen() {
		return nil
	}
	if err := d.ch.Close(); err != nil {
		return &Error{Type: ErrTypeTransport, Message: "failed to close channel", Err: err}
	}

	d.logger.Info("Disconnected", zap.String("target", d.ch.String()))
	return nil
}

// IsConnected reports whether the channel is open
func (d *Driver) IsConnected() bool {
	return d.ch.IsOpen()
}

// Execute sends method with params and returns the decoded response.
//
// Write failures and read timeouts are retried up to the attempt budget
// with a fixed delay between attempts; the final failure is reported as
// ErrTypeExhaustedRetries wrapping the last transport error. A malformed
// frame, checksum mismatch or invalid payload ends the exchange after that
// attempt. Cancelling ctx stops the wait between attempts.
func (d *Driver) Execute(ctx context.Context, method string, params map[string]any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ch.IsOpen() {
		return nil, &Error{
			Type:    ErrTypeNotConnected,
			Method:  method,
			Message: fmt.Sprintf("channel %s is not open", d.ch.String()),
		}
	}

	frame, err := protocol.Encode(method, params)
	if err != nil {
		e := Classify(err)
		e.Method = method
		e.Message = "failed to encode request"
		return nil, e
	}

	var (
		result  any
		attempt int
	)
	err = retry.Do(func() error {
		attempt++
		d.logger.Debug("Sending command",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.maxAttempts),
		)

		value, err := d.exchange(frame, attempt > 1)
		if err != nil {
			e := Classify(err)
			e.Method = method
			e.Attempt = attempt
			e.Attempts = d.maxAttempts
			return e
		}
		result = value
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(uint(d.maxAttempts)),
		retry.Delay(d.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warn("Attempt failed",
				zap.String("method", method),
				zap.Uint("attempt", n+1),
				zap.Int("max_attempts", d.maxAttempts),
				zap.Error(err),
			)
		}),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return result, nil
	}

	e := Classify(err)
	if e.Method == "" {
		// Context ended between attempts
		e.Method = method
		e.Attempt = attempt
		e.Attempts = d.maxAttempts
	}
	if e.Retryable {
		d.logger.Error("All attempts failed",
			zap.String("method", method),
			zap.Int("attempts", attempt),
			zap.Error(e),
		)
		return nil, &Error{
			Type:     ErrTypeExhaustedRetries,
			Method:   method,
			Message:  fmt.Sprintf("no valid response after %d attempts", attempt),
			Attempt:  attempt,
			Attempts: d.maxAttempts,
			Err:      e,
		}
	}

	d.logger.Warn("Command failed",
		zap.String("method", method),
		zap.Int("attempt", e.Attempt),
		zap.Error(e),
	)
	return nil, e
}

// ExecuteMap is Execute for methods whose response is a JSON object
func (d *Driver) ExecuteMap(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	value, err := d.Execute(ctx, method, params)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &Error{
			Type:    ErrTypePayload,
			Method:  method,
			Message: fmt.Sprintf("expected a JSON object, got %T", value),
		}
	}
	return obj, nil
}

// exchange performs one attempt: write the request, read and decode one
// frame. A retry first drops whatever the failed attempt left unread, so a
// late reply to that attempt cannot be taken for this one.
func (d *Driver) exchange(frame []byte, retrying bool) (any, error) {
	if retrying {
		if err := d.ch.Discard(); err != nil {
			return nil, err
		}
	}
	if err := d.ch.Write(frame, d.writeTimeout); err != nil {
		return nil, err
	}

	resp, err := protocol.ReadFrame(protocol.ReadExactFunc(func(n int) ([]byte, error) {
		return d.ch.ReadExact(n, d.readTimeout)
	}))
	if err != nil {
		return nil, err
	}

	return protocol.Decode(resp)
}
