package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/acectl/internal/protocol"
	"github.com/muurk/acectl/internal/transport"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConnect indicates the channel could not be opened
	ErrTypeConnect ErrorType = iota
	// ErrTypeNotConnected indicates an exchange was attempted on a closed channel
	ErrTypeNotConnected
	// ErrTypeTransport indicates a write or read failure (timeout, short read, I/O error)
	ErrTypeTransport
	// ErrTypeFormat indicates a structurally invalid response frame
	ErrTypeFormat
	// ErrTypeIntegrity indicates a response checksum mismatch
	ErrTypeIntegrity
	// ErrTypePayload indicates a response (or request) payload that is not valid JSON
	ErrTypePayload
	// ErrTypeExhaustedRetries indicates every attempt failed with a transient error
	ErrTypeExhaustedRetries
	// ErrTypeValidation indicates invalid command arguments
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnect:
		return "Connect Error"
	case ErrTypeNotConnected:
		return "Not Connected"
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeFormat:
		return "Format Error"
	case ErrTypeIntegrity:
		return "Integrity Error"
	case ErrTypePayload:
		return "Payload Error"
	case ErrTypeExhaustedRetries:
		return "Exhausted Retries"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failed driver operation
type Error struct {
	Type      ErrorType // Category of error
	Method    string    // RPC method name (empty for lifecycle errors)
	Message   string    // Human-readable error message
	Attempt   int       // Attempt on which the error occurred (1-based, 0 if none)
	Attempts  int       // Attempt budget of the exchange
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether another attempt may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Method != "" {
		msg = fmt.Sprintf("%s: %s", e.Method, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps an error from the transport or protocol layer onto the
// driver taxonomy. Transport failures are transient unless the channel was
// closed or the context ended; frame and payload failures are fatal.
// An existing *Error is returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var drvErr *Error
	if errors.As(err, &drvErr) {
		return drvErr
	}

	var connErr *transport.ConnectError
	if errors.As(err, &connErr) {
		return &Error{Type: ErrTypeConnect, Message: "failed to open channel", Err: err}
	}

	var frameErr *protocol.FrameError
	if errors.As(err, &frameErr) {
		e := &Error{Err: err}
		switch frameErr.Type {
		case protocol.ErrTypeFormat:
			e.Type, e.Message = ErrTypeFormat, "malformed response frame"
		case protocol.ErrTypeIntegrity:
			e.Type, e.Message = ErrTypeIntegrity, "response checksum mismatch"
		default:
			e.Type, e.Message = ErrTypePayload, "invalid payload"
		}
		return e
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrTypeTransport, Message: "exchange interrupted", Err: err}
	}

	if transport.IsClosed(err) {
		return &Error{Type: ErrTypeTransport, Message: "channel closed during exchange", Err: err}
	}

	if transport.IsTimeout(err) {
		return &Error{Type: ErrTypeTransport, Message: "timed out", Err: err, Retryable: true}
	}

	return &Error{Type: ErrTypeTransport, Message: "I/O failure", Err: err, Retryable: true}
}

func newValidationError(method, format string, args ...any) *Error {
	return &Error{
		Type:    ErrTypeValidation,
		Method:  method,
		Message: fmt.Sprintf(format, args...),
	}
}

func isType(err error, t ErrorType) bool {
	var drvErr *Error
	if errors.As(err, &drvErr) {
		return drvErr.Type == t
	}
	return false
}

// IsConnectError checks if an error is a failure to open the channel
func IsConnectError(err error) bool { return isType(err, ErrTypeConnect) }

// IsNotConnected checks if an error reports use of a closed channel
func IsNotConnected(err error) bool { return isType(err, ErrTypeNotConnected) }

// IsTransportError checks if an error is a single transport failure
func IsTransportError(err error) bool { return isType(err, ErrTypeTransport) }

// IsFormatError checks if an error is a malformed frame
func IsFormatError(err error) bool { return isType(err, ErrTypeFormat) }

// IsIntegrityError checks if an error is a checksum mismatch
func IsIntegrityError(err error) bool { return isType(err, ErrTypeIntegrity) }

// IsPayloadError checks if an error is an invalid JSON payload
func IsPayloadError(err error) bool { return isType(err, ErrTypePayload) }

// IsExhaustedRetries checks if an error reports an exhausted retry budget
func IsExhaustedRetries(err error) bool { return isType(err, ErrTypeExhaustedRetries) }

// IsValidationError checks if an error is a rejected command argument
func IsValidationError(err error) bool { return isType(err, ErrTypeValidation) }

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var drvErr *Error
	if errors.As(err, &drvErr) {
		return drvErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// Hint returns user-facing troubleshooting advice for an error
func Hint(err error) string {
	var drvErr *Error
	if !errors.As(err, &drvErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch drvErr.Type {
	case ErrTypeConnect:
		return strings.Join([]string{
			"The serial channel could not be opened.",
			"Troubleshooting:",
			"  • Check that the unit is powered and the USB cable is connected",
			"  • Verify the port name (ls /dev/serial/by-id/)",
			"  • Make sure no other program (e.g. Klipper) holds the port",
			"  • Check that your user may access the port (dialout group)",
		}, "\n")

	case ErrTypeNotConnected:
		return "The channel is not open. Connect before sending commands."

	case ErrTypeTransport, ErrTypeExhaustedRetries:
		return strings.Join([]string{
			"The unit did not answer in time.",
			"Troubleshooting:",
			"  • Check the baud rate (the unit uses 115200)",
			"  • Try increasing the read timeout or the retry count",
			"  • Unplug and reconnect the unit",
		}, "\n")

	case ErrTypeFormat, ErrTypeIntegrity:
		return strings.Join([]string{
			"The response frame was corrupted.",
			"This usually means a noisy link or a baud rate mismatch.",
			"Troubleshooting:",
			"  • Use a shorter or shielded USB cable",
			"  • Confirm no other process is writing to the port",
		}, "\n")

	case ErrTypePayload:
		return "The unit answered with data that is not valid JSON. Check the firmware version."

	case ErrTypeValidation:
		return "The command arguments are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var drvErr *Error
	if !errors.As(err, &drvErr) {
		return err.Error()
	}

	switch drvErr.Type {
	case ErrTypeConnect:
		return "Cannot open serial port"
	case ErrTypeNotConnected:
		return "Not connected"
	case ErrTypeTransport:
		return "Unit not responding"
	case ErrTypeExhaustedRetries:
		return fmt.Sprintf("Unit not responding after %d attempts", drvErr.Attempts)
	case ErrTypeFormat:
		return "Malformed response frame"
	case ErrTypeIntegrity:
		return "Response checksum mismatch"
	case ErrTypePayload:
		return "Invalid response payload"
	default:
		return drvErr.Message
	}
}
