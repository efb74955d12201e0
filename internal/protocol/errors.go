package protocol

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of frame validation failure
type ErrorType int

const (
	// ErrTypeFormat indicates a structurally invalid frame (size, header, trailer, length)
	ErrTypeFormat ErrorType = iota
	// ErrTypeIntegrity indicates a checksum mismatch
	ErrTypeIntegrity
	// ErrTypePayload indicates the payload is not valid UTF-8 or JSON
	ErrTypePayload
)

// Stages at which a frame can fail validation
const (
	StageSize     = "size"
	StageHeader   = "header"
	StageLength   = "length"
	StagePayload  = "payload"
	StageChecksum = "checksum"
	StageTrailer  = "trailer"
	StageJSON     = "json"
	StageEncoding = "encoding"
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeFormat:
		return "Format Error"
	case ErrTypeIntegrity:
		return "Integrity Error"
	case ErrTypePayload:
		return "Payload Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// FrameError describes why a frame was rejected
type FrameError struct {
	Type    ErrorType // Category of failure
	Stage   string    // Which part of the frame failed (StageHeader, StageChecksum, ...)
	Message string    // Human-readable detail
	Length  int       // Number of raw bytes examined
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *FrameError) Error() string {
	msg := fmt.Sprintf("%s: %s (stage=%s, %d bytes)", e.Type, e.Message, e.Stage, e.Length)
	if e.Err != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *FrameError) Unwrap() error {
	return e.Err
}

func newFormatError(stage string, length int, format string, args ...any) *FrameError {
	return &FrameError{
		Type:    ErrTypeFormat,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
		Length:  length,
	}
}

func newIntegrityError(length int, want, got uint16) *FrameError {
	return &FrameError{
		Type:    ErrTypeIntegrity,
		Stage:   StageChecksum,
		Message: fmt.Sprintf("checksum mismatch: computed 0x%04x, received 0x%04x", want, got),
		Length:  length,
	}
}

func newPayloadError(stage string, length int, message string, err error) *FrameError {
	return &FrameError{
		Type:    ErrTypePayload,
		Stage:   stage,
		Message: message,
		Length:  length,
		Err:     err,
	}
}

func isType(err error, t ErrorType) bool {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Type == t
	}
	return false
}

// IsFormatError checks if err is (or wraps) a structural frame error
func IsFormatError(err error) bool { return isType(err, ErrTypeFormat) }

// IsIntegrityError checks if err is (or wraps) a checksum mismatch
func IsIntegrityError(err error) bool { return isType(err, ErrTypeIntegrity) }

// IsPayloadError checks if err is (or wraps) a payload decoding error
func IsPayloadError(err error) bool { return isType(err, ErrTypePayload) }
