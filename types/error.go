package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the client.
type ErrorCode string

// Startup error codes
const (
	ErrConfig     ErrorCode = "CONFIG_ERROR"
	ErrConnection ErrorCode = "CONNECTION_ERROR"
)

// Exchange error codes
const (
	ErrSend                       ErrorCode = "SEND_ERROR"
	ErrMalformedFrame             ErrorCode = "MALFORMED_FRAME"
	ErrUnexpectedFrameKind        ErrorCode = "UNEXPECTED_FRAME_KIND"
	ErrRemote                     ErrorCode = "REMOTE_ERROR"
	ErrStreamEndedWithoutArtifact ErrorCode = "STREAM_ENDED_WITHOUT_ARTIFACT"
	ErrTimeout                    ErrorCode = "TIMEOUT"
	ErrUncorrelatedResponse       ErrorCode = "UNCORRELATED_RESPONSE"
)

// Artifact error codes
const (
	ErrDecode ErrorCode = "DECODE_ERROR"
	ErrIO     ErrorCode = "IO_ERROR"
)

// Phase names the stage of a run that produced an error.
type Phase string

const (
	PhaseConfig   Phase = "config"
	PhaseConnect  Phase = "connect"
	PhaseSend     Phase = "send"
	PhaseReceive  Phase = "receive"
	PhaseArtifact Phase = "artifact"
)

// Error represents a structured error with code, message, and the phase it came from.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Phase   Phase     `json:"phase,omitempty"`
	// Detail carries remote-supplied context such as the service's own error code.
	Detail string `json:"detail,omitempty"`
	Cause  error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Phase != "" {
		prefix = string(e.Phase) + "/" + prefix
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, types.NewError(types.ErrTimeout, "")) matches any timeout.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithPhase sets the phase, keeping an already-set phase.
func (e *Error) WithPhase(phase Phase) *Error {
	if e.Phase == "" {
		e.Phase = phase
	}
	return e
}

// WithDetail sets the detail string.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether any error in the chain carries code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// InPhase tags err with phase. Plain errors are wrapped into an *Error with fallback code.
func InPhase(err error, phase Phase, fallback ErrorCode) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		e.WithPhase(phase)
		return err
	}
	return NewError(fallback, "unclassified failure").WithCause(err).WithPhase(phase)
}
