package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeFailedPrecond    ErrorCode = "FAILED_PRECONDITION"
	CodeInternal         ErrorCode = "INTERNAL"
	CodeCanceled         ErrorCode = "CANCELED"
	CodeDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"
)

var (
	// ErrUnknownServerType indicates no spec is registered for a server type.
	ErrUnknownServerType = errors.New("unknown server type")
	// ErrNotConnected indicates a client was used before Connect succeeded.
	ErrNotConnected = errors.New("client is not connected")
	// ErrNoModelsAvailable indicates the fallback chain has no usable entry
	// even after clearing failure state.
	ErrNoModelsAvailable = errors.New("no completion models available")
)

// Error is the structured error carried across component boundaries.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	Meta    map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrUnknownServerType):
		return CodeInvalidArgument, true
	case errors.Is(err, ErrNotConnected):
		return CodeUnavailable, true
	case errors.Is(err, ErrNoModelsAvailable):
		return CodeFailedPrecond, true
	default:
		return "", false
	}
}

// ConnectionError marks a failure to establish or maintain a session with
// a tool server. The pool reacts to it with a single reconnect attempt;
// every other error class passes through untouched.
type ConnectionError struct {
	ServerType ServerType
	Cause      error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return fmt.Sprintf("connection to %s failed", e.ServerType)
	}
	return fmt.Sprintf("connection to %s failed: %v", e.ServerType, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewConnectionError wraps cause as a connection-class failure.
func NewConnectionError(serverType ServerType, cause error) *ConnectionError {
	return &ConnectionError{ServerType: serverType, Cause: cause}
}

// IsConnectionError reports whether err is connection-class anywhere in
// its chain.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
