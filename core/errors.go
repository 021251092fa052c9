package orchestration

import (
	"errors"
	"fmt"
)

// ErrorKind classifies connection failures by remediation: capability errors
// need a permission or device, handshake errors can be retried, transport
// errors mean an established session was lost.
type ErrorKind string

const (
	ErrorKindCapability ErrorKind = "capability"
	ErrorKindHandshake  ErrorKind = "handshake"
	ErrorKindTransport  ErrorKind = "transport"
)

var (
	ErrMediaUnavailable         = errors.New("media capture unavailable")
	ErrCredentialUnavailable    = errors.New("session credential unavailable")
	ErrHandshakeFailed          = errors.New("session handshake failed")
	ErrDisconnectedUnexpectedly = errors.New("disconnected unexpectedly")
	ErrConnectCancelled         = errors.New("connect cancelled")
	ErrOrchestratorClosed       = errors.New("orchestrator closed")
)

// ConnectError is returned by Connect and carried by unexpected disconnect
// signals.
type ConnectError struct {
	Kind ErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func newConnectError(kind ErrorKind, sentinel, cause error) *ConnectError {
	if cause == nil {
		return &ConnectError{Kind: kind, Err: sentinel}
	}
	return &ConnectError{Kind: kind, Err: fmt.Errorf("%w: %w", sentinel, cause)}
}

// KindOf reports the ErrorKind of err, if it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var connectErr *ConnectError
	if errors.As(err, &connectErr) {
		return connectErr.Kind, true
	}
	return "", false
}
