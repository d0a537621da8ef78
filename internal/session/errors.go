// internal/session/errors.go
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies delivery failures
type ErrorKind string

const (
	KindConnectTimeout ErrorKind = "connect_timeout"
	KindWriteFailed    ErrorKind = "write_failed"
	KindUnreachable    ErrorKind = "unreachable"
	KindBusy           ErrorKind = "busy"
	KindUnknownPrinter ErrorKind = "unknown_printer"
	KindInvalidTarget  ErrorKind = "invalid_target"
	KindCanceled       ErrorKind = "canceled"
	KindClosed         ErrorKind = "closed"
)

var (
	ErrConnectTimeout = errors.New("connect timeout")
	ErrWriteFailed    = errors.New("write failed")
	ErrUnreachable    = errors.New("printer unreachable")
	ErrBusy           = errors.New("printer busy")
	ErrUnknownPrinter = errors.New("unknown printer")
	ErrInvalidTarget  = errors.New("invalid printer connection")
	ErrCanceled       = errors.New("delivery canceled")
	ErrClosed         = errors.New("session manager closed")
)

var sentinels = map[ErrorKind]error{
	KindConnectTimeout: ErrConnectTimeout,
	KindWriteFailed:    ErrWriteFailed,
	KindUnreachable:    ErrUnreachable,
	KindBusy:           ErrBusy,
	KindUnknownPrinter: ErrUnknownPrinter,
	KindInvalidTarget:  ErrInvalidTarget,
	KindCanceled:       ErrCanceled,
	KindClosed:         ErrClosed,
}

// DeliveryError reports why a program did not reach the printer.
// After retries are exhausted Kind is KindUnreachable and LastKind holds
// the failure of the final attempt.
type DeliveryError struct {
	Kind      ErrorKind
	LastKind  ErrorKind
	PrinterID string
	Attempts  int
	Err       error
}

func (e *DeliveryError) Error() string {
	msg := fmt.Sprintf("deliver to %s: %s", e.PrinterID, sentinels[e.Kind].Error())
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.LastKind != "" && e.LastKind != e.Kind {
		msg += fmt.Sprintf(" (last: %s)", sentinels[e.LastKind].Error())
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is matches both the delivery kind and the kind of the last attempt
func (e *DeliveryError) Is(target error) bool {
	if target == sentinels[e.Kind] {
		return true
	}
	return e.LastKind != "" && target == sentinels[e.LastKind]
}

// attemptError is the failure of one connect+write attempt
type attemptError struct {
	kind ErrorKind
	err  error
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }

// classifyConnect maps a dial error to a delivery kind. Refused and
// unroutable connections count as unreachable.
func classifyConnect(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindConnectTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindConnectTimeout
	}
	return KindUnreachable
}

func kindOf(err error) ErrorKind {
	var ae *attemptError
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindUnreachable
}
