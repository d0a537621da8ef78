// internal/discovery/errors.go
package discovery

import (
	"errors"
	"fmt"
)

// ErrorKind classifies discovery failures. None of them are fatal.
type ErrorKind string

const (
	KindTimeout              ErrorKind = "timeout"
	KindIdentificationFailed ErrorKind = "identification_failed"
)

var (
	ErrTimeout              = errors.New("no discovery responses")
	ErrIdentificationFailed = errors.New("identification failed")
)

// DiscoveryError describes a degraded discovery outcome
type DiscoveryError struct {
	Kind ErrorKind
	Host string
	Err  error
}

func (e *DiscoveryError) Error() string {
	msg := e.sentinel().Error()
	if e.Host != "" {
		msg = fmt.Sprintf("%s: %s", e.Host, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

func (e *DiscoveryError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *DiscoveryError) sentinel() error {
	if e.Kind == KindIdentificationFailed {
		return ErrIdentificationFailed
	}
	return ErrTimeout
}
