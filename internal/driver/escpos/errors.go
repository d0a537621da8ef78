// internal/driver/escpos/errors.go
package escpos

import (
	"errors"
	"fmt"
)

// ErrorKind classifies encoding failures
type ErrorKind string

const (
	KindOutOfRange      ErrorKind = "out_of_range_argument"
	KindPayloadTooLarge ErrorKind = "payload_too_large"
)

var (
	ErrOutOfRange      = errors.New("argument out of range")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// EncodeError reports the first command that failed validation
type EncodeError struct {
	Kind    ErrorKind
	Index   int    // 0-based position in the program
	Command string // command keyword
	Detail  string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("command %d (%s): %s: %s", e.Index, e.Command, e.sentinel().Error(), e.Detail)
}

func (e *EncodeError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *EncodeError) sentinel() error {
	if e.Kind == KindPayloadTooLarge {
		return ErrPayloadTooLarge
	}
	return ErrOutOfRange
}
