// internal/program/errors.go
package program

import (
	"errors"
	"fmt"
)

// ErrorKind classifies parse failures
type ErrorKind string

const (
	KindSyntax           ErrorKind = "syntax_error"
	KindUnknownCommand   ErrorKind = "unknown_command"
	KindArgumentMismatch ErrorKind = "argument_mismatch"
)

// Sentinels matched by errors.Is against a *ParseError
var (
	ErrSyntax           = errors.New("syntax error")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrArgumentMismatch = errors.New("argument mismatch")
)

// ParseError reports the first line that failed to parse
type ParseError struct {
	Kind     ErrorKind
	Line     int    // 1-based
	Source   string // offending line, trimmed
	Expected string // signature of the matched command, empty for unknown commands
	Detail   string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("line %d: %s", e.Line, e.sentinel().Error())
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Expected != "" {
		msg += fmt.Sprintf(" (expected %s)", e.Expected)
	}
	return fmt.Sprintf("%s in %q", msg, e.Source)
}

// Is lets callers test the kind with errors.Is
func (e *ParseError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ParseError) sentinel() error {
	switch e.Kind {
	case KindUnknownCommand:
		return ErrUnknownCommand
	case KindArgumentMismatch:
		return ErrArgumentMismatch
	default:
		return ErrSyntax
	}
}
