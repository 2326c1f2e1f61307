package state

import (
	"errors"
	"fmt"
)

var (
	ErrFormat      = errors.New("format error")
	ErrQueueFull   = errors.New("queue full")
	ErrUnreachable = errors.New("destination unreachable")
)

// FormatError reports malformed wire bytes or a value that does not fit its field.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in %s: %s", e.Field, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
