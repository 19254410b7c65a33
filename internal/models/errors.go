package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a named item does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyQuery is returned for a blank question.
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrDimensionMismatch is returned when a vector does not match its collection's dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// MalformedInputError reports a raw document or chunk file that does not have the expected shape.
// It is fatal for that file only.
type MalformedInputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := "malformed input"
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// IsMalformedInput reports whether err is or wraps a MalformedInputError.
func IsMalformedInput(err error) bool {
	var m *MalformedInputError
	return errors.As(err, &m)
}
