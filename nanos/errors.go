package nanos

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them.
var (
	ErrLocked             = errors.New("locked")
	ErrFrozen             = fmt.Errorf("frozen: %w", ErrLocked)
	ErrInvalidKey         = errors.New("invalid key")
	ErrBoundary           = errors.New("missing [( )] boundary")
	ErrMalformed          = errors.New("malformed SLID")
	ErrUnterminatedString = errors.New("unterminated string")
)

// LockedError reports a mutation refused because of lock state.
type LockedError struct {
	Op  string
	Key string // empty when the whole key set is locked
	Err error  // ErrLocked or ErrFrozen
}

func (e *LockedError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LockedError) Unwrap() error {
	return e.Err
}

func lockedErr(op, key string) error {
	return &LockedError{Op: op, Key: key, Err: ErrLocked}
}

func frozenErr(op string) error {
	return &LockedError{Op: op, Err: ErrFrozen}
}

// ParseError represents a SLID parsing error with location.
type ParseError struct {
	Kind    error // ErrBoundary, ErrMalformed or ErrUnterminatedString
	Message string
	Pos     Position
}

func (e *ParseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v at %s", e.Kind, e.Pos)
	}
	return fmt.Sprintf("%v: %s at %s", e.Kind, e.Message, e.Pos)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// Position represents a source location.
type Position struct {
	Line   int
	Column int
	Offset int
}

// String returns position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}
