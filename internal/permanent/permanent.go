// Package permanent tags transport failures that the retry loop must not repeat.
//
// Taxonomy kinds outside Timeout, NoConnection and InternalServer are
// permanent, as are request build and payload decode failures.
package permanent

import (
	"errors"
	"fmt"
)

// Error is non-retryable failure with optional operation label.
type Error struct {
	Op  string
	Err error
}

func (e Error) Error() string {
	switch {
	case e.Err == nil && e.Op == "":
		return "permanent error"
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return e.Op + ": " + e.Err.Error()
	}
}

func (e Error) Unwrap() error {
	return e.Err
}

// Permanent satisfies marker interface checked by Is.
func (Error) Permanent() bool {
	return true
}

// Mark wraps error with permanent marker; already marked errors pass through.
// Params: source error.
// Returns: wrapped error or nil.
func Mark(err error) error {
	return Wrap("", err)
}

// Wrap marks error as permanent and labels failed operation.
// Params: operation label and source error.
// Returns: wrapped error or nil when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if op == "" && Is(err) {
		return err
	}
	return Error{Op: op, Err: err}
}

// Errorf builds permanent error from format.
func Errorf(format string, args ...any) error {
	return Error{Err: fmt.Errorf(format, args...)}
}

// Is reports whether error chain carries permanent marker.
// Params: candidate error.
// Returns: true when retry loop must stop.
func Is(err error) bool {
	if err == nil {
		return false
	}
	type marker interface {
		Permanent() bool
	}
	var tagged marker
	if !errors.As(err, &tagged) {
		return false
	}
	return tagged.Permanent()
}
