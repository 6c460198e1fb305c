package render

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is the root of every registry usage error.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBlankName reports an empty or whitespace-only engine name.
	ErrBlankName = fmt.Errorf("%w: engine name must not be blank", ErrInvalidArgument)
	// ErrClearDefault reports an attempt to remove the default engine.
	ErrClearDefault = fmt.Errorf("%w: default engine cannot be removed", ErrInvalidArgument)
)

// Error is returned by engines when parsing, conversion or output fails.
type Error struct {
	Msg string
	Err error // optional cause
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "render: " + e.Msg
	}
	return "render: " + e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an *Error without a cause.
func Errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around cause.
func Wrap(cause error, msg string) *Error {
	return &Error{Msg: msg, Err: cause}
}

// AsError reports whether err is, or wraps, an *Error.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// normalize returns err unchanged if it already carries an *Error, otherwise
// wraps it with msg.
func normalize(err error, msg string) error {
	if _, ok := AsError(err); ok {
		return err
	}
	return Wrap(err, msg)
}
