package imu

import (
	"errors"
	"fmt"
)

// Kind classifies failures reported to the batch and live entry points
type Kind string

const (
	KindNoData         Kind = "no-data"
	KindDeviceMismatch Kind = "device-mismatch"
	KindTimestamp      Kind = "timestamp"
	KindInvalidWindow  Kind = "invalid-window"
	KindIO             Kind = "io"
)

// Error is a structured failure carrying its kind and an optional cause
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
