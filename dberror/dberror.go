// Package dberror holds the error kinds shared by every hashdb layer.
//
// Errors are always wrapped around one of the kinds so callers can branch with
// errors.Is:
//
//	_, err := db.GetCollection("users")
//	if errors.Is(err, dberror.ErrNotFound) {
//		...
//	}
package dberror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrIOFailure          = errors.New("io failure")
	ErrIndexInconsistency = errors.New("index inconsistency")
)

func NotFound(format string, a ...any) error {
	return wrap(ErrNotFound, format, a...)
}

func AlreadyExists(format string, a ...any) error {
	return wrap(ErrAlreadyExists, format, a...)
}

func InvalidArgument(format string, a ...any) error {
	return wrap(ErrInvalidArgument, format, a...)
}

// IOFailure wraps err (if any) so both the kind and the cause are reachable
// with errors.Is / errors.As.
func IOFailure(err error, format string, a ...any) error {
	if err == nil {
		return wrap(ErrIOFailure, format, a...)
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, a...), ErrIOFailure, err)
}

func IndexInconsistency(err error, format string, a ...any) error {
	if err == nil {
		return wrap(ErrIndexInconsistency, format, a...)
	}
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, a...), ErrIndexInconsistency, err)
}

func wrap(kind error, format string, a ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), kind)
}
