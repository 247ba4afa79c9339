package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. API handlers map these
// onto transport error codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// NotFoundf wraps ErrNotFound with context
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// BadRequestf wraps ErrBadRequest with context
func BadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrBadRequest)...)
}

// Internalf wraps ErrInternal with context
func Internalf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInternal)...)
}
