package api

import (
	"errors"
	"fmt"

	"github.com/personaverse/discovery/internal/engine"
)

// JSON-RPC error codes, standard plus the service-specific range
const (
	ErrParseError     = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternalError  = -32000
	ErrNotFound       = -32001
	ErrForbidden      = -32003
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// CodeForError maps engine taxonomy errors onto JSON-RPC codes
func CodeForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrBadRequest):
		return ErrInvalidParams
	case errors.Is(err, engine.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, engine.ErrForbidden):
		return ErrForbidden
	default:
		return ErrInternalError
	}
}
