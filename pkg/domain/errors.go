package domain

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrPasteNotFound   = NewErr("PASTE_NOT_FOUND", "Paste not found", http.StatusNotFound)
	ErrMissingSecret   = NewErr("MISSING_SECRET", "Missing secret", http.StatusBadRequest)
	ErrMissingPassword = NewErr("MISSING_PASSWORD", "Missing password", http.StatusBadRequest)
	ErrUnauthorized    = NewErr("UNAUTHORIZED", "unable to delete paste", http.StatusUnauthorized)
	ErrSlugConflict    = NewErr("SLUG_CONFLICT", "slug already exists", http.StatusConflict)
	ErrPasteTooLarge   = NewErr("PASTE_TOO_LARGE", "paste too large", http.StatusBadRequest)
	ErrOverloaded      = NewErr("OVERLOADED", "service unavailable, try again later", http.StatusServiceUnavailable)
	ErrInternalServer  = NewErr("INTERNAL_ERROR", "An error occured", http.StatusInternalServerError)
)

type Err struct {
	Code   string
	Msg    string
	Status int
}

func (e *Err) Error() string { return e.Msg }

func NewErr(code, msg string, status int) *Err {
	return &Err{Code: code, Msg: msg, Status: status}
}

// Status maps an error onto its HTTP status. Anything outside the taxonomy
// collapses to 500 so storage detail never leaks to the caller.
func Status(err error) int {
	if e, ok := err.(*Err); ok {
		return e.Status
	}
	if e, ok := errors.Cause(err).(*Err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for an error. Internal failures
// all read the same regardless of cause.
func Message(err error) string {
	if e, ok := err.(*Err); ok {
		return e.Msg
	}
	if e, ok := errors.Cause(err).(*Err); ok {
		return e.Msg
	}
	return ErrInternalServer.Msg
}
