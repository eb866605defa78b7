// Package apperr defines the error taxonomy shared by services and handlers.
// Services wrap these sentinels with context via fmt.Errorf("...: %w", ...);
// handlers translate them to HTTP status codes with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound: unknown set or contact.
	ErrNotFound = errors.New("not found")
	// ErrConflict: duplicate phone within a set, or duplicate set name.
	ErrConflict = errors.New("conflict")
	// ErrInvalid: unparseable phone, empty message, malformed upload.
	ErrInvalid = errors.New("invalid input")
	// ErrUnavailable: messaging session not connected.
	ErrUnavailable = errors.New("session unavailable")
	// ErrUnauthenticated: no directory token, or bad operator credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
)
