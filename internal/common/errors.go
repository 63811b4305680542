// Package common defines shared constants and sentinel errors used across
// the meme server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrNoRowsAffected = errors.New("no rows affected")

	// Request-level kinds; every failure reaching the HTTP boundary maps to one of these.
	ErrorBadRequest   = errors.New("bad request")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorInternal     = errors.New("internal error")

	// Blob gateway contract violations.
	ErrMissingContentLength = errors.New("gateway response has no content length")
)
