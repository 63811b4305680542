package common

import "errors"

// RequestError pairs an error kind (one of the request-level sentinels) with
// a message that is safe to show to API clients.
type RequestError struct {
	Kind    error
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

// NewRequestError builds a RequestError of the given kind.
func NewRequestError(kind error, message string) error {
	return &RequestError{Kind: kind, Message: message}
}

// ClientMessage returns the client-facing message carried by err, if any.
func ClientMessage(err error) (string, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Message, true
	}
	return "", false
}

// KindOf returns the request-level kind of err. Errors without a
// RequestError, such as ErrNoRowsAffected or ErrMissingContentLength, are
// ErrorInternal.
func KindOf(err error) error {
	var re *RequestError
	if errors.As(err, &re) && re.Kind != nil {
		return re.Kind
	}
	return ErrorInternal
}
