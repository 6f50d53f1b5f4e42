package errx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can tell a dead network from a bad
// upstream answer without string matching.
type Kind string

const (
	KindNetwork          Kind = "network"
	KindUpstream         Kind = "upstream"
	KindParse            Kind = "parse"
	KindInvalidArguments Kind = "invalid_arguments"
	KindUnknownTool      Kind = "unknown_tool"
)

// Error wraps an underlying error with a kind, an optional upstream HTTP
// status and a message that is safe to show to the assistant.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(kind Kind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Network marks a transport level failure (DNS, refused connection, timeout).
func Network(message string, err error) *Error {
	return New(KindNetwork, message, err)
}

// Upstream marks a non-2xx answer from an upstream API.
func Upstream(message string, status int, err error) *Error {
	e := New(KindUpstream, message, err)
	e.Status = status
	return e
}

// Parse marks a response body that could not be decoded.
func Parse(message string, err error) *Error {
	return New(KindParse, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
