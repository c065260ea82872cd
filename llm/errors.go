package llm

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrKindConfig     ErrorKind = "config"
	ErrKindValidation ErrorKind = "validation"
	ErrKindTransport  ErrorKind = "transport"
	ErrKindVendor     ErrorKind = "vendor"
	ErrKindParse      ErrorKind = "parse"
)

// Error is the error container shared by adapters and the client.
//
// It keeps a stable classification, the vendor's raw payload for
// debugging, and the HTTP status when one was involved.
type Error struct {
	Platform string
	Kind     ErrorKind

	HTTPStatus int
	Message    string

	// Raw is the raw error payload, typically the HTTP response body.
	Raw []byte

	Cause error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Platform != "" {
		return fmt.Sprintf("llm %s: %s", e.Platform, msg)
	}
	return fmt.Sprintf("llm: %s", msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
