// Package apperrors defines the error taxonomy handlers speak.
//
// Store and service code returns *apperrors.E values; the render package
// maps each Kind to an HTTP status and response envelope. Wrapping keeps
// the underlying cause available for logs without leaking it to clients.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	KindValidation     Kind = iota // 400
	KindAuthentication             // 401
	KindAuthorization              // 403
	KindNotFound                   // 404
	KindConflict                   // 409
	KindStorage                    // 500
)

// E is an application error with a client-safe message and an optional cause.
type E struct {
	Kind    Kind
	Message string // safe to show to clients
	Err     error  // underlying cause, logs only
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *E) Unwrap() error { return e.Err }

func Validation(msg string) *E     { return &E{Kind: KindValidation, Message: msg} }
func Authentication(msg string) *E { return &E{Kind: KindAuthentication, Message: msg} }
func Authorization(msg string) *E  { return &E{Kind: KindAuthorization, Message: msg} }
func NotFound(msg string) *E       { return &E{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *E       { return &E{Kind: KindConflict, Message: msg} }

// Storage wraps an infrastructure failure. The client sees msg; err goes to logs.
func Storage(msg string, err error) *E {
	return &E{Kind: KindStorage, Message: msg, Err: err}
}

// As extracts an *E from err's chain, if present.
func As(err error) (*E, bool) {
	var e *E
	ok := errors.As(err, &e)
	return e, ok
}
