// ABOUTME: Typed error values for the Starfish API boundary.
// ABOUTME: Carries error codes, HTTP status, and a transient flag so callers branch on data.

package starfish

import (
	"errors"
	"fmt"
)

// Code identifies a class of Starfish API failure. Codes surface verbatim in
// tool error output so operators can diagnose without reading Go stack traces.
type Code string

const (
	CodeAuthenticationFailed Code = "AUTHENTICATION_FAILED"
	CodeAPIError             Code = "API_ERROR"
	CodeRequestTimeout       Code = "REQUEST_TIMEOUT"
	CodeConnectionFailed     Code = "CONNECTION_FAILED"
	CodeQueryFailed          Code = "QUERY_FAILED"
	CodeAsyncQueryFailed     Code = "ASYNC_QUERY_FAILED"
	CodeAsyncQueryTimeout    Code = "ASYNC_QUERY_TIMEOUT"
	CodeUnexpectedFormat     Code = "UNEXPECTED_RESPONSE_FORMAT"
)

// Error is a structured Starfish API failure.
//
// Transient is assigned by the HTTP boundary when the backend's response
// means "not ready yet" rather than "broken" (HTTP 400 during async result
// retrieval, HTTP 404 while a query is still materializing). The async
// coordinator decides retry-vs-fail from this flag and the status code,
// never from message text.
type Error struct {
	Code       Code
	Message    string
	StatusCode int    // HTTP status, 0 when the request never completed
	Endpoint   string // request path, for diagnostics
	Transient  bool
	QueryID    string // set on async protocol failures
	Attempts   int    // poll attempts made before an async timeout
	Body       string // raw response body on protocol errors

	wrapped error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// AsError unwraps err into a *Error if one is in the chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTransient reports whether err is a Starfish error the caller may retry
// within the same operation's deadline.
func IsTransient(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Transient
}
