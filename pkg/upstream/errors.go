package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx rejections by the exchange.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx exchange errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// Error is the failure type returned by the client. StatusCode is zero for
// network errors. The proxy does not retry; callers decide what to do with
// each class.
type Error struct {
	StatusCode int
	Class      ErrorClass
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error on %s: %s: %v",
			e.Class, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %s error on %s (status %d): %s",
		e.Class, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status the proxy should answer with: the
// exchange's own status for client-class rejections, 502 otherwise, so
// callers can tell "upstream rejected the request" from "service-internal
// failure".
func (e *Error) HTTPStatus() int {
	if e.Class == ErrorClassClient && e.StatusCode != 0 {
		return e.StatusCode
	}
	return http.StatusBadGateway
}

// AsError extracts an *Error from err, or wraps err as a network-class
// error when it is something else.
func AsError(err error, endpoint string) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	return &Error{
		Class:    ErrorClassNetwork,
		Endpoint: endpoint,
		Message:  "request failed",
		Err:      err,
	}
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
