// Package clienterr defines the closed failure taxonomy seen by the decision engine.
package clienterr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
)

// Kind is one failure class of the launch alert backend calls.
// Params: constants below.
// Returns: closed set used by state and reporters.
type Kind string

const (
	// KindBadRequest maps HTTP 400.
	KindBadRequest Kind = "bad_request"
	// KindForbidden maps HTTP 403.
	KindForbidden Kind = "forbidden"
	// KindMethodNotAllowed maps HTTP 405.
	KindMethodNotAllowed Kind = "method_not_allowed"
	// KindConflict maps HTTP 409.
	KindConflict Kind = "conflict"
	// KindValidation maps HTTP 422 with server supplied message.
	KindValidation Kind = "validation_error"
	// KindInternalServer maps HTTP 500.
	KindInternalServer Kind = "internal_server_error"
	// KindTimeout marks deadline or socket timeout.
	KindTimeout Kind = "timeout"
	// KindNoConnection marks network/IO failures.
	KindNoConnection Kind = "no_connection"
	// KindUnknown covers everything else.
	KindUnknown Kind = "unknown"
)

var fixedMessages = map[Kind]string{
	KindBadRequest:       "Bad Request!",
	KindForbidden:        "Forbidden!",
	KindMethodNotAllowed: "Method Not Allowed!",
	KindConflict:         "Conflict!",
	KindValidation:       "Unprocessable Entity!",
	KindInternalServer:   "Internal Server error!",
	KindTimeout:          "Time Out!",
	KindNoConnection:     "No Connection!",
	KindUnknown:          "Unknown Error!",
}

// Error is the only failure value handed to the engine.
// Params: kind, optional HTTP status code, message, and wrapped cause.
// Returns: error usable with errors.As/errors.Is.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

// New builds error with fixed per-kind message.
// Params: kind and HTTP status (0 when not HTTP).
// Returns: taxonomy error.
func New(kind Kind, code int) *Error {
	return &Error{Kind: kind, Code: code, Message: fixedMessages[kind]}
}

// Error returns display message.
// Params: none.
// Returns: server message for validation errors, fixed message otherwise.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if msg, ok := fixedMessages[e.Kind]; ok {
		return msg
	}
	return fixedMessages[KindUnknown]
}

// Unwrap exposes transport-level cause.
// Params: none.
// Returns: wrapped cause or nil.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Retryable reports whether transport may repeat the call.
// Params: none.
// Returns: true for timeout, connectivity, and HTTP 500 failures.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindTimeout, KindNoConnection, KindInternalServer:
		return true
	default:
		return false
	}
}

// FromStatus maps non-2xx HTTP response to taxonomy.
// Params: HTTP status code and response body.
// Returns: taxonomy error.
func FromStatus(code int, body []byte) *Error {
	switch code {
	case http.StatusBadRequest:
		return New(KindBadRequest, code)
	case http.StatusForbidden:
		return New(KindForbidden, code)
	case http.StatusMethodNotAllowed:
		return New(KindMethodNotAllowed, code)
	case http.StatusConflict:
		return New(KindConflict, code)
	case http.StatusUnprocessableEntity:
		return &Error{Kind: KindValidation, Code: code, Message: validationMessage(body)}
	case http.StatusInternalServerError:
		return New(KindInternalServer, code)
	default:
		return New(KindUnknown, 0)
	}
}

// validationMessage extracts message field from structured 422 body.
// Params: raw body bytes.
// Returns: server message or empty string when body is not structured.
func validationMessage(body []byte) string {
	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}
	return strings.TrimSpace(decoded.Message)
}

// FromError maps transport failure (no HTTP response) to taxonomy.
// Params: error returned by http.Client or body reader.
// Returns: taxonomy error (nil for nil input).
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrap(KindTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return wrap(KindUnknown, err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return wrap(KindNoConnection, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return wrap(KindNoConnection, err)
	}
	if netErr != nil {
		return wrap(KindNoConnection, err)
	}
	return wrap(KindUnknown, err)
}

func wrap(kind Kind, cause error) *Error {
	e := New(kind, 0)
	e.Cause = cause
	return e
}
