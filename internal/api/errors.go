package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors shared by the reconcilers.
var (
	ErrLoginRequired = errors.New("login required")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrNotFound      = errors.New("not found")
)

// TransportError wraps a failure to reach the backend at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Code, msg)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// IsUnauthorized reports a 401 or 403.
func (e *StatusError) IsUnauthorized() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// Message extracts a human-readable message from the body: a JSON
// {"message"} or {"error"} field, or the raw text when short.
func (e *StatusError) Message() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal([]byte(body), &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}
	if len(body) > 200 || strings.HasPrefix(body, "<") {
		return ""
	}
	return body
}

// ContentTypeError is a 2xx response whose body is not the expected JSON.
type ContentTypeError struct {
	Path        string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	ct := e.ContentType
	if ct == "" {
		ct = "none"
	}
	return fmt.Sprintf("%s: expected JSON response, got content type %s", e.Path, ct)
}

// ValidationError is a client-side form check failure; no request was sent.
type ValidationError struct {
	Field   string
	Message string
	// Err optionally carries a sentinel such as ErrEmptyCart.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err carries a 401/403 status.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.IsUnauthorized()
}

// IsSessionRejected reports a 401: the backend no longer accepts the token.
// A 403 comes with a token the backend did accept, so the session stays.
func IsSessionRejected(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

// UserMessage renders err as the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		se *StatusError
		ce *ContentTypeError
		te *TransportError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, ErrLoginRequired):
		return "Please log in first"
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty"
	case errors.As(err, &se):
		if se.IsUnauthorized() {
			return "Please log in again"
		}
		if msg := se.Message(); msg != "" {
			return msg
		}
		return fmt.Sprintf("Server error (%d)", se.Code)
	case errors.As(err, &ce):
		return "Unexpected server response"
	case errors.As(err, &te):
		return "Cannot reach the server"
	default:
		return err.Error()
	}
}
