package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies authentication failures.
type Kind string

const (
	KindMissingCredentials Kind = "MissingCredentials"
	KindLoginError         Kind = "LoginError"
	KindAuthExpired        Kind = "AuthExpired"
)

const (
	msgMissingCredentials = "Email and password are required"
	msgLoginFailed        = "Login failed. Please check your credentials."
	msgLoginBusy          = "login already in progress"
	msgAuthExpired        = "session expired, please log in again"
)

// AuthError is the only error type Login returns.
type AuthError struct {
	Kind    Kind
	Message string
	// Cause is the underlying transport or backend error, if any.
	Cause error
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Cause }

// Is matches any *AuthError of the same Kind, so callers can use the sentinels below.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingCredentials = &AuthError{Kind: KindMissingCredentials, Message: msgMissingCredentials}
	ErrLoginFailed        = &AuthError{Kind: KindLoginError, Message: msgLoginFailed}
	ErrAuthExpired        = &AuthError{Kind: KindAuthExpired, Message: msgAuthExpired}
)

// HTTPError is produced for every non-2xx backend response.
type HTTPError struct {
	Status  int
	Message string
	Body    []byte
	// SentToken is the bearer the failed request carried, empty when none was
	// attached. Never printed.
	SentToken string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend responded %d %s", e.Status, http.StatusText(e.Status))
}

// StatusCode exposes the HTTP status to OnError.
func (e *HTTPError) StatusCode() int { return e.Status }

// NewHTTPError builds an HTTPError, pulling a human-readable message from a JSON
// body's "message" or "error" field when one is present.
func NewHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{Status: status, Message: messageFromBody(body), Body: body}
}

// NewResponseError is NewHTTPError for a response obtained through the gateway
// client. It records the token the interceptor attached to the request.
func NewResponseError(resp *http.Response, body []byte) *HTTPError {
	he := NewHTTPError(resp.StatusCode, body)
	if resp.Request != nil {
		he.SentToken, _ = strings.CutPrefix(resp.Request.Header.Get("Authorization"), "Bearer ")
	}
	return he
}

func messageFromBody(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, raw := range []json.RawMessage{payload.Message, payload.Error} {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		// Some backends answer {"message": ["a", "b"]}.
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return strings.Join(list, "; ")
		}
	}
	return ""
}

// StatusOf extracts the HTTP status embedded in err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// IsAuthFailure reports whether status ends the session.
func IsAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
