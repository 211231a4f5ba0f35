// Package session owns the console's credential lifecycle.
//
// A Gateway is built once per process. It is the only reader and writer of the
// persisted credential, and its HTTP client carries an interceptor that attaches
// the bearer token to every backend call and forces a logout when the backend
// answers 401 or 403.
package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Redirect targets handed back to the routing layer.
const (
	RootPath  = "/"
	LoginPath = "/login"
)

// CookieName is the fallback channel for endpoints that read cookies instead of headers.
const CookieName = "token"

// LoginEndpoint is relative to the backend base URL.
const LoginEndpoint = "/api/login"

// Credential is the bearer token and role returned by a successful login.
type Credential struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Identity is the user-facing profile persisted next to the credential.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Record is the unit of persistence. Credential and Identity are always written
// and cleared together.
type Record struct {
	Credential Credential `json:"credential"`
	Identity   Identity   `json:"identity"`
	SavedAt    time.Time  `json:"saved_at"`
}

// Valid reports whether r holds a usable credential.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Credential.Token) != ""
}

// Result is returned by Login and Logout.
type Result struct {
	RedirectTo string `json:"redirectTo"`
}

// CheckResult is the authentication gate consulted before protected screens.
type CheckResult struct {
	Authenticated bool   `json:"authenticated"`
	RedirectTo    string `json:"redirectTo,omitempty"`
}

// ErrorResult tells the caller whether a failed data operation ended the session.
type ErrorResult struct {
	Logout     bool
	RedirectTo string
	Err        error
}

// tokenCookie is the cookie mirrored for an active credential.
func tokenCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	}
}

// expiredCookie clears the mirrored cookie immediately.
func expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
	}
}

// loginResponse is the backend's success body: {token:{token,role}, id, name}.
type loginResponse struct {
	Token Credential      `json:"token"`
	ID    json.RawMessage `json:"id"`
	Name  string          `json:"name"`
}

// rawID renders a JSON id that may be a string or a number.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
