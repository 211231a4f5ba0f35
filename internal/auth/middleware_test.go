package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoice-console/internal/config"

	"github.com/gin-gonic/gin"
)

func newProtected(t *testing.T) (*gin.Engine, *Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		role, _ := Role(c.Request.Context())
		uid, _ := UserID(c.Request.Context())
		c.String(http.StatusOK, uid+":"+role)
	})
	return r, m
}

func TestRequireAccessToken_Bearer(t *testing.T) {
	r, m := newProtected(t)
	tok, _ := m.Issue(time.Now(), "u1", "", "finance")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u1:finance" {
		t.Fatalf("expected 200 u1:finance, got %d %q", w.Code, w.Body.String())
	}
}

func TestRequireAccessToken_CookieFallback(t *testing.T) {
	r, m := newProtected(t)
	tok, _ := m.Issue(time.Now(), "u2", "", "staff")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tok})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "u2:staff" {
		t.Fatalf("expected 200 u2:staff, got %d %q", w.Code, w.Body.String())
	}
}

func TestRequireAccessToken_Rejects(t *testing.T) {
	r, _ := newProtected(t)

	for name, header := range map[string]string{
		"missing": "",
		"basic":   "Basic dXNlcjpwYXNz",
		"garbage": "Bearer not-a-jwt",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
	}
}
