package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"invoice-console/internal/audit"
	"invoice-console/pkg/logger"

	"github.com/stretchr/testify/require"
)

// fakeBackend mimics the invoicing backend's login and a few data endpoints.
type fakeBackend struct {
	*httptest.Server

	loginHits atomic.Int32
	dataHits  atomic.Int32

	mu       sync.Mutex
	lastAuth []string
	lastCook []*http.Cookie
	lastRID  string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		fb.loginHits.Add(1)
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case in.Email == "ops@example.com" && in.Password == "secret":
			_, _ = w.Write([]byte(`{"token":{"token":"abc123","role":"admin"},"id":42,"name":"Ops"}`))
		case in.Email == "other@example.com" && in.Password == "secret":
			_, _ = w.Write([]byte(`{"token":{"token":"xyz789","role":"staff"},"id":"u-7","name":"Other"}`))
		case in.Email == "empty@example.com":
			_, _ = w.Write([]byte(`{"token":{"token":"","role":"staff"},"id":1,"name":"Empty"}`))
		case in.Email == "silent@example.com":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
		}
	})
	record := func(r *http.Request) {
		fb.dataHits.Add(1)
		fb.mu.Lock()
		fb.lastAuth = r.Header.Values("Authorization")
		fb.lastCook = r.Cookies()
		fb.lastRID = r.Header.Get(logger.HeaderRequestID)
		fb.mu.Unlock()
	}
	mux.HandleFunc("/api/clients", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/api/expired", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/forbidden", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/api/boom", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.WriteHeader(http.StatusInternalServerError)
	})
	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) seen() ([]string, []*http.Cookie, string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastAuth, fb.lastCook, fb.lastRID
}

type gatewayFixture struct {
	gw      *Gateway
	store   Store
	backend *fakeBackend
	audit   *audit.MemoryRepo
	expired atomic.Int32
}

func newFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	return newFixtureWithStore(t, NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store Store) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{
		store:   store,
		backend: newFakeBackend(t),
		audit:   audit.NewMemoryRepo(),
	}
	gw, err := New(context.Background(), Options{
		BaseURL: f.backend.URL,
		Store:   store,
		Audit:   audit.NewService(f.audit, "default"),
		Logger:  logger.Discard(),
		OnExpired: func(context.Context) {
			f.expired.Add(1)
		},
	})
	require.NoError(t, err)
	f.gw = gw
	return f
}

func (f *gatewayFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.gw.Login(context.Background(), "ops@example.com", "secret")
	require.NoError(t, err)
}

func (f *gatewayFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, f.backend.URL+path, nil)
	require.NoError(t, err)
	resp, err := f.gw.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
