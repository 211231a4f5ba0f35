package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"invoice-console/internal/audit"
)

const maxLoginBody = 1 << 20

// Options configures a Gateway.
type Options struct {
	// BaseURL is the backend origin, e.g. https://invoices.example.com.
	BaseURL string
	Store   Store

	// Guard defaults to an in-process guard.
	Guard LoginGuard
	// Audit is optional.
	Audit  *audit.Service
	Logger *slog.Logger

	// Transport is the base RoundTripper under the interceptor.
	// Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// OnExpired runs after a 401/403 response cleared the session.
	OnExpired func(ctx context.Context)
}

// Gateway is the single source of truth for "is the user authenticated".
type Gateway struct {
	baseURL     string
	store       Store
	guard       LoginGuard
	audit       *audit.Service
	log         *slog.Logger
	base        http.RoundTripper
	loginClient *http.Client
	client      *http.Client
	onExpired   func(ctx context.Context)
	clock       func() time.Time

	mu      sync.RWMutex
	current Record
	cookie  *http.Cookie
	// revoked is a token whose persisted record could not be cleared. A loaded
	// record carrying it reads as no record until the next successful Save.
	revoked string
}

// New builds the gateway and installs its interceptor once. The persisted
// record, if any, is loaded so requests issued right after startup are
// authenticated.
func New(ctx context.Context, opts Options) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("session: base url must be absolute, got %q", opts.BaseURL)
	}
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}

	g := &Gateway{
		baseURL:   base,
		store:     opts.Store,
		guard:     opts.Guard,
		audit:     opts.Audit,
		log:       opts.Logger,
		base:      opts.Transport,
		onExpired: opts.OnExpired,
		clock:     time.Now,
		cookie:    expiredCookie(),
	}
	if g.guard == nil {
		g.guard = NewLocalGuard()
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	if g.base == nil {
		g.base = http.DefaultTransport
	}
	// Login goes straight to the base transport: it carries no bearer and a
	// rejected password must not be mistaken for an expired session.
	g.loginClient = &http.Client{Transport: g.base}
	g.client = &http.Client{Transport: g.wrap(g.base)}

	rec, err := g.load(ctx)
	switch {
	case err == nil:
		g.setCurrentLocked(rec)
	case errors.Is(err, ErrNoRecord):
	default:
		g.log.Warn("session store unreadable at startup", "err", err)
	}
	return g, nil
}

// Client returns the authenticated HTTP client. Every component that talks to
// the backend must use it.
func (g *Gateway) Client() *http.Client { return g.client }

// BaseURL returns the backend origin without a trailing slash.
func (g *Gateway) BaseURL() string { return g.baseURL }

// wrap installs the interceptor on rt. Wrapping an already wrapped transport
// replaces the interceptor in that slot instead of stacking a second one.
func (g *Gateway) wrap(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = g.base
	}
	if t, ok := rt.(*transport); ok {
		if t.g == g {
			return t
		}
		rt = t.base
	}
	return &transport{base: rt, g: g}
}

// Cookie returns the mirrored token cookie: the active one while authenticated,
// an already expired one otherwise.
func (g *Gateway) Cookie() *http.Cookie {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c := *g.cookie
	return &c
}

// Login exchanges email and password for a credential. The returned error is
// always nil or an *AuthError.
func (g *Gateway) Login(ctx context.Context, email, password string) (Result, error) {
	if email == "" || password == "" {
		LoginsTotal.WithLabelValues(outcomeMissingCredentials).Inc()
		return Result{}, &AuthError{Kind: KindMissingCredentials, Message: msgMissingCredentials}
	}

	release, ok, err := g.guard.TryAcquire(ctx)
	if err != nil {
		g.log.Error("login guard unavailable", "err", err)
		return Result{}, g.loginFailed(ctx, email, msgLoginFailed, err)
	}
	if !ok {
		LoginsTotal.WithLabelValues(outcomeBusy).Inc()
		return Result{}, &AuthError{Kind: KindLoginError, Message: msgLoginBusy}
	}
	defer release()

	lr, err := g.postLogin(ctx, email, password)
	if err != nil {
		msg := msgLoginFailed
		var he *HTTPError
		if errors.As(err, &he) && he.Message != "" {
			msg = he.Message
		}
		return Result{}, g.loginFailed(ctx, email, msg, err)
	}

	rec := Record{
		Credential: Credential{Token: lr.Token.Token, Role: lr.Token.Role},
		Identity:   Identity{ID: rawID(lr.ID), Name: lr.Name, Role: lr.Token.Role},
		SavedAt:    g.clock().UTC(),
	}

	g.mu.Lock()
	err = g.store.Save(ctx, rec)
	if err == nil {
		g.setCurrentLocked(rec)
		g.revoked = ""
	}
	g.mu.Unlock()
	if err != nil {
		g.log.Error("persist session failed", "err", err)
		return Result{}, g.loginFailed(ctx, email, "could not persist the session", err)
	}

	LoginsTotal.WithLabelValues(outcomeSuccess).Inc()
	g.log.Info("login succeeded", "user_id", rec.Identity.ID, "role", rec.Credential.Role)
	g.auditBestEffort(ctx, func(s *audit.Service) error {
		return s.LoginSucceeded(ctx, rec.Identity.ID, rec.Credential.Role, email)
	})
	return Result{RedirectTo: RootPath}, nil
}

func (g *Gateway) loginFailed(ctx context.Context, email, msg string, cause error) *AuthError {
	LoginsTotal.WithLabelValues(outcomeRejected).Inc()
	g.log.Warn("login failed", "reason", msg, "err", cause)
	g.auditBestEffort(ctx, func(s *audit.Service) error {
		return s.LoginFailed(ctx, email, msg)
	})
	return &AuthError{Kind: KindLoginError, Message: msg, Cause: cause}
}

func (g *Gateway) postLogin(ctx context.Context, email, password string) (loginResponse, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return loginResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+LoginEndpoint, bytes.NewReader(body))
	if err != nil {
		return loginResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.loginClient.Do(req)
	if err != nil {
		return loginResponse{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginBody))
	if err != nil {
		return loginResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return loginResponse{}, NewHTTPError(resp.StatusCode, raw)
	}

	var lr loginResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return loginResponse{}, fmt.Errorf("decode login response: %w", err)
	}
	if strings.TrimSpace(lr.Token.Token) == "" {
		return loginResponse{}, errors.New("login response carried no token")
	}
	return lr, nil
}

// Logout clears the credential, identity and cookie. It always succeeds.
func (g *Gateway) Logout(ctx context.Context) Result {
	prev, cleared := g.clearIf(ctx, func(Record) bool { return true })
	if cleared {
		LogoutsTotal.WithLabelValues(reasonExplicit).Inc()
		g.log.Info("logout", "user_id", prev.Identity.ID)
		g.auditBestEffort(ctx, func(s *audit.Service) error {
			return s.Logout(ctx, prev.Identity.ID, prev.Credential.Role)
		})
	}
	return Result{RedirectTo: LoginPath}
}

// Check reads the persisted record without any network call. A present record
// also refreshes the token the interceptor attaches.
func (g *Gateway) Check(ctx context.Context) CheckResult {
	rec, err := g.load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			g.log.Warn("session store unreadable", "err", err)
		}
		// the transport must not keep sending a token Check just disowned
		g.mu.Lock()
		g.current = Record{}
		g.cookie = expiredCookie()
		g.mu.Unlock()
		return CheckResult{Authenticated: false, RedirectTo: LoginPath}
	}

	g.mu.Lock()
	g.setCurrentLocked(rec)
	g.mu.Unlock()
	return CheckResult{Authenticated: true}
}

// Permissions returns the persisted role.
func (g *Gateway) Permissions(ctx context.Context) (string, bool) {
	rec, err := g.load(ctx)
	if err != nil {
		return "", false
	}
	return rec.Identity.Role, true
}

// Identity returns the persisted identity.
func (g *Gateway) Identity(ctx context.Context) (Identity, bool) {
	rec, err := g.load(ctx)
	if err != nil {
		return Identity{}, false
	}
	return rec.Identity, true
}

// OnError is the central failure hook for data operations. A 401 or 403 ends the
// session; anything else is handed back unchanged.
//
// When err records the token its request carried (HTTPError.SentToken), only
// that session is ended: a rejection of a token a newer login already replaced
// leaves the new session alone and reports Logout false.
func (g *Gateway) OnError(ctx context.Context, err error) ErrorResult {
	if err == nil {
		return ErrorResult{}
	}
	status := StatusOf(err)
	if !IsAuthFailure(status) {
		return ErrorResult{Err: err}
	}

	match := func(Record) bool { return true }
	if sent := sentTokenOf(err); sent != "" {
		match = func(cur Record) bool { return cur.Credential.Token == sent }
	}
	prev, cleared := g.clearIf(ctx, match)
	if cleared {
		g.recordExpiry(ctx, prev, status)
	}
	if g.currentToken() != "" {
		return ErrorResult{Err: err}
	}
	return ErrorResult{Logout: true, RedirectTo: LoginPath, Err: err}
}

func sentTokenOf(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.SentToken
	}
	return ""
}

// expire is the response-side interceptor. Only the token that was actually sent
// is cleared; a stale rejection racing a fresh login leaves the new session alone.
func (g *Gateway) expire(ctx context.Context, sent string, status int) {
	if sent == "" {
		return
	}
	// the caller may cancel its context as soon as it sees the response
	ctx = context.WithoutCancel(ctx)
	prev, cleared := g.clearIf(ctx, func(cur Record) bool {
		return cur.Credential.Token == sent
	})
	if !cleared {
		return
	}
	g.recordExpiry(ctx, prev, status)
	if g.onExpired != nil {
		g.onExpired(ctx)
	}
}

func (g *Gateway) recordExpiry(ctx context.Context, prev Record, status int) {
	LogoutsTotal.WithLabelValues(reasonExpired).Inc()
	g.log.Warn("session expired", "user_id", prev.Identity.ID, "status", status)
	g.auditBestEffort(ctx, func(s *audit.Service) error {
		return s.SessionExpired(ctx, prev.Identity.ID, prev.Credential.Role, status)
	})
}

// clearIf wipes the persisted record, the in-memory token and the cookie when
// match accepts the current record. It reports the previous record and whether
// a live session was cleared.
func (g *Gateway) clearIf(ctx context.Context, match func(Record) bool) (Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.current
	if !match(prev) {
		return prev, false
	}
	g.current = Record{}
	g.cookie = expiredCookie()
	if err := g.store.Clear(ctx); err != nil {
		g.log.Error("clear session store failed", "err", err)
		if prev.Valid() {
			g.revoked = prev.Credential.Token
		}
	}
	return prev, prev.Valid()
}

// load reads the persisted record, hiding one whose token was revoked but could
// not be cleared. The clear is retried on every such read.
func (g *Gateway) load(ctx context.Context) (Record, error) {
	rec, err := g.store.Load(ctx)
	if err != nil {
		return Record{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.revoked == "" || rec.Credential.Token != g.revoked {
		return rec, nil
	}
	if err := g.store.Clear(ctx); err != nil {
		g.log.Warn("revoked session still persisted", "err", err)
	}
	return Record{}, ErrNoRecord
}

func (g *Gateway) currentToken() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current.Credential.Token
}

// setCurrentLocked must be called with g.mu held (or before g is shared).
func (g *Gateway) setCurrentLocked(rec Record) {
	g.current = rec
	g.cookie = tokenCookie(rec.Credential.Token)
}

func (g *Gateway) auditBestEffort(ctx context.Context, fn func(*audit.Service) error) {
	if g.audit == nil {
		return
	}
	if err := fn(g.audit); err != nil {
		g.log.Warn("audit append failed", "err", err)
	}
}
