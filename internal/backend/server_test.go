package backend

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoice-console/internal/auth"
	"invoice-console/internal/config"
	"invoice-console/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	srv    *Server
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := NewUsers(bcrypt.MinCost)
	for _, u := range DefaultUsers {
		_, err := users.Add(u)
		require.NoError(t, err)
	}
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	srv := NewServer(users, m, logger.Discard())
	srv.clock = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, srv.SeedDemoData(srv.clock()))
	return &testServer{srv: srv, router: srv.Router()}
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != nil {
		buf, _ := json.Marshal(body)
		rdr = bytes.NewReader(buf)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) login(t *testing.T, email, password string) loginResponse {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/login", "", loginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	out := ts.login(t, "Admin@Example.com", "admin")
	assert.NotEmpty(t, out.Token.Token)
	assert.Equal(t, "admin", out.Token.Role)
	assert.Equal(t, "Admin", out.Name)
	assert.NotEmpty(t, out.ID)

	w := ts.do(http.MethodPost, "/api/login", "", loginRequest{Email: "admin@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Invalid email or password"}`, w.Body.String())

	w = ts.do(http.MethodPost, "/api/login", "", loginRequest{Email: "ghost@example.com", Password: "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/api/login", "", loginRequest{Email: "admin@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/clients", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok := ts.login(t, "staff@example.com", "staff").Token.Token
	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	req.AddCookie(&http.Cookie{Name: auth.TokenCookie, Value: tok})
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListSetsTotalCount(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.login(t, "staff@example.com", "staff").Token.Token

	w := ts.do(http.MethodGet, "/api/clients?_start=0&_end=1&_sort=legalName&_order=asc", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))

	var rows []Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Globex Corporation", rows[0]["legalName"])

	w = ts.do(http.MethodGet, "/api/nope", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceCreateComputesTotals(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.login(t, "finance@example.com", "finance").Token.Token

	w := ts.do(http.MethodPost, "/api/invoice", tok, map[string]any{
		"companyId": "co-1", "clientId": "cl-1", "paymentMethodId": "pm-1",
		"date": "2026-05-01T00:00:00Z", "dueDate": "2026-05-15T00:00:00Z",
		"items": []map[string]any{{"productId": "p-1", "customPrice": 10.5, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "UNPAID", rec["status"])
	assert.Equal(t, 21.0, rec["subtotal"])
}

func TestDeleteNeedsAdmin(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.login(t, "staff@example.com", "staff").Token.Token
	admin := ts.login(t, "admin@example.com", "admin").Token.Token

	w := ts.do(http.MethodDelete, "/api/product/p-1", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodDelete, "/api/product/p-1", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/product/p-1", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceActions(t *testing.T) {
	ts := newTestServer(t)
	staff := ts.login(t, "staff@example.com", "staff").Token.Token
	finance := ts.login(t, "finance@example.com", "finance").Token.Token

	w := ts.do(http.MethodPatch, "/api/invoice/inv-1/mark-as-paid", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPatch, "/api/invoice/inv-1/mark-as-paid", finance, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inv, _ := ts.srv.collection("invoice").Get("inv-1")
	assert.Equal(t, "PAID", inv["status"])

	w = ts.do(http.MethodPatch, "/api/invoice/inv-1/mark-as-debt", finance, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inv, _ = ts.srv.collection("invoice").Get("inv-1")
	assert.Equal(t, "DEBT", inv["status"])

	w = ts.do(http.MethodPost, "/api/invoice/inv-1/send-email", finance, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ts.srv.Outbox(), 1)
	assert.Equal(t, "ap@globex.test", ts.srv.Outbox()[0].To)

	w = ts.do(http.MethodGet, "/api/invoice/inv-1/pdf", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = ts.do(http.MethodPatch, "/api/invoice/missing/mark-as-paid", finance, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodPatch, "/api/invoice/inv-1/archive", finance, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateAndUploadRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.login(t, "finance@example.com", "finance").Token.Token

	w := ts.do(http.MethodPost, "/api/invoiceGenerator", tok, map[string]any{
		"companyId": "co-1", "productId": "p-1", "paymentMethodId": "pm-1",
		"date": "2026-05-01", "due_date": "2026-05-15",
		"client": []map[string]string{{"id": "cl-1"}, {"id": "cl-2"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	sheet := w.Body.Bytes()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "filled.xlsx")
	require.NoError(t, err)
	_, _ = part.Write(sheet)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploadExcel", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"count":2,"message":"Invoices generated successfully"}`, rec.Body.String())

	w = ts.do(http.MethodGet, "/api/invoice?status=UNPAID", tok, nil)
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
}

func TestTemplateValidation(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.login(t, "finance@example.com", "finance").Token.Token

	w := ts.do(http.MethodPost, "/api/invoiceGenerator", tok, map[string]any{
		"companyId": "co-1", "productId": "p-1", "paymentMethodId": "pm-1",
		"date": "2026-05-15", "due_date": "2026-05-01",
		"client": []map[string]string{{"id": "cl-1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsers(t *testing.T) {
	u := NewUsers(bcrypt.MinCost)
	_, err := u.Add(SeedUser{Email: "a@example.com", Password: "pw", Role: "staff"})
	require.NoError(t, err)
	_, err = u.Add(SeedUser{Email: "A@example.com", Password: "pw", Role: "staff"})
	assert.Error(t, err)
	_, err = u.Add(SeedUser{Email: "b@example.com", Role: "staff"})
	assert.Error(t, err)

	_, err = u.Authenticate("a@example.com", "bad")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	usr, err := u.Authenticate(" a@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "staff", usr.Role)
}
