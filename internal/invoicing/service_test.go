package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"invoice-console/internal/dataprovider"
	"invoice-console/internal/session"
	"invoice-console/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Method string
	URI    string
	Body   []byte
}

type fakeAPI struct {
	*httptest.Server
	mu       sync.Mutex
	requests []request
}

func (f *fakeAPI) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Method+" "+r.URI)
	}
	return out
}

func newService(t *testing.T, routes map[string]http.HandlerFunc) (*Service, *fakeAPI) {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":{"token":"tok","role":"admin"},"id":1,"name":"Ops"}`))
	})
	for pattern, h := range routes {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.requests = append(f.requests, request{Method: r.Method, URI: r.URL.RequestURI(), Body: body})
			f.mu.Unlock()
			r.Body = io.NopCloser(bytes.NewReader(body))
			h(w, r)
		})
	}
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)

	gw, err := session.New(context.Background(), session.Options{
		BaseURL: f.URL,
		Store:   session.NewMemoryStore(),
		Logger:  logger.Discard(),
	})
	require.NoError(t, err)
	_, err = gw.Login(context.Background(), "ops@example.com", "secret")
	require.NoError(t, err)

	svc := NewService(dataprovider.New(gw, logger.Discard()), logger.Discard())
	svc.clock = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, f
}

func writeJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestListInvoices_DefaultsToUnpaid(t *testing.T) {
	svc, api := newService(t, map[string]http.HandlerFunc{
		"GET /api/invoice": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(dataprovider.TotalCountHeader, "12")
			writeJSON([]Invoice{{ID: "1", Status: StatusUnpaid}})(w, r)
		},
	})
	ctx := context.Background()

	got, total, err := svc.ListInvoices(ctx, dataprovider.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, got, 1)
	assert.Equal(t, "GET /api/invoice?_end=10&_start=0&status=UNPAID", api.last().Method+" "+api.last().URI)

	_, _, err = svc.ListInvoices(ctx, dataprovider.ListParams{
		Filters: []dataprovider.Filter{{Field: "status", Value: "PAID"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/invoice?_end=10&_start=0&status=PAID", api.last().URI)
}

func TestUpdateInvoice_RecomputesTotals(t *testing.T) {
	svc, api := newService(t, map[string]http.HandlerFunc{
		"PATCH /api/invoice/{id}": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"7"}`))
		},
	})

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.UpdateInvoice(context.Background(), "7", Invoice{
		CompanyID: "c", ClientID: "cl", PaymentMethodID: "pm",
		Date: date, DueDate: date.AddDate(0, 0, 14),
		Items: []InvoiceItem{
			{ProductID: "p1", CustomPrice: 0.1, Quantity: 3, Total: 999},
			{ProductID: "p2", CustomPrice: 19.99, Quantity: 2},
		},
		Subtotal: 1,
	})
	require.NoError(t, err)

	var sent Invoice
	require.NoError(t, json.Unmarshal(api.last().Body, &sent))
	assert.Equal(t, 0.3, sent.Items[0].Total)
	assert.Equal(t, 39.98, sent.Items[1].Total)
	assert.Equal(t, 40.28, sent.Subtotal)
}

func TestCreateInvoice_Validates(t *testing.T) {
	svc, api := newService(t, map[string]http.HandlerFunc{})
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]Invoice{
		"no company": {ClientID: "c", PaymentMethodID: "p"},
		"bad status": {CompanyID: "c", ClientID: "c", PaymentMethodID: "p", Status: "LOST"},
		"due first":  {CompanyID: "c", ClientID: "c", PaymentMethodID: "p", Date: date, DueDate: date.AddDate(0, 0, -1)},
		"bad item":   {CompanyID: "c", ClientID: "c", PaymentMethodID: "p", Items: []InvoiceItem{{ProductID: "x"}}},
	}
	for name, inv := range cases {
		_, err := svc.CreateInvoice(context.Background(), inv)
		assert.ErrorIs(t, err, ErrInvalidArgument, name)
	}
	assert.Empty(t, api.paths())
}

func TestInvoiceActions(t *testing.T) {
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
	svc, api := newService(t, map[string]http.HandlerFunc{
		"PATCH /api/invoice/{id}/mark-as-paid": ok,
		"PATCH /api/invoice/{id}/mark-as-debt": ok,
		"POST /api/invoice/{id}/send-email":    ok,
		"GET /api/invoice/{id}/pdf": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF"))
		},
	})
	ctx := context.Background()

	require.NoError(t, svc.MarkAsPaid(ctx, "7"))
	require.NoError(t, svc.MarkAsDebt(ctx, "7"))
	require.NoError(t, svc.SendEmail(ctx, "7"))

	var buf bytes.Buffer
	res, err := svc.GeneratePDF(ctx, "7", &buf)
	require.NoError(t, err)
	assert.Equal(t, "invoice-7.pdf", res.Filename)
	assert.Equal(t, "%PDF", buf.String())

	assert.Equal(t, []string{
		"PATCH /api/invoice/7/mark-as-paid",
		"PATCH /api/invoice/7/mark-as-debt",
		"POST /api/invoice/7/send-email",
		"GET /api/invoice/7/pdf",
	}, api.paths())

	assert.ErrorIs(t, svc.MarkAsPaid(ctx, ""), ErrInvalidArgument)
}

func TestTemplateOptions_LoadsAllLists(t *testing.T) {
	svc, api := newService(t, map[string]http.HandlerFunc{
		"GET /api/company":       writeJSON([]Company{{ID: "co1", Name: "Acme"}}),
		"GET /api/product":       writeJSON([]Product{{ID: "p1", Name: "Hosting", Price: 10}}),
		"GET /api/paymentMethod": writeJSON([]PaymentMethod{{ID: "pm1", MethodName: "Wire"}}),
		"GET /api/clients":       writeJSON([]Client{{ID: "cl1", LegalName: "Globex"}, {ID: "cl2", LegalName: "Initech"}}),
	})

	opts, err := svc.TemplateOptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, opts.Companies, 1)
	assert.Len(t, opts.Products, 1)
	assert.Len(t, opts.PaymentMethods, 1)
	assert.Len(t, opts.Clients, 2)

	for _, p := range api.paths() {
		assert.NotContains(t, p, "_start", "option lists are not paginated")
	}
}

func TestTemplateOptions_FailsWhenAnyListFails(t *testing.T) {
	svc, _ := newService(t, map[string]http.HandlerFunc{
		"GET /api/company":       writeJSON([]Company{}),
		"GET /api/product":       func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"GET /api/paymentMethod": writeJSON([]PaymentMethod{}),
		"GET /api/clients":       writeJSON([]Client{}),
	})

	_, err := svc.TemplateOptions(context.Background())
	assert.Equal(t, http.StatusInternalServerError, session.StatusOf(err))
}

func TestDownloadTemplate_BodyAndDefaults(t *testing.T) {
	svc, api := newService(t, map[string]http.HandlerFunc{
		"POST /api/invoiceGenerator": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			_, _ = w.Write([]byte("xlsx-bytes"))
		},
	})

	var buf bytes.Buffer
	name, err := svc.DownloadTemplate(context.Background(), TemplateRequest{
		CompanyID: "co1", ProductID: "p1", PaymentMethodID: "pm1",
		ClientIDs: []string{"cl1", "cl2"},
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplateName, name)
	assert.Equal(t, "xlsx-bytes", buf.String())
	assert.JSONEq(t, `{
		"companyId":"co1","productId":"p1","paymentMethodId":"pm1",
		"date":"2026-03-10","due_date":"2026-03-24",
		"client":[{"id":"cl1"},{"id":"cl2"}]
	}`, string(api.last().Body))
}

func TestDownloadTemplate_Validation(t *testing.T) {
	svc, api := newService(t, map[string]http.HandlerFunc{})
	base := TemplateRequest{CompanyID: "co1", ProductID: "p1", PaymentMethodID: "pm1", ClientIDs: []string{"cl1"}}

	noClients := base
	noClients.ClientIDs = nil
	noProduct := base
	noProduct.ProductID = ""
	dueFirst := base
	dueFirst.Date = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	dueFirst.DueDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	for _, req := range []TemplateRequest{noClients, noProduct, dueFirst} {
		_, err := svc.DownloadTemplate(context.Background(), req, io.Discard)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}

	sameDay := base
	sameDay.Date = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	sameDay.DueDate = sameDay.Date
	_, err := svc.templateBody(sameDay)
	assert.NoError(t, err)
	assert.Empty(t, api.paths())
}

func TestUploadWorkbook(t *testing.T) {
	svc, _ := newService(t, map[string]http.HandlerFunc{
		"POST /api/uploadExcel": func(w http.ResponseWriter, r *http.Request) {
			f, hdr, err := r.FormFile(UploadField)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer f.Close()
			if hdr.Filename != "batch.xlsx" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"unexpected file"}`))
				return
			}
			writeJSON(map[string]int{"count": 4})(w, r)
		},
	})

	res, err := svc.UploadWorkbook(context.Background(), "/tmp/batch.xlsx", strings.NewReader("rows"))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Count)

	_, err = svc.UploadWorkbook(context.Background(), "other.XLS", strings.NewReader("rows"))
	var he *session.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "unexpected file", he.Message)

	_, err = svc.UploadWorkbook(context.Background(), "notes.csv", strings.NewReader("rows"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestUploadWorkbook_FallbackMessage(t *testing.T) {
	svc, _ := newService(t, map[string]http.HandlerFunc{
		"POST /api/uploadExcel": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		},
	})

	_, err := svc.UploadWorkbook(context.Background(), "batch.xls", strings.NewReader("rows"))
	var he *session.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "Failed to process the Excel file", he.Message)
}

func TestRecomputeTotals_Empty(t *testing.T) {
	inv := Invoice{Subtotal: 12}
	RecomputeTotals(&inv)
	assert.Equal(t, 0.0, inv.Subtotal)
}
