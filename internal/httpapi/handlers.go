package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"invoice-console/internal/audit"
	"invoice-console/internal/invoicing"
	"invoice-console/internal/reporting"
	"invoice-console/internal/session"
	"invoice-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HeaderSessionRedirect tells the browser where to go after the session ended.
const HeaderSessionRedirect = "X-Session-Redirect"

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Gateway  *session.Gateway
	Invoices *invoicing.Service
	Reports  *reporting.Service
}

// --- Session ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
	res, err := h.Gateway.Login(ctx, req.Email, req.Password)
	if err != nil {
		var ae *session.AuthError
		if errors.As(err, &ae) && ae.Kind == session.KindMissingCredentials {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ae.Message, "kind": ae.Kind})
			return
		}
		msg := err.Error()
		kind := session.KindLoginError
		if ae != nil {
			msg, kind = ae.Message, ae.Kind
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "kind": kind})
		return
	}

	http.SetCookie(c.Writer, h.Gateway.Cookie())
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Logout(c *gin.Context) {
	ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
	res := h.Gateway.Logout(ctx)
	http.SetCookie(c.Writer, h.Gateway.Cookie())
	c.JSON(http.StatusOK, res)
}

// Check never fails; an unauthenticated caller gets the login redirect.
func (h Handlers) Check(c *gin.Context) {
	c.JSON(http.StatusOK, h.Gateway.Check(c.Request.Context()))
}

func (h Handlers) Identity(c *gin.Context) {
	id, ok := h.Gateway.Identity(c.Request.Context())
	if !ok {
		h.sessionEnded(c)
		return
	}
	c.JSON(http.StatusOK, id)
}

func (h Handlers) Permissions(c *gin.Context) {
	role, ok := h.Gateway.Permissions(c.Request.Context())
	if !ok {
		h.sessionEnded(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

// sessionEnded answers 401 with the login redirect and expires the browser cookie.
func (h Handlers) sessionEnded(c *gin.Context) {
	http.SetCookie(c.Writer, h.Gateway.Cookie())
	c.Header(HeaderSessionRedirect, session.LoginPath)
	c.AbortWithStatusJSON(http.StatusUnauthorized, session.CheckResult{Authenticated: false, RedirectTo: session.LoginPath})
}

// --- Invoice generator ---

func (h Handlers) TemplateOptions(c *gin.Context) {
	opts, err := h.Invoices.TemplateOptions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

type templateRequest struct {
	CompanyID       string   `json:"companyId"`
	ProductID       string   `json:"productId"`
	PaymentMethodID string   `json:"paymentMethodId"`
	ClientIDs       []string `json:"clientIds"`
	// Dates are YYYY-MM-DD; empty means the generator default.
	Date    string `json:"date"`
	DueDate string `json:"dueDate"`
}

func (h Handlers) DownloadTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	tr := invoicing.TemplateRequest{
		CompanyID:       req.CompanyID,
		ProductID:       req.ProductID,
		PaymentMethodID: req.PaymentMethodID,
		ClientIDs:       req.ClientIDs,
	}
	var err error
	if tr.Date, err = parseDate(req.Date); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	if tr.DueDate, err = parseDate(req.DueDate); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "dueDate must be YYYY-MM-DD"})
		return
	}

	var buf bytes.Buffer
	name, err := h.Invoices.DownloadTemplate(c.Request.Context(), tr, &buf)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h Handlers) UploadWorkbook(c *gin.Context) {
	fh, err := c.FormFile(invoicing.UploadField)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	res, err := h.Invoices.UploadWorkbook(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	logger.FromGin(c).Info("workbook processed", "invoices", res.Count)
	c.JSON(http.StatusOK, res)
}

// --- Reports ---

// Receivables answers ?from=YYYY-MM-DD&to=YYYY-MM-DD[&clientId=][&asOf=]. The
// range defaults to the current calendar month.
func (h Handlers) Receivables(c *gin.Context) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	req := reporting.ReceivablesRequest{
		Range:    reporting.TimeRange{From: from, To: from.AddDate(0, 1, 0)},
		ClientID: c.Query("clientId"),
	}
	for key, dst := range map[string]*time.Time{"from": &req.Range.From, "to": &req.Range.To, "asOf": &req.AsOf} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": key + " must be YYYY-MM-DD"})
			return
		}
		*dst = t
	}

	summary, balances, err := h.Reports.Report(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "clients": balances})
}

// writeError maps a service error to a JSON response. Backend auth failures have
// already ended the session inside the data provider, unless the rejected token
// was an older one than the session now held.
func (h Handlers) writeError(c *gin.Context, err error) {
	status := session.StatusOf(err)
	switch {
	case session.IsAuthFailure(status) && !h.Gateway.Check(c.Request.Context()).Authenticated:
		h.sessionEnded(c)
	case errors.Is(err, invoicing.ErrInvalidArgument), errors.Is(err, invoicing.ErrUnsupportedFile),
		errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case status >= 400 && status < 500:
		c.AbortWithStatusJSON(status, gin.H{"error": backendMessage(err)})
	default:
		logger.FromGin(c).Error("backend call failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": backendMessage(err)})
	}
}

func backendMessage(err error) string {
	var he *session.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return "backend request failed"
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
