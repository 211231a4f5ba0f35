package backend

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"invoice-console/internal/auth"
	"invoice-console/internal/invoicing"
	"invoice-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginToken struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token loginToken `json:"token"`
	ID    string     `json:"id"`
	Name  string     `json:"name"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}
	usr, err := s.users.Authenticate(req.Email, req.Password)
	if err != nil {
		logger.FromGin(c).Info("login rejected", "email", req.Email)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}
	tok, err := s.auth.Issue(s.clock(), usr.ID, usr.Name, usr.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		Token: loginToken{Token: tok, Role: usr.Role},
		ID:    usr.ID,
		Name:  usr.Name,
	})
}

// resource resolves the :resource param, aborting with 404 when unknown.
func (s *Server) resource(c *gin.Context) (*Collection, string, bool) {
	name := c.Param("resource")
	col := s.collection(name)
	if col == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "unknown resource " + name})
		return nil, "", false
	}
	return col, name, true
}

func (s *Server) list(c *gin.Context) {
	col, _, ok := s.resource(c)
	if !ok {
		return
	}
	rows, total, err := col.Query(c.Request.URL.Query())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.Header("Access-Control-Expose-Headers", "X-Total-Count")
	c.JSON(http.StatusOK, rows)
}

func (s *Server) getOne(c *gin.Context) {
	col, _, ok := s.resource(c)
	if !ok {
		return
	}
	rec, err := col.Get(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) create(c *gin.Context) {
	col, name, ok := s.resource(c)
	if !ok {
		return
	}
	var in Record
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	if name == invoicing.ResourceInvoice {
		var err error
		if in, err = normalizeInvoice(in, true); err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
	}
	c.JSON(http.StatusCreated, col.Create(in))
}

func (s *Server) patch(c *gin.Context) {
	col, name, ok := s.resource(c)
	if !ok {
		return
	}
	var in Record
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	if name == invoicing.ResourceInvoice {
		if _, hasItems := in["items"]; hasItems {
			var err error
			if in, err = normalizeInvoice(in, false); err != nil {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
				return
			}
		}
	}
	rec, err := col.Patch(c.Param("id"), in)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) remove(c *gin.Context) {
	col, _, ok := s.resource(c)
	if !ok {
		return
	}
	rec, err := col.Delete(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// normalizeInvoice derives item totals and the subtotal, and defaults a new
// invoice to UNPAID.
func normalizeInvoice(in Record, isNew bool) (Record, error) {
	var inv invoicing.Invoice
	rec, err := toRecord(in)
	if err != nil {
		return nil, err
	}
	if err := decodeRecord(rec, &inv); err != nil {
		return nil, fmt.Errorf("invalid invoice: %w", err)
	}
	if isNew && inv.Status == "" {
		inv.Status = invoicing.StatusUnpaid
	}
	if inv.Status != "" && !inv.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q", inv.Status)
	}
	invoicing.RecomputeTotals(&inv)

	rec["items"] = inv.Items
	rec["subtotal"] = inv.Subtotal
	if inv.Status != "" {
		rec["status"] = inv.Status
	}
	return toRecord(rec)
}

func (s *Server) invoiceAction(c *gin.Context) {
	if c.Param("resource") != invoicing.ResourceInvoice {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}
	col := s.collection(invoicing.ResourceInvoice)
	id := c.Param("id")

	var (
		rec Record
		err error
	)
	switch action := c.Param("action"); {
	case action == "mark-as-paid" && c.Request.Method == http.MethodPatch:
		rec, err = col.Patch(id, Record{"status": string(invoicing.StatusPaid)})
	case action == "mark-as-debt" && c.Request.Method == http.MethodPatch:
		rec, err = col.Patch(id, Record{"status": string(invoicing.StatusDebt)})
	case action == "send-email" && c.Request.Method == http.MethodPost:
		rec, err = s.sendEmail(id)
	default:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "unknown action " + action})
		return
	}
	if errors.Is(err, ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) sendEmail(invoiceID string) (Record, error) {
	inv, err := s.collection(invoicing.ResourceInvoice).Get(invoiceID)
	if err != nil {
		return nil, err
	}
	clientID, _ := inv["clientId"].(string)
	client, err := s.collection(invoicing.ResourceClients).Get(clientID)
	if err != nil {
		return nil, fmt.Errorf("invoice %s has no client", invoiceID)
	}
	to, _ := client["email"].(string)
	if to == "" {
		return nil, fmt.Errorf("client %s has no email", clientID)
	}
	s.mu.Lock()
	s.outbox = append(s.outbox, Email{InvoiceID: invoiceID, To: to, SentAt: s.clock().UTC()})
	s.mu.Unlock()
	return Record{"message": "Email sent", "to": to}, nil
}

func (s *Server) invoiceDocument(c *gin.Context) {
	if c.Param("resource") != invoicing.ResourceInvoice || c.Param("action") != "pdf" {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}
	id := c.Param("id")
	inv, err := s.collection(invoicing.ResourceInvoice).Get(id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	// Rendering is out of scope; the document only names the invoice.
	body := fmt.Sprintf("%%PDF-1.4\n%% invoice %s subtotal %v\n%%%%EOF\n", id, inv["subtotal"])
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", []byte(body))
}

type templateRequest struct {
	CompanyID       string `json:"companyId"`
	ProductID       string `json:"productId"`
	PaymentMethodID string `json:"paymentMethodId"`
	Date            string `json:"date"`
	DueDate         string `json:"due_date"`
	Client          []struct {
		ID string `json:"id"`
	} `json:"client"`
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// invoiceTemplate returns one row per selected client. The stub emits a
// tab-separated sheet instead of a real workbook.
func (s *Server) invoiceTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	if req.CompanyID == "" || req.ProductID == "" || req.PaymentMethodID == "" || len(req.Client) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "companyId, productId, paymentMethodId and client are required"})
		return
	}
	date, err1 := time.Parse(time.DateOnly, req.Date)
	due, err2 := time.Parse(time.DateOnly, req.DueDate)
	if err1 != nil || err2 != nil || due.Before(date) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "date and due_date must be YYYY-MM-DD and due_date must not precede date"})
		return
	}

	var b strings.Builder
	b.WriteString("clientId\tcompanyId\tproductId\tpaymentMethodId\tdate\tdue_date\tquantity\tprice\n")
	for _, cl := range req.Client {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\t1\t\n", cl.ID, req.CompanyID, req.ProductID, req.PaymentMethodID, req.Date, req.DueDate)
	}
	c.Header("Content-Disposition", `attachment; filename="invoice-template.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, []byte(b.String()))
}

// uploadWorkbook counts the data rows of an uploaded template and creates one
// UNPAID invoice per row.
func (s *Server) uploadWorkbook(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "file is required"})
		return
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".xlsx", ".xls":
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Only Excel files (.xlsx, .xls) are allowed"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "unreadable file"})
		return
	}
	defer f.Close()

	col := s.collection(invoicing.ResourceInvoice)
	count := 0
	sc := bufio.NewScanner(f)
	header := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if header {
			header = false
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 6 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": fmt.Sprintf("row %d is incomplete", count+1)})
			return
		}
		date, err1 := time.Parse(time.DateOnly, cols[4])
		due, err2 := time.Parse(time.DateOnly, cols[5])
		if err1 != nil || err2 != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": fmt.Sprintf("row %d has invalid dates", count+1)})
			return
		}
		col.Create(Record{
			"clientId":        cols[0],
			"companyId":       cols[1],
			"paymentMethodId": cols[3],
			"date":            date.Format(time.RFC3339),
			"dueDate":         due.Format(time.RFC3339),
			"status":          string(invoicing.StatusUnpaid),
			"subtotal":        0,
		})
		count++
	}
	if err := sc.Err(); err != nil || count == 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "Failed to process the Excel file"})
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	logger.FromGin(c).Info("workbook imported", "invoices", count, "user_id", uid)
	c.JSON(http.StatusOK, gin.H{"count": count, "message": "Invoices generated successfully"})
}
