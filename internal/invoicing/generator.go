package invoicing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"invoice-console/internal/session"

	"golang.org/x/sync/errgroup"
)

const (
	TemplateEndpoint = "/invoiceGenerator"
	UploadEndpoint   = "/uploadExcel"
	UploadField      = "file"

	DefaultTemplateName = "invoice-template.xlsx"
	// DefaultDueIn is the due date offset used when none is given.
	DefaultDueIn = 14 * 24 * time.Hour

	dateLayout = "2006-01-02"

	msgUploadFailed = "Failed to process the Excel file"
)

// TemplateOptions are the choices offered by the template form.
type TemplateOptions struct {
	Companies      []Company       `json:"companies"`
	Products       []Product       `json:"products"`
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
	Clients        []Client        `json:"clients"`
}

// TemplateOptions loads the four option lists concurrently.
func (s *Service) TemplateOptions(ctx context.Context) (TemplateOptions, error) {
	var out TemplateOptions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.Companies.All(gctx)
		out.Companies = v
		return err
	})
	g.Go(func() error {
		v, err := s.Products.All(gctx)
		out.Products = v
		return err
	})
	g.Go(func() error {
		v, err := s.PaymentMethods.All(gctx)
		out.PaymentMethods = v
		return err
	})
	g.Go(func() error {
		v, err := s.Clients.All(gctx)
		out.Clients = v
		return err
	})
	if err := g.Wait(); err != nil {
		return TemplateOptions{}, err
	}
	return out, nil
}

// TemplateRequest selects what the generated workbook is prefilled with.
// Zero dates default to today and today plus DefaultDueIn.
type TemplateRequest struct {
	CompanyID       string    `json:"companyId"`
	ProductID       string    `json:"productId"`
	PaymentMethodID string    `json:"paymentMethodId"`
	ClientIDs       []string  `json:"clientIds"`
	Date            time.Time `json:"date"`
	DueDate         time.Time `json:"dueDate"`
}

type templateClient struct {
	ID string `json:"id"`
}

// templateBody is the wire shape expected by the generator endpoint.
type templateBody struct {
	CompanyID       string           `json:"companyId"`
	ProductID       string           `json:"productId"`
	PaymentMethodID string           `json:"paymentMethodId"`
	Date            string           `json:"date"`
	DueDate         string           `json:"due_date"`
	Client          []templateClient `json:"client"`
}

func (s *Service) templateBody(req TemplateRequest) (templateBody, error) {
	switch {
	case req.CompanyID == "":
		return templateBody{}, fmt.Errorf("%w: company is required", ErrInvalidArgument)
	case req.ProductID == "":
		return templateBody{}, fmt.Errorf("%w: product is required", ErrInvalidArgument)
	case req.PaymentMethodID == "":
		return templateBody{}, fmt.Errorf("%w: payment method is required", ErrInvalidArgument)
	case len(req.ClientIDs) == 0:
		return templateBody{}, fmt.Errorf("%w: at least one client is required", ErrInvalidArgument)
	}

	date := req.Date
	if date.IsZero() {
		date = s.clock()
	}
	due := req.DueDate
	if due.IsZero() {
		due = date.Add(DefaultDueIn)
	}
	if due.Format(dateLayout) < date.Format(dateLayout) {
		return templateBody{}, fmt.Errorf("%w: due date is before the invoice date", ErrInvalidArgument)
	}

	clients := make([]templateClient, 0, len(req.ClientIDs))
	for _, id := range req.ClientIDs {
		if strings.TrimSpace(id) == "" {
			return templateBody{}, fmt.Errorf("%w: empty client id", ErrInvalidArgument)
		}
		clients = append(clients, templateClient{ID: id})
	}
	return templateBody{
		CompanyID:       req.CompanyID,
		ProductID:       req.ProductID,
		PaymentMethodID: req.PaymentMethodID,
		Date:            date.Format(dateLayout),
		DueDate:         due.Format(dateLayout),
		Client:          clients,
	}, nil
}

// DownloadTemplate streams the generated workbook to w.
func (s *Service) DownloadTemplate(ctx context.Context, req TemplateRequest, w io.Writer) (string, error) {
	body, err := s.templateBody(req)
	if err != nil {
		return "", err
	}
	res, err := s.dp.Download(ctx, http.MethodPost, TemplateEndpoint, body, w)
	if err != nil {
		return "", err
	}
	s.log.Info("invoice template downloaded", "clients", len(body.Client), "bytes", res.Bytes)
	if res.Filename == "" {
		return DefaultTemplateName, nil
	}
	return res.Filename, nil
}

// UploadResult is the outcome of a workbook upload.
type UploadResult struct {
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// ErrUnsupportedFile is returned for uploads that are not Excel workbooks.
var ErrUnsupportedFile = errors.New("only Excel files (.xlsx, .xls) are allowed")

// AllowedUpload reports whether filename has an Excel extension.
func AllowedUpload(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// UploadWorkbook sends a filled template; the backend creates one invoice per row.
func (s *Service) UploadWorkbook(ctx context.Context, filename string, r io.Reader) (UploadResult, error) {
	if !AllowedUpload(filename) {
		return UploadResult{}, ErrUnsupportedFile
	}
	var out UploadResult
	err := s.dp.Upload(ctx, UploadEndpoint, UploadField, filepath.Base(filename), r, &out)
	if err != nil {
		var he *session.HTTPError
		if errors.As(err, &he) && he.Message == "" {
			he.Message = msgUploadFailed
		}
		return UploadResult{}, err
	}
	s.log.Info("workbook uploaded", "file", filepath.Base(filename), "invoices", out.Count)
	return out, nil
}
