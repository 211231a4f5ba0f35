package invoicing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"invoice-console/internal/dataprovider"
)

// ListInvoices lists invoices, showing only UNPAID ones unless the caller
// filters on status itself.
func (s *Service) ListInvoices(ctx context.Context, p dataprovider.ListParams) ([]Invoice, int, error) {
	if !p.HasFilter("status") {
		p.Filters = append(p.Filters, dataprovider.Filter{Field: "status", Operator: dataprovider.OpEq, Value: string(StatusUnpaid)})
	}
	return s.Invoices.List(ctx, p)
}

// CreateInvoice validates inv, derives its totals and creates it.
func (s *Service) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	if err := validateInvoice(inv); err != nil {
		return Invoice{}, err
	}
	RecomputeTotals(&inv)
	return s.Invoices.Create(ctx, inv)
}

// UpdateInvoice recomputes item totals and the subtotal before sending.
func (s *Service) UpdateInvoice(ctx context.Context, id string, inv Invoice) (Invoice, error) {
	if err := validateInvoice(inv); err != nil {
		return Invoice{}, err
	}
	RecomputeTotals(&inv)
	return s.Invoices.Update(ctx, id, inv)
}

func validateInvoice(inv Invoice) error {
	switch {
	case inv.CompanyID == "":
		return fmt.Errorf("%w: company is required", ErrInvalidArgument)
	case inv.ClientID == "":
		return fmt.Errorf("%w: client is required", ErrInvalidArgument)
	case inv.PaymentMethodID == "":
		return fmt.Errorf("%w: payment method is required", ErrInvalidArgument)
	case inv.Status != "" && !inv.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, inv.Status)
	case !inv.DueDate.IsZero() && inv.DueDate.Before(inv.Date):
		return fmt.Errorf("%w: due date is before the invoice date", ErrInvalidArgument)
	}
	for i, it := range inv.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.CustomPrice < 0 {
			return fmt.Errorf("%w: item %d needs a product, a positive quantity and a price", ErrInvalidArgument, i+1)
		}
	}
	return nil
}

func (s *Service) MarkAsPaid(ctx context.Context, id string) error {
	return s.invoiceAction(ctx, http.MethodPatch, id, "mark-as-paid")
}

func (s *Service) MarkAsDebt(ctx context.Context, id string) error {
	return s.invoiceAction(ctx, http.MethodPatch, id, "mark-as-debt")
}

// SendEmail asks the backend to mail the invoice to its client.
func (s *Service) SendEmail(ctx context.Context, id string) error {
	return s.invoiceAction(ctx, http.MethodPost, id, "send-email")
}

// GeneratePDF streams the rendered invoice to w.
func (s *Service) GeneratePDF(ctx context.Context, id string, w io.Writer) (dataprovider.DownloadResult, error) {
	if id == "" {
		return dataprovider.DownloadResult{}, fmt.Errorf("%w: invoice id is required", ErrInvalidArgument)
	}
	res, err := s.dp.Download(ctx, http.MethodGet, invoicePath(id, "pdf"), nil, w)
	if err != nil {
		return res, err
	}
	if res.Filename == "" {
		res.Filename = "invoice-" + id + ".pdf"
	}
	return res, nil
}

func (s *Service) invoiceAction(ctx context.Context, method, id, action string) error {
	if id == "" {
		return fmt.Errorf("%w: invoice id is required", ErrInvalidArgument)
	}
	if err := s.dp.Custom(ctx, method, invoicePath(id, action), nil, nil); err != nil {
		return err
	}
	s.log.Info("invoice action", "invoice_id", id, "action", action)
	return nil
}

func invoicePath(id, action string) string {
	return ResourceInvoice + "/" + url.PathEscape(id) + "/" + action
}
