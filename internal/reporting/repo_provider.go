package reporting

import (
	"context"
	"time"

	"invoice-console/internal/dataprovider"
	"invoice-console/internal/invoicing"
)

// ProviderRepo reads invoices from the backend through the authenticated data
// provider. Filtering happens server side.
type ProviderRepo struct {
	invoices invoicing.Resource[invoicing.Invoice]
}

func NewProviderRepo(invoices invoicing.Resource[invoicing.Invoice]) *ProviderRepo {
	return &ProviderRepo{invoices: invoices}
}

func (r *ProviderRepo) ListInvoices(ctx context.Context, from, to time.Time, clientID string) ([]invoicing.Invoice, error) {
	p := dataprovider.ListParams{
		Pagination: dataprovider.Pagination{Off: true},
		Sorters:    []dataprovider.Sorter{{Field: "date", Order: "asc"}},
		Filters: []dataprovider.Filter{
			{Field: "date", Operator: dataprovider.OpGte, Value: from.UTC().Format(time.RFC3339)},
			{Field: "date", Operator: dataprovider.OpLt, Value: to.UTC().Format(time.RFC3339)},
		},
	}
	if clientID != "" {
		p.Filters = append(p.Filters, dataprovider.Filter{Field: "clientId", Value: clientID})
	}
	out, _, err := r.invoices.List(ctx, p)
	return out, err
}
