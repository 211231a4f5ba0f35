package reporting

import (
	"context"
	"sync"
	"time"

	"invoice-console/internal/invoicing"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early development.
type MemoryRepo struct {
	mu sync.Mutex

	Invoices []invoicing.Invoice
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListInvoices(ctx context.Context, from, to time.Time, clientID string) ([]invoicing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]invoicing.Invoice, 0)
	for _, inv := range r.Invoices {
		if inv.Date.Before(from) || !inv.Date.Before(to) {
			continue
		}
		if clientID != "" && inv.ClientID != clientID {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}
