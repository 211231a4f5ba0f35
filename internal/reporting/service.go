// Package reporting aggregates invoices into receivables figures.
package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"invoice-console/internal/invoicing"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
type Repository interface {
	ListInvoices(ctx context.Context, from, to time.Time, clientID string) ([]invoicing.Invoice, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service { return &Service{repo: repo, clock: time.Now} }

func (s *Service) load(ctx context.Context, req ReceivablesRequest) ([]invoicing.Invoice, time.Time, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return nil, time.Time{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, time.Time{}, errors.New("reporting: repository not configured")
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = s.clock()
	}
	rows, err := s.repo.ListInvoices(ctx, req.Range.From, req.Range.To, req.ClientID)
	if err != nil {
		return nil, time.Time{}, err
	}
	return rows, asOf.UTC(), nil
}

func isOpen(inv invoicing.Invoice) bool {
	return inv.Status == invoicing.StatusUnpaid || inv.Status == invoicing.StatusDebt
}

func isOverdue(inv invoicing.Invoice, asOf time.Time) bool {
	return isOpen(inv) && !inv.DueDate.IsZero() && inv.DueDate.Before(asOf)
}

// Report loads the range once and returns both the summary and the open
// balances per client.
func (s *Service) Report(ctx context.Context, req ReceivablesRequest) (Receivables, []ClientBalance, error) {
	rows, asOf, err := s.load(ctx, req)
	if err != nil {
		return Receivables{}, nil, err
	}
	return summarize(rows, req.ClientID, asOf), balances(rows, asOf), nil
}

func (s *Service) ReceivablesSummary(ctx context.Context, req ReceivablesRequest) (Receivables, error) {
	rows, asOf, err := s.load(ctx, req)
	if err != nil {
		return Receivables{}, err
	}
	return summarize(rows, req.ClientID, asOf), nil
}

// ClientBalances lists clients with open invoices, largest balance first.
func (s *Service) ClientBalances(ctx context.Context, req ReceivablesRequest) ([]ClientBalance, error) {
	rows, asOf, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return balances(rows, asOf), nil
}

func summarize(rows []invoicing.Invoice, clientID string, asOf time.Time) Receivables {
	out := Receivables{ClientID: clientID, AsOf: asOf}
	for _, inv := range rows {
		amount := invoicing.ToMinor(inv.Subtotal)
		out.InvoiceCount++
		out.InvoicedMinor += amount

		switch inv.Status {
		case invoicing.StatusPaid:
			out.PaidCount++
			out.PaidMinor += amount
		case invoicing.StatusUnpaid:
			out.UnpaidCount++
			out.OutstandingMinor += amount
		case invoicing.StatusDebt:
			out.DebtCount++
			out.OutstandingMinor += amount
		}
		if isOverdue(inv, asOf) {
			out.OverdueCount++
			out.OverdueMinor += amount
		}
	}
	return out
}

func balances(rows []invoicing.Invoice, asOf time.Time) []ClientBalance {
	byClient := map[string]*ClientBalance{}
	for _, inv := range rows {
		if !isOpen(inv) {
			continue
		}
		b, ok := byClient[inv.ClientID]
		if !ok {
			b = &ClientBalance{ClientID: inv.ClientID}
			byClient[inv.ClientID] = b
		}
		b.OpenInvoices++
		b.OutstandingMinor += invoicing.ToMinor(inv.Subtotal)
		if isOverdue(inv, asOf) {
			b.OverdueCount++
		}
		if !inv.DueDate.IsZero() && (b.OldestDue.IsZero() || inv.DueDate.Before(b.OldestDue)) {
			b.OldestDue = inv.DueDate
		}
	}

	out := make([]ClientBalance, 0, len(byClient))
	for _, b := range byClient {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OutstandingMinor != out[j].OutstandingMinor {
			return out[i].OutstandingMinor > out[j].OutstandingMinor
		}
		return out[i].ClientID < out[j].ClientID
	})
	return out
}
