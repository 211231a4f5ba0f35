package reporting

import "time"

// Common filtering inputs.

// TimeRange is [From, To) over the invoice date.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ReceivablesRequest scopes a receivables report.
// AsOf decides which open invoices count as overdue; zero means now.
type ReceivablesRequest struct {
	Range    TimeRange `json:"range"`
	ClientID string    `json:"client_id,omitempty"`
	AsOf     time.Time `json:"as_of,omitempty"`
}

type Receivables struct {
	ClientID string    `json:"client_id,omitempty"`
	AsOf     time.Time `json:"as_of"`

	InvoiceCount int `json:"invoice_count"`
	PaidCount    int `json:"paid_count"`
	UnpaidCount  int `json:"unpaid_count"`
	DebtCount    int `json:"debt_count"`
	OverdueCount int `json:"overdue_count"`

	InvoicedMinor    int64 `json:"invoiced_minor"`
	PaidMinor        int64 `json:"paid_minor"`
	OutstandingMinor int64 `json:"outstanding_minor"`
	OverdueMinor     int64 `json:"overdue_minor"`
}

// ClientBalance is the open amount owed by one client.
type ClientBalance struct {
	ClientID         string    `json:"client_id"`
	OpenInvoices     int       `json:"open_invoices"`
	OverdueCount     int       `json:"overdue_count"`
	OutstandingMinor int64     `json:"outstanding_minor"`
	OldestDue        time.Time `json:"oldest_due,omitempty"`
}
