package invoicing

import "time"

// Resource names as exposed by the backend below /api.
const (
	ResourceClients       = "clients"
	ResourceCompany       = "company"
	ResourceProduct       = "product"
	ResourcePaymentMethod = "paymentMethod"
	ResourceInvoice       = "invoice"
)

// Client is a customer that invoices are billed to.
type Client struct {
	ID        string `json:"id,omitempty"`
	LegalName string `json:"legalName"`
	Email     string `json:"email"`
	Address   string `json:"address,omitempty"`
	// NetTerms is the payment window in days.
	NetTerms int `json:"netTerms"`
}

// Company is the issuing entity printed on an invoice.
type Company struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	LegalName string `json:"legalName,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	TaxNumber string `json:"taxNumber,omitempty"`
	Website   string `json:"website,omitempty"`
}

type Product struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

type PaymentMethod struct {
	ID         string `json:"id,omitempty"`
	MethodName string `json:"methodName"`
	Info       string `json:"info,omitempty"`
}

type InvoiceStatus string

const (
	StatusPaid   InvoiceStatus = "PAID"
	StatusUnpaid InvoiceStatus = "UNPAID"
	StatusDebt   InvoiceStatus = "DEBT"
)

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusUnpaid, StatusDebt:
		return true
	}
	return false
}

// InvoiceItem is one line of an invoice. Total is derived from CustomPrice and
// Quantity.
type InvoiceItem struct {
	ID          string  `json:"id,omitempty"`
	ProductID   string  `json:"productId"`
	CustomPrice float64 `json:"customPrice"`
	Quantity    int     `json:"quantity"`
	Total       float64 `json:"total"`
}

type Invoice struct {
	ID              string        `json:"id,omitempty"`
	CompanyID       string        `json:"companyId"`
	ClientID        string        `json:"clientId"`
	PaymentMethodID string        `json:"paymentMethodId"`
	Status          InvoiceStatus `json:"status,omitempty"`
	Date            time.Time     `json:"date"`
	DueDate         time.Time     `json:"dueDate"`
	Notes           string        `json:"notes,omitempty"`
	Items           []InvoiceItem `json:"items,omitempty"`
	Subtotal        float64       `json:"subtotal"`
}
