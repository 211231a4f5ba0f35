package backend

import (
	"time"

	"invoice-console/internal/invoicing"
	"invoice-console/internal/rbac"
)

// DefaultUsers are the demo accounts of the reference backend.
var DefaultUsers = []SeedUser{
	{Email: "admin@example.com", Password: "admin", Name: "Admin", Role: rbac.RoleAdmin},
	{Email: "finance@example.com", Password: "finance", Name: "Finance", Role: rbac.RoleFinance},
	{Email: "staff@example.com", Password: "staff", Name: "Staff", Role: rbac.RoleStaff},
}

// SeedDemoData fills the collections with a small coherent data set.
func (s *Server) SeedDemoData(now time.Time) error {
	day := func(d int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
	}

	seeds := []struct {
		resource string
		value    any
	}{
		{invoicing.ResourceCompany, invoicing.Company{ID: "co-1", Name: "Acme Invoicing", LegalName: "Acme Invoicing LLC", Email: "billing@acme.test", TaxNumber: "US-123"}},
		{invoicing.ResourceClients, invoicing.Client{ID: "cl-1", LegalName: "Globex Corporation", Email: "ap@globex.test", NetTerms: 30}},
		{invoicing.ResourceClients, invoicing.Client{ID: "cl-2", LegalName: "Initech", Email: "finance@initech.test", NetTerms: 14}},
		{invoicing.ResourceProduct, invoicing.Product{ID: "p-1", Name: "Hosting", Description: "Monthly hosting", Price: 49.9}},
		{invoicing.ResourceProduct, invoicing.Product{ID: "p-2", Name: "Support", Description: "Hourly support", Price: 120}},
		{invoicing.ResourcePaymentMethod, invoicing.PaymentMethod{ID: "pm-1", MethodName: "Bank transfer", Info: "IBAN XX00 0000"}},
	}
	for _, sd := range seeds {
		if _, err := s.collection(sd.resource).Seed(sd.value); err != nil {
			return err
		}
	}

	invoices := []invoicing.Invoice{
		{ID: "inv-1", CompanyID: "co-1", ClientID: "cl-1", PaymentMethodID: "pm-1", Status: invoicing.StatusUnpaid,
			Date: day(-3), DueDate: day(27), Items: []invoicing.InvoiceItem{{ID: "it-1", ProductID: "p-1", CustomPrice: 49.9, Quantity: 2}}},
		{ID: "inv-2", CompanyID: "co-1", ClientID: "cl-2", PaymentMethodID: "pm-1", Status: invoicing.StatusPaid,
			Date: day(-40), DueDate: day(-26), Items: []invoicing.InvoiceItem{{ID: "it-2", ProductID: "p-2", CustomPrice: 120, Quantity: 3}}},
	}
	for i := range invoices {
		invoicing.RecomputeTotals(&invoices[i])
		if _, err := s.collection(invoicing.ResourceInvoice).Seed(invoices[i]); err != nil {
			return err
		}
	}
	return nil
}
