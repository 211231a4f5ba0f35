package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"invoice-console/internal/invoicing"

	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Bulk invoice template",
	Long: `Download a pre-filled workbook, fill it in, then send it back with upload.

Examples:
  invoicectl template options
  invoicectl template download --company co-1 --product p-1 --payment-method pm-1 \
      --client cl-1 --client cl-2 --date 2026-03-01 --due-date 2026-03-31 -o march.xlsx
  invoicectl upload march.xlsx`,
}

var templateOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List companies, products, payment methods and clients for the template",
	Args:  cobra.NoArgs,
	RunE:  runTemplateOptions,
}

var templateDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the template workbook",
	Args:  cobra.NoArgs,
	RunE:  runTemplateDownload,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file.xlsx>",
	Short: "Generate invoices from a filled template",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(templateCmd, uploadCmd)
	templateCmd.AddCommand(templateOptionsCmd, templateDownloadCmd)

	f := templateDownloadCmd.Flags()
	f.String("company", "", "company id")
	f.String("product", "", "product id")
	f.String("payment-method", "", "payment method id")
	f.StringArray("client", nil, "client id (repeatable)")
	f.String("date", "", "invoice date, YYYY-MM-DD (default today)")
	f.String("due-date", "", "due date, YYYY-MM-DD (default date + 14 days)")
	f.StringP("output", "o", "", "file to write (default: the name the backend suggests)")
}

func runTemplateOptions(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	opts, err := app.invoices.TemplateOptions(cmd.Context())
	if err != nil {
		return explain(err)
	}
	if jsonOutput {
		return app.printer.JSON(opts)
	}

	sections := []struct {
		title string
		rows  [][]string
	}{
		{"Companies", rowsOf(opts.Companies, func(c invoicing.Company) []string { return []string{c.ID, c.Name} })},
		{"Products", rowsOf(opts.Products, func(p invoicing.Product) []string { return []string{p.ID, p.Name} })},
		{"Payment methods", rowsOf(opts.PaymentMethods, func(m invoicing.PaymentMethod) []string { return []string{m.ID, m.MethodName} })},
		{"Clients", rowsOf(opts.Clients, func(c invoicing.Client) []string { return []string{c.ID, c.LegalName} })},
	}
	for _, s := range sections {
		app.printer.Header(s.title)
		t := app.printer.NewTable([]string{"id", "name"})
		for _, r := range s.rows {
			t.AddRow(r)
		}
		if err := t.Render(); err != nil {
			return err
		}
	}
	return nil
}

func rowsOf[T any](items []T, row func(T) []string) [][]string {
	out := make([][]string, 0, len(items))
	for _, it := range items {
		out = append(out, row(it))
	}
	return out
}

func runTemplateDownload(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	f := cmd.Flags()
	company, _ := f.GetString("company")
	product, _ := f.GetString("product")
	method, _ := f.GetString("payment-method")
	clients, _ := f.GetStringArray("client")
	dateStr, _ := f.GetString("date")
	dueStr, _ := f.GetString("due-date")
	path, _ := f.GetString("output")

	req := invoicing.TemplateRequest{
		CompanyID:       company,
		ProductID:       product,
		PaymentMethodID: method,
		ClientIDs:       clients,
	}
	var err error
	if req.Date, err = parseDateFlag("date", dateStr); err != nil {
		return err
	}
	if req.DueDate, err = parseDateFlag("due-date", dueStr); err != nil {
		return err
	}

	var buf bytes.Buffer
	name, err := app.invoices.DownloadTemplate(cmd.Context(), req, &buf)
	if err != nil {
		return explain(err)
	}
	if path == "" {
		path = filepath.Base(name)
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return err
	}
	app.printer.Success("Wrote %s for %d clients", path, len(clients))
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := app.invoices.UploadWorkbook(cmd.Context(), args[0], f)
	if err != nil {
		return explain(err)
	}
	if jsonOutput {
		return app.printer.JSON(res)
	}
	app.printer.Success("%s (%d invoices)", res.Message, res.Count)
	return nil
}

func parseDateFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD", name)
	}
	return t, nil
}
