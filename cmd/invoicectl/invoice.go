package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Invoice actions",
	Long: `Act on a single invoice.

Examples:
  invoicectl invoice paid inv-1
  invoicectl invoice debt inv-1
  invoicectl invoice email inv-1
  invoicectl invoice pdf inv-1 -o /tmp/inv-1.pdf`,
}

// invoiceAction builds a subcommand that calls one invoice action by id.
func invoiceAction(use, short, done string, call func(cmd *cobra.Command, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireSession(cmd); err != nil {
				return err
			}
			if err := call(cmd, args[0]); err != nil {
				return explain(err)
			}
			app.printer.Success(done, args[0])
			return nil
		},
	}
}

var invoicePDFCmd = &cobra.Command{
	Use:   "pdf <id>",
	Short: "Download the invoice PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicePDF,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.AddCommand(
		invoiceAction("paid", "Mark an invoice as paid", "Invoice %s marked as paid", func(cmd *cobra.Command, id string) error {
			return app.invoices.MarkAsPaid(cmd.Context(), id)
		}),
		invoiceAction("debt", "Mark an invoice as debt", "Invoice %s marked as debt", func(cmd *cobra.Command, id string) error {
			return app.invoices.MarkAsDebt(cmd.Context(), id)
		}),
		invoiceAction("email", "Email an invoice to its client", "Invoice %s sent", func(cmd *cobra.Command, id string) error {
			return app.invoices.SendEmail(cmd.Context(), id)
		}),
		invoicePDFCmd,
	)

	invoicePDFCmd.Flags().StringP("output", "o", "", "file to write (default: the name the backend suggests)")
}

func runInvoicePDF(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	var buf bytes.Buffer
	res, err := app.invoices.GeneratePDF(cmd.Context(), args[0], &buf)
	if err != nil {
		return explain(err)
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		path = filepath.Base(res.Filename)
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return err
	}
	app.printer.Success("Wrote %s (%d bytes)", path, res.Bytes)
	return nil
}

// writeFile creates parent directories as needed.
func writeFile(path string, data []byte) error {
	if path == "" || path == "." {
		return errors.New("no output file name")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
