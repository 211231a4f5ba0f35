package main

import (
	"strconv"
	"time"

	"invoice-console/internal/invoicing"
	"invoice-console/internal/reporting"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Receivables reports",
}

var receivablesCmd = &cobra.Command{
	Use:   "receivables",
	Short: "Invoiced, paid and outstanding amounts over a date range",
	Long: `Summarize invoices dated in [from, to) and list open balances per client.

Examples:
  invoicectl report receivables                       # current month
  invoicectl report receivables --from 2026-01-01 --to 2026-04-01 --as-of 2026-03-15
  invoicectl report receivables --client cl-1 --json`,
	Args: cobra.NoArgs,
	RunE: runReceivables,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(receivablesCmd)

	receivablesCmd.Flags().String("from", "", "first invoice date, YYYY-MM-DD (default first day of this month)")
	receivablesCmd.Flags().String("to", "", "end of range, exclusive, YYYY-MM-DD (default first day of next month)")
	receivablesCmd.Flags().String("client", "", "only this client id")
	receivablesCmd.Flags().String("as-of", "", "overdue reference date, YYYY-MM-DD (default now)")
}

func runReceivables(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	req := reporting.ReceivablesRequest{Range: reporting.TimeRange{From: start, To: start.AddDate(0, 1, 0)}}
	req.ClientID, _ = cmd.Flags().GetString("client")

	for flag, dst := range map[string]*time.Time{"from": &req.Range.From, "to": &req.Range.To, "as-of": &req.AsOf} {
		v, _ := cmd.Flags().GetString(flag)
		t, err := parseDateFlag(flag, v)
		if err != nil {
			return err
		}
		if !t.IsZero() {
			*dst = t
		}
	}

	summary, balances, err := app.reports.Report(cmd.Context(), req)
	if err != nil {
		return explain(err)
	}
	if jsonOutput {
		return app.printer.JSON(map[string]any{"summary": summary, "clients": balances})
	}

	p := app.printer
	p.Header("Receivables " + formatDate(req.Range.From) + " to " + formatDate(req.Range.To))
	t := p.NewTable([]string{"", "count", "amount"})
	t.AddRow([]string{"invoiced", strconv.Itoa(summary.InvoiceCount), money(summary.InvoicedMinor)})
	t.AddRow([]string{"paid", strconv.Itoa(summary.PaidCount), money(summary.PaidMinor)})
	t.AddRow([]string{"outstanding", strconv.Itoa(summary.UnpaidCount + summary.DebtCount), money(summary.OutstandingMinor)})
	t.AddRow([]string{"overdue", strconv.Itoa(summary.OverdueCount), money(summary.OverdueMinor)})
	if err := t.Render(); err != nil {
		return err
	}

	if len(balances) == 0 {
		return nil
	}
	p.Header("Open balances")
	bt := p.NewTable([]string{"client", "open", "overdue", "outstanding", "oldest due"})
	for _, b := range balances {
		bt.AddRow([]string{b.ClientID, strconv.Itoa(b.OpenInvoices), strconv.Itoa(b.OverdueCount), money(b.OutstandingMinor), formatDate(b.OldestDue)})
	}
	return bt.Render()
}

func money(minor int64) string {
	return strconv.FormatFloat(invoicing.FromMinor(minor), 'f', 2, 64)
}
