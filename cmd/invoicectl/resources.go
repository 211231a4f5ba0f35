package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"invoice-console/internal/dataprovider"
	"invoice-console/internal/invoicing"

	"github.com/spf13/cobra"
)

// maxColumns caps generic tables; use --json or get for the full record.
const maxColumns = 6

var listCmd = &cobra.Command{
	Use:     "list <resource>",
	Aliases: []string{"ls"},
	Short:   "List a backend resource",
	Long: `List clients, company, product, paymentMethod or invoice.

Invoices default to UNPAID unless a status filter is given.

Examples:
  invoicectl list clients
  invoicectl list invoice --filter status=PAID --sort -date
  invoicectl list product --filter price_gte=50 --page 2 --page-size 20
  invoicectl list company --all --json`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

var getCmd = &cobra.Command{
	Use:   "get <resource> <id>",
	Short: "Print one record as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}
		var rec json.RawMessage
		if err := app.dp.GetOne(cmd.Context(), args[0], args[1], &rec); err != nil {
			return explain(err)
		}
		return app.printer.JSON(rec)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <resource> <id>",
	Aliases: []string{"rm"},
	Short:   "Delete one record",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd); err != nil {
			return err
		}
		if err := app.dp.Delete(cmd.Context(), args[0], args[1], nil); err != nil {
			return explain(err)
		}
		app.printer.Success("Deleted %s %s", args[0], args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, getCmd, deleteCmd)

	listCmd.Flags().Int("page", dataprovider.DefaultPage, "page number, 1-based")
	listCmd.Flags().Int("page-size", dataprovider.DefaultPageSize, "records per page")
	listCmd.Flags().Bool("all", false, "fetch every record")
	listCmd.Flags().StringArray("sort", nil, "sort by field, field:desc or -field (repeatable)")
	listCmd.Flags().StringArray("filter", nil, "filter as field=value, field_gte=value, field_like=value ... (repeatable)")
}

func listParams(cmd *cobra.Command) (dataprovider.ListParams, error) {
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("page-size")
	all, _ := cmd.Flags().GetBool("all")
	sorts, _ := cmd.Flags().GetStringArray("sort")
	filters, _ := cmd.Flags().GetStringArray("filter")

	p := dataprovider.ListParams{Pagination: dataprovider.Pagination{Current: page, PageSize: size, Off: all}}
	for _, s := range sorts {
		sorter, err := dataprovider.ParseSorter(s)
		if err != nil {
			return p, err
		}
		p.Sorters = append(p.Sorters, sorter)
	}
	for _, f := range filters {
		filter, err := dataprovider.ParseFilter(f)
		if err != nil {
			return p, err
		}
		p.Filters = append(p.Filters, filter)
	}
	return p, nil
}

func runList(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd); err != nil {
		return err
	}
	p, err := listParams(cmd)
	if err != nil {
		return err
	}

	if args[0] == invoicing.ResourceInvoice {
		rows, total, err := app.invoices.ListInvoices(cmd.Context(), p)
		if err != nil {
			return explain(err)
		}
		if jsonOutput {
			return app.printer.JSON(rows)
		}
		return printInvoices(rows, total)
	}

	var rows []map[string]any
	total, err := app.dp.GetList(cmd.Context(), args[0], p, &rows)
	if err != nil {
		return explain(err)
	}
	if jsonOutput {
		return app.printer.JSON(rows)
	}
	return printRecords(rows, total)
}

func printInvoices(rows []invoicing.Invoice, total int) error {
	t := app.printer.NewTable([]string{"id", "client", "status", "date", "due", "subtotal"})
	for _, inv := range rows {
		t.AddRow([]string{
			app.printer.Bold(inv.ID),
			inv.ClientID,
			app.printer.StatusBadge(string(inv.Status)),
			formatDate(inv.Date),
			formatDate(inv.DueDate),
			strconv.FormatFloat(inv.Subtotal, 'f', 2, 64),
		})
	}
	if err := t.Render(); err != nil {
		return err
	}
	app.printer.Info("%d of %d invoices", len(rows), total)
	return nil
}

// printRecords renders scalar fields, id first, then alphabetically.
func printRecords(rows []map[string]any, total int) error {
	cols := columns(rows)
	t := app.printer.NewTable(cols)
	for _, r := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = formatValue(r[c])
		}
		t.AddRow(line)
	}
	if err := t.Render(); err != nil {
		return err
	}
	app.printer.Info("%d of %d records", len(rows), total)
	return nil
}

func columns(rows []map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, r := range rows {
		for k, v := range r {
			if k == "id" || seen[k] {
				continue
			}
			switch v.(type) {
			case map[string]any, []any:
				continue
			}
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	cols := append([]string{"id"}, keys...)
	if len(cols) > maxColumns {
		cols = cols[:maxColumns]
	}
	return cols
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
