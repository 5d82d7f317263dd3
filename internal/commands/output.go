package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gastos/internal/core"
	"gastos/internal/insights"
	"gastos/internal/report"
	"gastos/internal/taxonomy"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printEntries(w io.Writer, entries []core.LedgerEntry) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tMETHOD\tPAID BY\tINSTALLMENT\tDESCRIPTION\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.ID, e.Date, e.Ref().Label(), core.FormatAmount(e.Amount), e.PaymentMethod,
			e.PaidBy, e.InstallmentIndex, e.InstallmentTotal, e.Description, e.SourceID)
	}
	return tw.Flush()
}

func printAggregate(w io.Writer, agg report.Aggregate) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Period:\t%s\n", describeFilter(agg.Filter))
	fmt.Fprintf(tw, "Total:\t%s\n", core.FormatAmount(agg.Total))
	fmt.Fprintf(tw, "Entries:\t%d\n", agg.Count)
	for _, p := range agg.Payers() {
		fmt.Fprintf(tw, "Paid by %s:\t%s\n", p, core.FormatAmount(agg.ByPayer[p]))
	}
	if len(agg.ByCategory) > 0 {
		fmt.Fprintln(tw, "\nCATEGORY\tAMOUNT\tSHARE")
		for _, c := range agg.ByCategory {
			share := report.Share(c.Amount, agg.Total).Mul(hundred).StringFixed(1)
			fmt.Fprintf(tw, "%s\t%s\t%s%%\n", c.Name, core.FormatAmount(c.Amount), share)
		}
	}
	if len(agg.MonthlySeries) == 12 {
		fmt.Fprintf(tw, "\nMONTH (%d)\tAMOUNT\n", agg.SeriesYear)
		for i, v := range agg.MonthlySeries {
			fmt.Fprintf(tw, "%s\t%s\n", time.Month(i+1).String()[:3], core.FormatAmount(v))
		}
	}
	return tw.Flush()
}

func printInsights(w io.Writer, ins []insights.Insight) error {
	if len(ins) == 0 {
		_, err := fmt.Fprintln(w, "No spending in this period.")
		return err
	}
	for _, in := range ins {
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", in.Severity, in.Title, in.Text); err != nil {
			return err
		}
	}
	return nil
}

func printCategories(w io.Writer, nodes []taxonomy.Node) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tSUBCATEGORIES")
	for _, n := range nodes {
		name := n.Name
		if n.Custom {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, strings.Join(n.Subcategories, ", "))
	}
	return tw.Flush()
}

func describeFilter(f report.Filter) string {
	var s string
	switch f.Mode {
	case report.ModeMonth:
		s = fmt.Sprintf("%s %d", f.Month, f.Year)
	case report.ModeYear:
		s = fmt.Sprintf("%d", f.Year)
	default:
		s = "all time"
	}
	if f.PaymentMethod != "" {
		s += " (" + string(f.PaymentMethod) + ")"
	}
	return s
}
