package commands

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"gastos/internal/backend"
	"gastos/internal/core"
	"gastos/internal/report"
)

var hundred = decimal.NewFromInt(100)

type filterFlags struct {
	mode   string
	year   string
	month  string
	method string
}

func (f *filterFlags) register(cmd *cobra.Command, defaultMode report.Mode) {
	cmd.Flags().StringVar(&f.mode, "mode", string(defaultMode), "period: month, year or all")
	cmd.Flags().StringVar(&f.year, "year", "", "year (default current)")
	cmd.Flags().StringVar(&f.month, "month", "", "month 1-12 (default current)")
	cmd.Flags().StringVar(&f.method, "method", "all", "payment method filter")
}

func (f *filterFlags) filter(now time.Time) (report.Filter, error) {
	return report.ParseFilter(f.mode, f.year, f.month, f.method, now)
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := flags.filter(time.Now())
			if err != nil {
				return err
			}
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				entries, err := b.Service.ListEntries(ctx)
				if err != nil {
					return err
				}
				out := make([]core.LedgerEntry, 0, len(entries))
				for _, e := range entries {
					if f.Matches(e) {
						out = append(out, e)
					}
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				return printEntries(cmd.OutOrStdout(), out)
			})
		},
	}
	flags.register(cmd, report.ModeAllTime)
	return cmd
}

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals by payer and category for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := flags.filter(time.Now())
			if err != nil {
				return err
			}
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				agg, err := b.Service.GetAggregate(ctx, f)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), agg.Summary())
				}
				return printAggregate(cmd.OutOrStdout(), agg)
			})
		},
	}
	flags.register(cmd, report.ModeMonth)
	return cmd
}

func newInsightsCommand(opts *rootOptions) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Observations about who paid and where the money went",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := flags.filter(time.Now())
			if err != nil {
				return err
			}
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				agg, err := b.Service.GetAggregate(ctx, f)
				if err != nil {
					return err
				}
				ins := b.Service.GetInsights(agg)
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), ins)
				}
				return printInsights(cmd.OutOrStdout(), ins)
			})
		},
	}
	flags.register(cmd, report.ModeMonth)
	return cmd
}
