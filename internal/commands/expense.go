package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gastos/internal/backend"
	"gastos/internal/core"
	"gastos/internal/services"
)

type intentFlags struct {
	amount       string
	category     string
	subcategory  string
	date         string
	method       string
	installments int
	paidBy       string
	description  string
}

func (f *intentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 1234.50 or 1.234,50 (required)")
	cmd.Flags().StringVar(&f.category, "category", "", `category, or "Category - Subcategory" (required)`)
	cmd.Flags().StringVar(&f.subcategory, "sub", "", "subcategory")
	cmd.Flags().StringVar(&f.date, "date", "", "purchase date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.method, "method", "cash", "payment method: cash, debit, card or transfer")
	cmd.Flags().IntVar(&f.installments, "installments", 1, "number of monthly installments (card only)")
	cmd.Flags().StringVar(&f.paidBy, "paid-by", "", "who paid (required)")
	cmd.Flags().StringVar(&f.description, "description", "", "free text description")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("paid-by")
}

func (f *intentFlags) intent(now time.Time) (core.ExpenseIntent, error) {
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return core.ExpenseIntent{}, &core.ValidationError{Field: "amount", Message: fmt.Sprintf("invalid amount %q", f.amount), Err: err}
	}
	date := core.DateOf(now)
	if f.date != "" {
		if date, err = core.ParseDate(f.date); err != nil {
			return core.ExpenseIntent{}, err
		}
	}
	method, err := core.ParsePaymentMethod(f.method)
	if err != nil {
		return core.ExpenseIntent{}, err
	}
	ref := core.CategoryRef{Category: f.category, Subcategory: f.subcategory}
	if f.subcategory == "" {
		ref = core.ParseLabel(f.category)
	}
	return core.ExpenseIntent{
		Amount:        amount,
		Category:      ref.Category,
		Subcategory:   ref.Subcategory,
		Date:          date,
		PaymentMethod: method,
		Installments:  f.installments,
		PaidBy:        f.paidBy,
		Description:   f.description,
	}, nil
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var flags intentFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense, expanding card installments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			intent, err := flags.intent(time.Now())
			if err != nil {
				return err
			}
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				sub, err := b.Service.SubmitExpense(ctx, intent)
				if err != nil {
					return err
				}
				return opts.printSubmission(cmd, sub)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newEditCommand(opts *rootOptions) *cobra.Command {
	var flags intentFlags
	cmd := &cobra.Command{
		Use:   "edit SOURCE_ID",
		Short: "Replace every entry of an expense with a re-expanded version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			intent, err := flags.intent(time.Now())
			if err != nil {
				return err
			}
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				sub, err := b.Service.UpdateExpense(ctx, args[0], intent)
				if err != nil {
					return err
				}
				return opts.printSubmission(cmd, sub)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REF",
		Short: "Delete an entry by id, or a whole expense by source id",
		Long: "Deleting the id of a single-payment entry removes that entry. Deleting the id of\n" +
			"an installment removes the whole plan. Any other ref is treated as a source id.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				del, err := b.Service.DeleteExpense(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), del)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries of %s\n", del.Entries, del.SourceID)
				return err
			})
		},
	}
}

func (o *rootOptions) printSubmission(cmd *cobra.Command, sub services.Submission) error {
	if o.json {
		return writeJSON(cmd.OutOrStdout(), sub)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d entries)\n", sub.SourceID, len(sub.Entries))
	return printEntries(cmd.OutOrStdout(), sub.Entries)
}
