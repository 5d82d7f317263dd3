// Package commands implements the gastosctl command tree.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"gastos/internal/backend"
)

// Opener builds the backend a command runs against. It is called once per
// command invocation and the result's Cleanup runs when the command ends.
type Opener func(ctx context.Context) (*backend.BackendResult, error)

type rootOptions struct {
	open Opener
	json bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &rootOptions{open: open}
	rootCmd := &cobra.Command{
		Use:   "gastosctl",
		Short: "Household expense ledger for Tomi and Gabi",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		newAddCommand(opts),
		newEditCommand(opts),
		newDeleteCommand(opts),
		newListCommand(opts),
		newSummaryCommand(opts),
		newInsightsCommand(opts),
		newCategoriesCommand(opts),
		newImportCommand(opts),
	)
	return rootCmd
}

// withBackend opens the backend for the duration of fn.
func (o *rootOptions) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *backend.BackendResult) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if b.Cleanup == nil {
			return
		}
		if cerr := b.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, b)
}
