package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gastos/internal/backend"
)

func newCategoriesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show the category tree (custom categories are marked with *)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withBackend(cmd, func(_ context.Context, b *backend.BackendResult) error {
				nodes := b.Service.ListCategories()
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), nodes)
				}
				return printCategories(cmd.OutOrStdout(), nodes)
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Register a custom top-level category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				if err := b.Service.RegisterCategory(ctx, args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Registered category %q\n", args[0])
				return err
			})
		},
	})
	return cmd
}
