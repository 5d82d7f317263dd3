package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gastos/internal/backend"
	"gastos/internal/legacy"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON export of the previous app",
		Long: "Reads a JSON array exported from the previous app (browser storage or database rows).\n" +
			"Installment rows are regrouped into plans. Importing the same file twice is a no-op.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open export: %w", err)
			}
			defer f.Close()

			groups, issues, err := legacy.Parse(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return opts.withBackend(cmd, func(ctx context.Context, b *backend.BackendResult) error {
				im := legacy.NewImporter(b.Store, b.Taxonomy, b.Service.RegisterCategory)
				run := im.Import
				if dryRun {
					run = im.Plan
				}
				res, err := run(ctx, groups)
				if err != nil {
					return err
				}
				res.Issues = append(issues, res.Issues...)
				return printImport(out, opts.json, res, dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
	return cmd
}

func printImport(w io.Writer, asJSON bool, res legacy.Result, dryRun bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	fmt.Fprintf(w, "%s %d expenses (%d entries), skipped %d already present\n", verb, res.Imported, res.Entries, res.Skipped)
	for _, is := range res.Issues {
		fmt.Fprintf(w, "  ! %s\n", is)
	}
	return nil
}
