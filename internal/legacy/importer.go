package legacy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/taxonomy"
)

// Result summarizes an import run.
type Result struct {
	Imported int     `json:"imported"` // groups written
	Skipped  int     `json:"skipped"`  // groups already present
	Entries  int     `json:"entries"`  // entries written
	Issues   []Issue `json:"issues,omitempty"`
}

// RegisterFunc adds a custom top-level category.
type RegisterFunc func(ctx context.Context, name string) error

// Importer writes parsed groups into a ledger store. Re-running an import is
// safe: groups whose source id is already stored are skipped.
type Importer struct {
	store    ledger.Store
	taxonomy *taxonomy.Taxonomy
	register RegisterFunc
}

// NewImporter builds an importer. With a taxonomy, groups whose category is
// unknown are registered through register (when set) or skipped, and groups
// with an invalid subcategory are skipped. A category is registered only for
// a group that would then import.
func NewImporter(store ledger.Store, tx *taxonomy.Taxonomy, register RegisterFunc) *Importer {
	return &Importer{store: store, taxonomy: tx, register: register}
}

func (im *Importer) Import(ctx context.Context, groups []Group) (Result, error) {
	return im.run(ctx, groups, false)
}

// Plan reports what Import would do without writing anything. Unknown
// categories are registered on a copy of the taxonomy only.
func (im *Importer) Plan(ctx context.Context, groups []Group) (Result, error) {
	dry := &Importer{store: im.store}
	if im.taxonomy != nil {
		dry.taxonomy = im.taxonomy.Clone()
		if im.register != nil {
			dry.register = func(_ context.Context, name string) error {
				return dry.taxonomy.RegisterCustom(name)
			}
		}
	}
	return dry.run(ctx, groups, true)
}

func (im *Importer) run(ctx context.Context, groups []Group, dryRun bool) (Result, error) {
	var res Result
	for _, g := range groups {
		if len(g.Entries) == 0 {
			continue
		}
		if err := im.checkCategory(ctx, g.Entries[0]); err != nil {
			res.Issues = append(res.Issues, Issue{Row: -1, Key: g.Key, Message: err.Error()})
			continue
		}

		_, err := im.store.QueryBySourceID(ctx, g.SourceID)
		switch {
		case err == nil:
			res.Skipped++
			continue
		case !errors.Is(err, core.ErrNotFound):
			return res, core.WrapStore("query group", err)
		}

		if dryRun {
			res.Imported++
			res.Entries += len(g.Entries)
			continue
		}
		stored, err := im.store.InsertBatch(ctx, g.Entries)
		if err != nil {
			return res, core.WrapStore("insert", err)
		}
		res.Imported++
		res.Entries += len(stored)
	}
	slog.InfoContext(ctx, "Legacy import finished",
		"dry_run", dryRun,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"entries", res.Entries,
		"issues", len(res.Issues))
	return res, nil
}

func (im *Importer) checkCategory(ctx context.Context, e core.LedgerEntry) error {
	if im.taxonomy == nil {
		return nil
	}
	if !im.taxonomy.Has(e.Category) {
		if im.register == nil {
			return fmt.Errorf("unknown category %q", e.Category)
		}
		if strings.TrimSpace(e.Subcategory) != "" {
			return fmt.Errorf("unknown category %q with subcategory %q", e.Category, e.Subcategory)
		}
		if err := im.register(ctx, e.Category); err != nil {
			return fmt.Errorf("register category %q: %w", e.Category, err)
		}
	}
	return im.taxonomy.Validate(e.Category, e.Subcategory)
}
