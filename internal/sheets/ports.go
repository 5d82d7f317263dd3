// Package sheets mirrors the ledger into a spreadsheet, one row per entry.
package sheets

import (
	"context"

	"gastos/internal/core"
)

// Mirror keeps an external copy of the ledger in sync. It is a read model
// only; the ledger store stays the source of truth.
type Mirror interface {
	// ReplaceGroup writes the rows of one source group, replacing any
	// rows previously written for it.
	ReplaceGroup(ctx context.Context, sourceID string, entries []core.LedgerEntry) error
	// DeleteGroup removes every row of a source group. Unknown groups are a no-op.
	DeleteGroup(ctx context.Context, sourceID string) error
	// ReplaceAll rewrites the whole mirror from a ledger snapshot.
	ReplaceAll(ctx context.Context, entries []core.LedgerEntry) error
}
