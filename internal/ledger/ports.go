// Package ledger declares the persistence port for ledger entries.
package ledger

import (
	"context"
	"sort"

	"gastos/internal/core"
)

type (
	// Writer persists groups of entries. InsertBatch and ReplaceGroup are
	// all-or-nothing and return the entries with store-assigned ids.
	Writer interface {
		InsertBatch(ctx context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error)
		ReplaceGroup(ctx context.Context, sourceID string, entries []core.LedgerEntry) ([]core.LedgerEntry, error)
		DeleteBySourceID(ctx context.Context, sourceID string) error
		DeleteByID(ctx context.Context, id string) error
	}

	// Reader exposes snapshots. Unknown ids and source ids wrap core.ErrNotFound.
	Reader interface {
		// QueryAll returns every entry, newest date first.
		QueryAll(ctx context.Context) ([]core.LedgerEntry, error)
		// QueryBySourceID returns one group in installment order.
		QueryBySourceID(ctx context.Context, sourceID string) ([]core.LedgerEntry, error)
		GetByID(ctx context.Context, id string) (core.LedgerEntry, error)
	}

	Store interface {
		Reader
		Writer
		Close() error
	}

	// CategoryStore persists custom categories so they survive restarts.
	// Stores that cannot hold them simply do not implement it.
	CategoryStore interface {
		SaveCategory(ctx context.Context, name string) error
		ListCategories(ctx context.Context) ([]string, error)
	}
)

// SortNewestFirst orders entries by date descending, then source id and
// installment index so groups stay together and the order is deterministic.
func SortNewestFirst(entries []core.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.InstallmentIndex < b.InstallmentIndex
	})
}

// SortByInstallment orders a group by installment index.
func SortByInstallment(entries []core.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].InstallmentIndex < entries[j].InstallmentIndex
	})
}

// SortOldestFirst orders entries by date ascending with the same tie-breaks
// as SortNewestFirst.
func SortOldestFirst(entries []core.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date)
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.InstallmentIndex < b.InstallmentIndex
	})
}
