// Package ledgertest holds the behaviour every ledger.Store must share.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/installments"
	"gastos/internal/ledger"
)

// Group expands a card plan of n installments under sourceID.
func Group(t *testing.T, sourceID, amount string, n int, date core.Date) []core.LedgerEntry {
	t.Helper()
	entries, err := installments.Expand(core.ExpenseIntent{
		Amount:        decimal.RequireFromString(amount),
		Category:      "Casa",
		Subcategory:   "Alquiler",
		Date:          date,
		PaymentMethod: core.Card,
		Installments:  n,
		PaidBy:        "Tomi",
		Description:   "plan",
	}, sourceID)
	require.NoError(t, err)
	return entries
}

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) ledger.Store) {
	ctx := context.Background()

	t.Run("insert assigns ids", func(t *testing.T) {
		s := open(t)
		stored, err := s.InsertBatch(ctx, Group(t, "a", "300", 3, core.NewDate(2024, time.November, 10)))
		require.NoError(t, err)
		require.Len(t, stored, 3)
		seen := map[string]bool{}
		for i, e := range stored {
			assert.NotEmpty(t, e.ID)
			assert.False(t, seen[e.ID])
			seen[e.ID] = true
			assert.Equal(t, i+1, e.InstallmentIndex)
			assert.False(t, e.CreatedAt.IsZero())
		}
	})

	t.Run("round trip keeps values", func(t *testing.T) {
		s := open(t)
		in := Group(t, "a", "100.01", 3, core.NewDate(2024, time.January, 31))
		_, err := s.InsertBatch(ctx, in)
		require.NoError(t, err)

		got, err := s.QueryBySourceID(ctx, "a")
		require.NoError(t, err)
		require.Len(t, got, 3)
		for i, e := range got {
			assert.True(t, e.Amount.Equal(in[i].Amount), "amount %s", e.Amount)
			assert.Equal(t, in[i].Date, e.Date)
			assert.Equal(t, in[i].Description, e.Description)
			assert.Equal(t, core.Card, e.PaymentMethod)
			assert.Equal(t, "Alquiler", e.Subcategory)
			assert.Equal(t, "Tomi", e.PaidBy)
			assert.Equal(t, 3, e.InstallmentTotal)
		}

		one, err := s.GetByID(ctx, got[1].ID)
		require.NoError(t, err)
		assert.Equal(t, 2, one.InstallmentIndex)
	})

	t.Run("query all newest first", func(t *testing.T) {
		s := open(t)
		_, err := s.InsertBatch(ctx, Group(t, "old", "10", 1, core.NewDate(2023, time.May, 1)))
		require.NoError(t, err)
		_, err = s.InsertBatch(ctx, Group(t, "new", "20", 2, core.NewDate(2024, time.May, 1)))
		require.NoError(t, err)

		all, err := s.QueryAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, core.NewDate(2024, time.June, 1), all[0].Date)
		assert.Equal(t, core.NewDate(2023, time.May, 1), all[2].Date)
	})

	t.Run("duplicate group rejected atomically", func(t *testing.T) {
		s := open(t)
		_, err := s.InsertBatch(ctx, Group(t, "a", "10", 1, core.NewDate(2024, time.May, 1)))
		require.NoError(t, err)
		_, err = s.InsertBatch(ctx, Group(t, "a", "30", 3, core.NewDate(2024, time.May, 1)))
		require.Error(t, err)

		all, err := s.QueryAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("replace group", func(t *testing.T) {
		s := open(t)
		_, err := s.InsertBatch(ctx, Group(t, "a", "300", 3, core.NewDate(2024, time.May, 1)))
		require.NoError(t, err)
		_, err = s.InsertBatch(ctx, Group(t, "b", "50", 1, core.NewDate(2024, time.May, 2)))
		require.NoError(t, err)

		replaced, err := s.ReplaceGroup(ctx, "a", Group(t, "a", "600", 6, core.NewDate(2024, time.June, 1)))
		require.NoError(t, err)
		assert.Len(t, replaced, 6)

		group, err := s.QueryBySourceID(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, group, 6)
		assert.Equal(t, core.NewDate(2024, time.June, 1), group[0].Date)

		other, err := s.QueryBySourceID(ctx, "b")
		require.NoError(t, err)
		assert.Len(t, other, 1)

		_, err = s.ReplaceGroup(ctx, "missing", Group(t, "missing", "1", 1, core.NewDate(2024, time.May, 1)))
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("delete by source id", func(t *testing.T) {
		s := open(t)
		_, err := s.InsertBatch(ctx, Group(t, "a", "300", 3, core.NewDate(2024, time.May, 1)))
		require.NoError(t, err)
		require.NoError(t, s.DeleteBySourceID(ctx, "a"))

		_, err = s.QueryBySourceID(ctx, "a")
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, s.DeleteBySourceID(ctx, "a"), core.ErrNotFound)
	})

	t.Run("delete by id", func(t *testing.T) {
		s := open(t)
		stored, err := s.InsertBatch(ctx, Group(t, "a", "10", 1, core.NewDate(2024, time.May, 1)))
		require.NoError(t, err)
		require.NoError(t, s.DeleteByID(ctx, stored[0].ID))

		_, err = s.GetByID(ctx, stored[0].ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.ErrorIs(t, s.DeleteByID(ctx, stored[0].ID), core.ErrNotFound)
		assert.ErrorIs(t, s.DeleteByID(ctx, "999999"), core.ErrNotFound)
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		s := open(t)
		_, err := s.InsertBatch(ctx, nil)
		assert.Error(t, err)
	})
}
