package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/installments"
	ledgermem "gastos/internal/ledger/memory"
	sheetsmem "gastos/internal/sheets/memory"
)

func seed(t *testing.T, store *ledgermem.Store, sourceID string, n int, month time.Month) []core.LedgerEntry {
	t.Helper()
	pm := core.Cash
	if n > 1 {
		pm = core.Card
	}
	entries, err := installments.Expand(core.ExpenseIntent{
		Amount:        decimal.NewFromInt(int64(100 * n)),
		Category:      "Casa",
		Subcategory:   "Luz",
		Date:          core.NewDate(2024, month, 1),
		PaymentMethod: pm,
		Installments:  n,
		PaidBy:        "Tomi",
	}, sourceID)
	require.NoError(t, err)
	stored, err := store.InsertBatch(context.Background(), entries)
	require.NoError(t, err)
	return stored
}

func TestHandleEventCreatedAndDeleted(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror)

	seed(t, store, "a", 3, time.January)
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.EventCreated, "a", 3)))
	assert.Equal(t, []string{"a", "a", "a"}, mirror.SourceIDs())

	require.NoError(t, store.DeleteBySourceID(ctx, "a"))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.EventDeleted, "a", 3)))
	assert.Empty(t, mirror.SourceIDs())
}

func TestHandleEventSingleEntryDelete(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror)

	a := seed(t, store, "a", 1, time.January)
	seed(t, store, "b", 1, time.February)
	require.NoError(t, w.FullResync(ctx))
	require.NoError(t, store.DeleteByID(ctx, a[0].ID))

	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.EventDeleted, "a", 1)))
	assert.Equal(t, []string{"b"}, mirror.SourceIDs())
}

func TestHandleEventIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror)
	seed(t, store, "a", 2, time.March)

	ev := amqp.NewLedgerEvent(amqp.EventReplaced, "a", 2)
	require.NoError(t, w.HandleEvent(ctx, ev))
	require.NoError(t, w.HandleEvent(ctx, ev))
	assert.Len(t, mirror.Rows(), 2)
}

func TestFullResyncOrdersOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(store, mirror)
	seed(t, store, "late", 1, time.June)
	seed(t, store, "early", 1, time.February)

	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.EventResync, "", 0)))
	assert.Equal(t, []string{"early", "late"}, mirror.SourceIDs())
}

type failingMirror struct{ *sheetsmem.Mirror }

func (failingMirror) ReplaceGroup(context.Context, string, []core.LedgerEntry) error {
	return errors.New("quota exceeded")
}

func TestMirrorErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	store := ledgermem.New()
	w := NewMirrorWorker(store, failingMirror{sheetsmem.New()})
	seed(t, store, "a", 1, time.January)

	err := w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.EventCreated, "a", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	err = w.HandleEvent(ctx, &amqp.LedgerEvent{Type: "bogus"})
	assert.Error(t, err)
}

func TestScheduleResync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewMirrorWorker(ledgermem.New(), sheetsmem.New())

	_, err := w.ScheduleResync(ctx, "not a schedule")
	assert.Error(t, err)

	c, err := w.ScheduleResync(ctx, "@every 1h")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}
