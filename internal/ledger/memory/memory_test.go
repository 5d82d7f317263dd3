package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/ledger/ledgertest"
)

func TestStoreContract(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return New() })
}

func TestConcurrentInserts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := string(rune('A'+i%26)) + string(rune('a'+i/26))
			_, err := s.InsertBatch(context.Background(), ledgertest.Group(t, src, "30", 3, core.NewDate(2024, time.May, 1)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 150, s.Len())
}

func TestDeleteLastEntryDropsGroup(t *testing.T) {
	ctx := context.Background()
	s := New()
	stored, err := s.InsertBatch(ctx, ledgertest.Group(t, "a", "10", 1, core.NewDate(2024, time.May, 1)))
	require.NoError(t, err)
	require.NoError(t, s.DeleteByID(ctx, stored[0].ID))

	_, err = s.QueryBySourceID(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
