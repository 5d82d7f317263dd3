// Package memory is an in-process sheets.Mirror used in development and tests.
package memory

import (
	"context"
	"sync"

	"gastos/internal/core"
	"gastos/internal/sheets"
)

// Mirror keeps mirror rows in memory, header included.
type Mirror struct {
	mu   sync.Mutex
	rows [][]any
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: [][]any{sheets.Header}}
}

func (m *Mirror) ReplaceGroup(_ context.Context, sourceID string, entries []core.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = sheets.SpliceGroup(m.rows, sourceID, sheets.EncodeRows(entries))
	return nil
}

func (m *Mirror) DeleteGroup(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = sheets.SpliceGroup(m.rows, sourceID, nil)
	return nil
}

func (m *Mirror) ReplaceAll(_ context.Context, entries []core.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append([][]any{sheets.Header}, sheets.EncodeRows(entries)...)
	return nil
}

// Rows returns a copy of the data rows, header excluded.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, 0, len(m.rows))
	for _, row := range m.rows[1:] {
		out = append(out, append([]any(nil), row...))
	}
	return out
}

// SourceIDs lists the source id of every data row in sheet order.
func (m *Mirror) SourceIDs() []string {
	rows := m.Rows()
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = sheets.SourceIDOf(row)
	}
	return out
}
