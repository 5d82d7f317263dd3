// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[string]core.LedgerEntry
	groups map[string][]string // source id -> entry ids in installment order
	now    func() time.Time

	categories []string
}

var (
	_ ledger.Store         = (*Store)(nil)
	_ ledger.CategoryStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		rows:   make(map[string]core.LedgerEntry),
		groups: make(map[string][]string),
		now:    time.Now,
	}
}

// InsertBatch stores every entry or none of them.
func (s *Store) InsertBatch(_ context.Context, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	if err := checkBatch(entries); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, ok := s.groups[e.SourceID]; ok {
			return nil, fmt.Errorf("source id %s already stored", e.SourceID)
		}
	}
	return s.insertLocked(entries), nil
}

func (s *Store) insertLocked(entries []core.LedgerEntry) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(entries))
	created := s.now().UTC()
	for _, e := range entries {
		s.nextID++
		e.ID = strconv.FormatInt(s.nextID, 10)
		e.CreatedAt = created
		s.rows[e.ID] = e
		s.groups[e.SourceID] = append(s.groups[e.SourceID], e.ID)
		out = append(out, e)
	}
	return out
}

// ReplaceGroup swaps the entries of sourceID for entries under one lock.
func (s *Store) ReplaceGroup(_ context.Context, sourceID string, entries []core.LedgerEntry) ([]core.LedgerEntry, error) {
	if err := checkBatch(entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.SourceID != sourceID {
			return nil, fmt.Errorf("entry source id %s does not match %s", e.SourceID, sourceID)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[sourceID]; !ok {
		return nil, fmt.Errorf("source id %s: %w", sourceID, core.ErrNotFound)
	}
	s.deleteGroupLocked(sourceID)
	return s.insertLocked(entries), nil
}

func (s *Store) QueryAll(_ context.Context) ([]core.LedgerEntry, error) {
	s.mu.RLock()
	out := make([]core.LedgerEntry, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e)
	}
	s.mu.RUnlock()
	ledger.SortNewestFirst(out)
	return out, nil
}

func (s *Store) QueryBySourceID(_ context.Context, sourceID string) ([]core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.groups[sourceID]
	if !ok {
		return nil, fmt.Errorf("source id %s: %w", sourceID, core.ErrNotFound)
	}
	out := make([]core.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.rows[id])
	}
	ledger.SortByInstallment(out)
	return out, nil
}

func (s *Store) GetByID(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rows[id]
	if !ok {
		return core.LedgerEntry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) DeleteBySourceID(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[sourceID]; !ok {
		return fmt.Errorf("source id %s: %w", sourceID, core.ErrNotFound)
	}
	s.deleteGroupLocked(sourceID)
	return nil
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	delete(s.rows, id)
	ids := s.groups[e.SourceID]
	kept := ids[:0]
	for _, other := range ids {
		if other != id {
			kept = append(kept, other)
		}
	}
	if len(kept) == 0 {
		delete(s.groups, e.SourceID)
	} else {
		s.groups[e.SourceID] = kept
	}
	return nil
}

func (s *Store) deleteGroupLocked(sourceID string) {
	for _, id := range s.groups[sourceID] {
		delete(s.rows, id)
	}
	delete(s.groups, sourceID)
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Store) Close() error { return nil }

func checkBatch(entries []core.LedgerEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("empty batch")
	}
	for i, e := range entries {
		if e.SourceID == "" {
			return fmt.Errorf("entry %d: missing source id", i)
		}
	}
	return nil
}

// SaveCategory records a custom category name once.
func (s *Store) SaveCategory(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c == name {
			return nil
		}
	}
	s.categories = append(s.categories, name)
	return nil
}

// ListCategories returns custom categories in registration order.
func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.categories...), nil
}
