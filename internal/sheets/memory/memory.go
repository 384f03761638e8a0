// Package memory is an in-memory stand-in for the spreadsheet mirror,
// used in tests and when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]ports.Row
}

var (
	_ ports.EntryUpserter = (*Store)(nil)
	_ ports.EntryDeleter  = (*Store)(nil)
	_ ports.EntryLister   = (*Store)(nil)
)

func New() *Store {
	return &Store{rows: make(map[int64]ports.Row)}
}

// Upsert stores the entry's row and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, e core.Entry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = ports.Row{
		EntryID:    e.ID,
		Date:       e.Date.Key(),
		Revenue:    e.Revenue.Units(),
		Expense:    e.Expense.Units(),
		ProfitLoss: e.ProfitLoss.Units(),
	}
	return fmt.Sprintf("mem:%d", e.ID), nil
}

func (s *Store) Delete(_ context.Context, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, entryID)
	return nil
}

// ListRows returns the mirrored rows ordered by entry id.
func (s *Store) ListRows(_ context.Context) ([]ports.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}
