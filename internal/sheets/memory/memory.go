// Package memory is an in-process TransactionMirror for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"moneytrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]sheets.Row
	// order keeps first-append order, like rows in a sheet
	order []int64
}

var _ sheets.TransactionMirror = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[int64]sheets.Row{}}
}

func (s *Store) AppendTransaction(_ context.Context, row sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[row.ID]; !ok {
		s.order = append(s.order, row.ID)
	}
	s.rows[row.ID] = row
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return nil
	}
	delete(s.rows, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored rows in append order.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}

// IDs returns the mirrored IDs in ascending order.
func (s *Store) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
