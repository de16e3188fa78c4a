package store

import (
	"context"
	"sync"
)

// MemoryGroup keeps sheets in process memory. Used for dry runs and tests.
type MemoryGroup struct {
	mu     sync.Mutex
	sheets map[string]*MemorySheet
}

func NewMemoryGroup() *MemoryGroup {
	return &MemoryGroup{sheets: map[string]*MemorySheet{}}
}

func (g *MemoryGroup) Sheet(name string) Sheet { return g.MemorySheet(name) }

func (g *MemoryGroup) MemorySheet(name string) *MemorySheet {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sheets[name]
	if !ok {
		s = &MemorySheet{}
		g.sheets[name] = s
	}
	return s
}

func (g *MemoryGroup) Close() error { return nil }

type MemorySheet struct {
	mu   sync.Mutex
	rows [][]string

	// Reads and Appends count calls. AppendErr, when set, fails appends.
	Reads     int
	Appends   int
	AppendErr error
}

func (s *MemorySheet) ReadAll(_ context.Context) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	return copyRows(s.rows), nil
}

func (s *MemorySheet) AppendRows(_ context.Context, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Appends++
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.rows = append(s.rows, copyRows(rows)...)
	return nil
}

// Rows returns a copy of the stored values.
func (s *MemorySheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRows(s.rows)
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
