package store

import (
	"context"
	"slices"
	"sync"
)

// Memory keeps results in process. Used when no database is configured.
type Memory struct {
	mu      sync.Mutex
	results []GameResult
	closed  bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SaveResult(_ context.Context, r GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.results = append(m.results, r)
	return nil
}

func (m *Memory) RecentResults(_ context.Context, limit int) ([]GameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	out := slices.Clone(m.results)
	slices.SortStableFunc(out, func(a, b GameResult) int { return b.CompletedAt.Compare(a.CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
