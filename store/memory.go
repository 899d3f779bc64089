package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stoicbot/types"
)

// MemoryStore is an in-memory Store used by tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	counter int
	runs    map[string][]types.RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]types.RunRecord)}
}

func (m *MemoryStore) ReadCounter(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter, nil
}

func (m *MemoryStore) WriteCounterIfUnchanged(ctx context.Context, old, next int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counter != old {
		return fmt.Errorf("%w: have %d, expected %d", ErrCounterConflict, m.counter, old)
	}
	m.counter = next
	return nil
}

func (m *MemoryStore) AppendRun(ctx context.Context, rec types.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := DayKey(rec.StartTime)
	m.runs[key] = append(m.runs[key], rec)
	return nil
}

func (m *MemoryStore) RunsForDay(ctx context.Context, day time.Time) ([]types.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.RunRecord(nil), m.runs[DayKey(day)]...), nil
}
