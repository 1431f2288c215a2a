package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a process-local ledger guarding its totals with a mutex. It
// backs tests and acts as a fallback when no durable store is configured;
// totals do not survive a restart.
type Memory struct {
	mu     sync.Mutex
	totals map[string]int64
}

func NewMemory() *Memory {
	return &Memory{totals: make(map[string]int64)}
}

func (m *Memory) Increment(ctx context.Context, userID string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", ErrUnavailable)
	}
	if delta <= 0 {
		return 0, fmt.Errorf("%w: delta must be positive, got %d", ErrUnavailable, delta)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[userID] += delta
	return m.totals[userID], nil
}
