package history

import (
	"context"
	"sync"
	"time"
)

// defaultMemCapacity bounds the in-memory attempt ring.
const defaultMemCapacity = 1000

// Compile-time interface assertion.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store] holding the most recent attempts in a
// bounded ring. Attempts are lost on restart. Safe for concurrent use.
type MemStore struct {
	mu       sync.Mutex
	attempts []Attempt
	capacity int
	nextID   int64
}

// NewMemStore creates a MemStore keeping at most capacity attempts. A
// capacity of 0 or less uses the default of 1000.
func NewMemStore(capacity int) *MemStore {
	if capacity <= 0 {
		capacity = defaultMemCapacity
	}
	return &MemStore{capacity: capacity, nextID: 1}
}

// Write implements [Store]. The oldest attempt is evicted once the ring is
// full.
func (s *MemStore) Write(ctx context.Context, a Attempt) (Attempt, error) {
	if err := ctx.Err(); err != nil {
		return Attempt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextID
	s.nextID++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	s.attempts = append(s.attempts, a)
	if len(s.attempts) > s.capacity {
		s.attempts = s.attempts[len(s.attempts)-s.capacity:]
	}
	return a, nil
}

// Recent implements [Store].
func (s *MemStore) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.attempts)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Attempt, 0, n)
	for i := len(s.attempts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.attempts[i])
	}
	return out, nil
}

// Ping implements [Store]. A MemStore is always reachable.
func (s *MemStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements [Store]. It is a no-op.
func (s *MemStore) Close() {}
