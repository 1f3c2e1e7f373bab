package guard

import (
	"context"
	"sync"
	"time"
)

// AttemptStore tracks signup attempt timestamps per key. The limiter is
// written against this interface so the attempt state can live in process
// memory or in a shared external store without changing the guard's logic.
type AttemptStore interface {
	// Append records one attempt at the given time under the key.
	Append(ctx context.Context, key string, at time.Time) error
	// Window returns how many attempts the key has at or after since, and
	// the oldest such attempt. ok is false when the key has no attempts in
	// the window.
	Window(ctx context.Context, key string, since time.Time) (count int, oldest time.Time, ok bool, err error)
	// Prune discards attempts older than cutoff and drops keys left empty.
	Prune(ctx context.Context, cutoff time.Time) error
}

// MemoryStore is the process-local AttemptStore. State is approximate and
// lost on restart; it is a soft deterrent, not a correctness guarantee.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory attempt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string][]time.Time)}
}

// Append records one attempt under the key.
func (s *MemoryStore) Append(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[key] = append(s.attempts[key], at)
	return nil
}

// Window counts attempts at or after since and reports the oldest of them.
func (s *MemoryStore) Window(_ context.Context, key string, since time.Time) (int, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		count  int
		oldest time.Time
	)
	for _, at := range s.attempts[key] {
		if at.Before(since) {
			continue
		}
		if count == 0 || at.Before(oldest) {
			oldest = at
		}
		count++
	}
	return count, oldest, count > 0, nil
}

// Prune discards attempts older than cutoff and removes keys with no
// remaining attempts.
func (s *MemoryStore) Prune(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, times := range s.attempts {
		kept := times[:0]
		for _, at := range times {
			if !at.Before(cutoff) {
				kept = append(kept, at)
			}
		}
		if len(kept) == 0 {
			delete(s.attempts, key)
			continue
		}
		s.attempts[key] = kept
	}
	return nil
}

// Len reports the number of tracked keys. Used by the pruner's debug logging.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
