package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	records map[string]*Record
	mu      sync.Mutex
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Consume implements Store.
func (s *MemoryStore) Consume(_ context.Context, identity string, now time.Time, window time.Duration, maxRequests int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[identity]
	if !ok || now.After(rec.ResetAt) {
		s.records[identity] = &Record{
			Identity: identity,
			Count:    1,
			ResetAt:  now.Add(window),
		}
		return false, nil
	}

	if rec.Count >= maxRequests {
		return true, nil
	}

	rec.Count++
	return false, nil
}

// Prune drops records whose window ended before now.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if now.After(rec.ResetAt) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartJanitor prunes expired records every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Prune(now)
			}
		}
	}()
}
