package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// MemoryAccumulationStore keeps relief usage counters in process memory.
// Counters are dropped once their period has ended. It does not share state
// across instances.
type MemoryAccumulationStore struct {
	mu       sync.Mutex
	counters map[string]relief.Usage
	now      func() time.Time
}

var _ relief.AccumulationStore = (*MemoryAccumulationStore)(nil)

// NewMemoryAccumulationStore creates an empty store
func NewMemoryAccumulationStore() *MemoryAccumulationStore {
	return &MemoryAccumulationStore{
		counters: make(map[string]relief.Usage),
		now:      time.Now,
	}
}

// WithClock overrides the time source used for period expiry
func (s *MemoryAccumulationStore) WithClock(now func() time.Time) *MemoryAccumulationStore {
	s.now = now
	return s
}

func (s *MemoryAccumulationStore) current(key relief.AccumulationKey) (relief.Usage, bool) {
	id := key.String()
	u, ok := s.counters[id]
	if ok && !u.Key.PeriodEnd.IsZero() && !s.now().Before(u.Key.PeriodEnd) {
		delete(s.counters, id)
		return relief.Usage{}, false
	}
	return u, ok
}

// Usage returns the counter for key
func (s *MemoryAccumulationStore) Usage(_ context.Context, key relief.AccumulationKey, cur valueobject.Currency) (relief.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.current(key); ok {
		return u, nil
	}
	return relief.Usage{Key: key, Total: valueobject.Zero(cur)}, nil
}

// Record adds amount to the counter for key
func (s *MemoryAccumulationStore) Record(_ context.Context, key relief.AccumulationKey, amount valueobject.Money) (relief.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.current(key)
	if !ok {
		u = relief.Usage{Key: key, Total: valueobject.Zero(amount.Currency())}
	}
	total, err := u.Total.Add(amount)
	if err != nil {
		return relief.Usage{}, fmt.Errorf("accumulation %s: %w", key, err)
	}
	u.Total = total
	u.Shipments++
	s.counters[key.String()] = u
	return u, nil
}

// Len returns the number of live counters
func (s *MemoryAccumulationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// PurgeExpired drops counters whose period ended before cutoff. Counters that
// are never read again would otherwise stay in memory.
func (s *MemoryAccumulationStore) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, u := range s.counters {
		if !u.Key.PeriodEnd.IsZero() && u.Key.PeriodEnd.Before(cutoff) {
			delete(s.counters, id)
			n++
		}
	}
	return n, nil
}
