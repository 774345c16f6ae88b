package cooldown

import (
	"context"
	"sync"
	"time"
)

// pruneThreshold bounds the map before stale keys are swept.
const pruneThreshold = 1024

// MemoryStore keeps attempt times in process memory. State is lost on
// restart.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

func (m *MemoryStore) Acquire(_ context.Context, key string, now time.Time, window time.Duration) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.last[key]; ok {
		elapsed := now.Sub(prev)
		if elapsed < window {
			remaining := window - elapsed
			if remaining > window {
				// Clock stepped backwards.
				remaining = window
			}
			return false, remaining, nil
		}
	}

	m.last[key] = now
	if len(m.last) > pruneThreshold {
		m.prune(now, window)
	}
	return true, 0, nil
}

// prune drops keys whose window has fully elapsed.
func (m *MemoryStore) prune(now time.Time, window time.Duration) {
	for k, t := range m.last {
		if now.Sub(t) >= window {
			delete(m.last, k)
		}
	}
}

// Len reports how many keys are tracked.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.last)
}
