package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	val     string
	expires time.Time
}

// Memory is the in-process Store. Expired entries are dropped lazily on
// access and swept by a background loop, so the map stays bounded.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory() *Memory {
	m := &Memory{entries: make(map[string]entry)}
	go m.sweep()
	return m
}

func (m *Memory) Put(ctx context.Context, key, val string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{val: val, expires: time.Now().Add(ttl)}
	return nil
}

func (m *Memory) Add(ctx context.Context, key, val string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && time.Now().Before(e.expires) {
		return false, nil
	}

	m.entries[key] = entry{val: val, expires: time.Now().Add(ttl)}
	return true, nil
}

func (m *Memory) TakeIfMatch(ctx context.Context, key, val string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expires) || e.val != val {
		return false, nil
	}

	delete(m.entries, key)
	return true, nil
}

func (m *Memory) sweep() {
	for {
		time.Sleep(time.Minute)

		m.mu.Lock()
		now := time.Now()
		for k, e := range m.entries {
			if now.After(e.expires) {
				delete(m.entries, k)
			}
		}
		m.mu.Unlock()
	}
}
