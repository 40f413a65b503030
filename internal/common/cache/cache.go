package cache

import (
	"context"
	"fmt"
	"sync"
)

// Loader returns the full set of entries that should be cached, typically
// from a single predicate query against the store.
type Loader[K comparable, V any] func(ctx context.Context) (map[K]V, error)

// Map is an in-memory mirror of store records keyed by K. It is safe for
// concurrent use. Values are stored by copy; callers replace a value with
// Set or Update rather than mutating what Get returned.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{entries: make(map[K]V)}
}

// Warm replaces the whole content of the cache with what load returns.
// On error the previous content is kept.
func (m *Map[K, V]) Warm(ctx context.Context, load Loader[K, V]) (int, error) {
	entries, err := load(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm cache: %w", err)
	}
	fresh := make(map[K]V, len(entries))
	for k, v := range entries {
		fresh[k] = v
	}

	m.mu.Lock()
	m.entries = fresh
	m.mu.Unlock()
	return len(fresh), nil
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
}

// Delete removes key and reports whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	delete(m.entries, key)
	return ok
}

// Update applies fn to the current value under the write lock. fn returns
// the new value and whether the key should be kept; returning false deletes it.
func (m *Map[K, V]) Update(key K, fn func(current V, exists bool) (V, bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, exists := m.entries[key]
	next, keep := fn(current, exists)
	if !keep {
		delete(m.entries, key)
		return
	}
	m.entries[key] = next
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entry is a key/value pair returned by Snapshot.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Snapshot copies the current entries so callers can iterate while the
// cache is being mutated.
func (m *Map[K, V]) Snapshot() []Entry[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry[K, V], 0, len(m.entries))
	for k, v := range m.entries {
		out = append(out, Entry[K, V]{Key: k, Value: v})
	}
	return out
}
