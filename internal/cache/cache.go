// Package cache provides a bounded in-memory store of completed
// translations keyed by source text. It is constructed once and injected
// into the tracker; there is no package-level instance.
package cache

import "sync"

// DefaultCapacity bounds the cache when no capacity is supplied.
const DefaultCapacity = 200

// Translations is a bounded source→translation map with FIFO eviction.
// Insertion order, not access order, decides eviction: a text that keeps
// reappearing on screen is re-requested at worst once per cache lifetime,
// and FIFO keeps the eviction deterministic.
type Translations struct {
	mu       sync.Mutex
	entries  map[string]string
	order    []string
	capacity int
}

// New creates a cache holding at most capacity entries.
func New(capacity int) *Translations {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Translations{
		entries:  make(map[string]string, capacity),
		capacity: capacity,
	}
}

// Get returns the cached translation for source text.
func (t *Translations) Get(source string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[source]
	return v, ok
}

// Put stores a translation, evicting the oldest entry at capacity.
// Re-inserting an existing key updates the value without refreshing its
// eviction position.
func (t *Translations) Put(source, translated string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[source]; exists {
		t.entries[source] = translated
		return
	}

	if len(t.order) >= t.capacity {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.entries, oldest)
	}
	t.entries[source] = translated
	t.order = append(t.order, source)
}

// Len returns the number of cached entries.
func (t *Translations) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Clear empties the cache.
func (t *Translations) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]string, t.capacity)
	t.order = t.order[:0]
}
