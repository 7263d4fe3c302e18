package cache

import (
	"container/list"
	"sync"
)

// MemoryStore is an in-memory cache backend.
//
// Entries live in a hash map for O(1) lookup and on an intrusive
// recency list for eviction ordering. The list front is the most
// recently used entry; staleness is the position from the front, so
// promoting an entry on a hit re-ages everything behind it as a unit.
// All access goes through one exclusive mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	size    int64

	maxCacheSize  int
	maxObjectSize int

	hits      uint64
	misses    uint64
	evictions uint64
	rejected  uint64
}

type memEntry struct {
	key     string
	content []byte
}

// NewMemoryStore creates a new in-memory store with the given capacity
// limits.
func NewMemoryStore(maxCacheSize, maxObjectSize int) *MemoryStore {
	return &MemoryStore{
		entries:       make(map[string]*list.Element),
		order:         list.New(),
		maxCacheSize:  maxCacheSize,
		maxObjectSize: maxObjectSize,
	}
}

func (m *MemoryStore) Lookup(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	m.order.MoveToFront(el)
	m.hits++

	content := el.Value.(*memEntry).content
	cp := make([]byte, len(content))
	copy(cp, content)
	return cp, true
}

func (m *MemoryStore) Put(key string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(content) > m.maxObjectSize {
		m.rejected++
		return nil
	}

	// correct callers Put only after a miss, but never let a repeated
	// key double-count against capacity
	if el, ok := m.entries[key]; ok {
		m.removeLocked(el)
	}

	for needed := m.size + int64(len(content)) - int64(m.maxCacheSize); needed > 0; {
		victim := m.victimLocked(needed)
		if victim == nil {
			// no single entry frees enough room; abandon the store
			m.rejected++
			return nil
		}
		m.removeLocked(victim)
		m.evictions++
		needed = m.size + int64(len(content)) - int64(m.maxCacheSize)
	}

	cp := make([]byte, len(content))
	copy(cp, content)
	m.entries[key] = m.order.PushFront(&memEntry{key: key, content: cp})
	m.size += int64(len(cp))
	return nil
}

// victimLocked finds the most stale entry whose size alone covers
// needed bytes. Returns nil if no entry qualifies.
func (m *MemoryStore) victimLocked(needed int64) *list.Element {
	for el := m.order.Back(); el != nil; el = el.Prev() {
		if int64(len(el.Value.(*memEntry).content)) >= needed {
			return el
		}
	}
	return nil
}

func (m *MemoryStore) removeLocked(el *list.Element) {
	entry := el.Value.(*memEntry)
	m.order.Remove(el)
	delete(m.entries, entry.key)
	m.size -= int64(len(entry.content))
}

func (m *MemoryStore) Purge(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[key]; ok {
		m.removeLocked(el)
	}
}

func (m *MemoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Entries:   len(m.entries),
		Size:      m.size,
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
		Rejected:  m.rejected,
	}
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*list.Element)
	m.order.Init()
	m.size = 0
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
