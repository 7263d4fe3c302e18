// Package cache provides the shared web object cache used by the proxy.
//
// Stored objects are small response bodies keyed by the raw request
// target. The cache is bounded both in total size and per object, and
// frees room for new objects by evicting the most stale entry large
// enough to make the new object fit.
package cache

// Default capacity limits, sized for small web objects.
const (
	// DefaultMaxCacheSize is the default bound on the summed size of
	// all stored objects.
	DefaultMaxCacheSize = 1049000
	// DefaultMaxObjectSize is the default bound on a single object.
	// Larger objects are never stored.
	DefaultMaxObjectSize = 102400
)

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	Entries   int    `json:"entries"`
	Size      int64  `json:"size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Rejected  uint64 `json:"rejected"`
}

// Store is an interface for a cache backend.
// It stores and retrieves []byte values, which represent HTTP response bodies.
//
// Implementations must be thread-safe! A lookup promotes the matched
// entry to most recently used, so even lookups mutate store state and
// must be serialized by the implementation.
type Store interface {
	// Lookup returns the stored object for the given key, if it exists.
	// The returned slice is a copy owned by the caller.
	Lookup(key string) ([]byte, bool)
	// Put stores the given object under the given key.
	// Callers only Put after a confirmed miss for the key.
	// Oversized objects, and objects no single eviction can make room
	// for, are silently not stored; this is not an error.
	Put(key string, content []byte) error
	// Purge removes the entry for the given key, if any.
	Purge(key string)
	// Stats returns a snapshot of the store counters.
	Stats() Stats
	// Close releases all entries. Only called at shutdown.
	Close() error
}
