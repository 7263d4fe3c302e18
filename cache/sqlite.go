package cache

import (
	"database/sql"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore is a cache backend on an in-memory SQLite database.
// It implements the same capacity and eviction contract as MemoryStore;
// recency is a monotonic clock stamped on every touch, so the smallest
// stamp marks the most stale entry.
type SQLiteStore struct {
	mu    sync.Mutex
	db    *sql.DB
	clock int64

	maxCacheSize  int
	maxObjectSize int

	hits      uint64
	misses    uint64
	evictions uint64
	rejected  uint64
}

// NewSQLiteStore opens the database at the given DSN and creates the
// object table if needed. Use a "mode=memory" DSN to keep the store
// in-process only.
func NewSQLiteStore(dsn string, maxCacheSize, maxObjectSize int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps the shared in-memory database alive
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS objects (key TEXT PRIMARY KEY, content BLOB, size INTEGER, used INTEGER)"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS used_idx ON objects (used)"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{
		db:            db,
		maxCacheSize:  maxCacheSize,
		maxObjectSize: maxObjectSize,
	}, nil
}

func (s *SQLiteStore) Lookup(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var content []byte
	err := s.db.QueryRow("SELECT content FROM objects WHERE key = ?", key).Scan(&content)
	if err != nil {
		s.misses++
		return nil, false
	}
	s.clock++
	if _, err := s.db.Exec("UPDATE objects SET used = ? WHERE key = ?", s.clock, key); err != nil {
		return nil, false
	}
	s.hits++
	return content, true
}

func (s *SQLiteStore) Put(key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(content) > s.maxObjectSize {
		s.rejected++
		return nil
	}

	// drop a repeated key before sizing so it cannot double-count
	if _, err := s.db.Exec("DELETE FROM objects WHERE key = ?", key); err != nil {
		return err
	}

	total, err := s.totalSize()
	if err != nil {
		return err
	}

	for needed := total + int64(len(content)) - int64(s.maxCacheSize); needed > 0; {
		var victim string
		var victimSize int64
		err := s.db.QueryRow(
			"SELECT key, size FROM objects WHERE size >= ? ORDER BY used ASC LIMIT 1",
			needed,
		).Scan(&victim, &victimSize)
		if err == sql.ErrNoRows {
			// no single entry frees enough room; abandon the store
			s.rejected++
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := s.db.Exec("DELETE FROM objects WHERE key = ?", victim); err != nil {
			return err
		}
		s.evictions++
		total -= victimSize
		needed = total + int64(len(content)) - int64(s.maxCacheSize)
	}

	s.clock++
	_, err = s.db.Exec(
		"INSERT INTO objects (key, content, size, used) VALUES (?, ?, ?, ?)",
		key, content, len(content), s.clock,
	)
	return err
}

func (s *SQLiteStore) totalSize() (int64, error) {
	var total int64
	err := s.db.QueryRow("SELECT COALESCE(SUM(size), 0) FROM objects").Scan(&total)
	return total, err
}

func (s *SQLiteStore) Purge(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.Exec("DELETE FROM objects WHERE key = ?", key)
}

func (s *SQLiteStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Rejected:  s.rejected,
	}
	s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(size), 0) FROM objects").Scan(&stats.Entries, &stats.Size)
	return stats
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
