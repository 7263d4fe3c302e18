package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
)

var sqliteTestDB int

func newTestStores(t *testing.T, maxCacheSize, maxObjectSize int) map[string]Store {
	t.Helper()
	sqliteTestDB++
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", sqliteTestDB)
	sqlite, err := NewSQLiteStore(dsn, maxCacheSize, maxObjectSize)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(maxCacheSize, maxObjectSize),
		"sqlite": sqlite,
	}
}

func fill(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range newTestStores(t, 1000, 100) {
		t.Run(name, func(t *testing.T) {
			want := []byte("hello world")
			if err := store.Put("/page", want); err != nil {
				t.Fatal(err)
			}
			got, ok := store.Lookup("/page")
			if !ok {
				t.Fatal("lookup after put is a miss")
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("lookup returned %q, want %q", got, want)
			}
			if _, ok := store.Lookup("/other"); ok {
				t.Fatal("lookup of unknown key is a hit")
			}
		})
	}
}

func TestStoreLookupReturnsCopy(t *testing.T) {
	for name, store := range newTestStores(t, 1000, 100) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("/page", []byte("original")); err != nil {
				t.Fatal(err)
			}
			got, _ := store.Lookup("/page")
			copy(got, "XXXXXXXX")
			again, _ := store.Lookup("/page")
			if string(again) != "original" {
				t.Fatalf("stored content mutated to %q", again)
			}
		})
	}
}

func TestStoreOversizeIsNoop(t *testing.T) {
	for name, store := range newTestStores(t, 1000, 100) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("/big", fill('a', 101)); err != nil {
				t.Fatal(err)
			}
			if _, ok := store.Lookup("/big"); ok {
				t.Fatal("oversized object was stored")
			}
			stats := store.Stats()
			if stats.Entries != 0 || stats.Size != 0 {
				t.Fatalf("stats after oversize put: %+v", stats)
			}
			if stats.Rejected != 1 {
				t.Fatalf("rejected = %d, want 1", stats.Rejected)
			}
		})
	}
}

func TestStoreEvictsMostStaleSufficientEntry(t *testing.T) {
	for name, store := range newTestStores(t, 100, 60) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("/a", fill('a', 40)); err != nil {
				t.Fatal(err)
			}
			if err := store.Put("/b", fill('b', 40)); err != nil {
				t.Fatal(err)
			}
			// touch /a so /b becomes the most stale entry
			if _, ok := store.Lookup("/a"); !ok {
				t.Fatal("lookup of /a is a miss")
			}
			if err := store.Put("/c", fill('c', 40)); err != nil {
				t.Fatal(err)
			}

			if _, ok := store.Lookup("/b"); ok {
				t.Fatal("/b was not evicted")
			}
			if _, ok := store.Lookup("/a"); !ok {
				t.Fatal("/a was evicted instead of /b")
			}
			if _, ok := store.Lookup("/c"); !ok {
				t.Fatal("/c was not stored")
			}
			stats := store.Stats()
			if stats.Size > 100 {
				t.Fatalf("total size %d exceeds capacity", stats.Size)
			}
			if stats.Evictions != 1 {
				t.Fatalf("evictions = %d, want 1", stats.Evictions)
			}
		})
	}
}

func TestStoreAbandonsPutWithoutSufficientVictim(t *testing.T) {
	for name, store := range newTestStores(t, 100, 60) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				key := fmt.Sprintf("/%d", i)
				if err := store.Put(key, fill(byte('0'+i), 20)); err != nil {
					t.Fatal(err)
				}
			}
			// needs 50 bytes freed, but every entry is only 20
			if err := store.Put("/big", fill('x', 50)); err != nil {
				t.Fatal(err)
			}

			if _, ok := store.Lookup("/big"); ok {
				t.Fatal("store was not abandoned")
			}
			stats := store.Stats()
			if stats.Entries != 5 || stats.Size != 100 {
				t.Fatalf("existing entries disturbed: %+v", stats)
			}
			if stats.Evictions != 0 {
				t.Fatalf("evictions = %d, want 0", stats.Evictions)
			}
			if stats.Rejected != 1 {
				t.Fatalf("rejected = %d, want 1", stats.Rejected)
			}
		})
	}
}

func TestStoreRepeatedKeyDoesNotDoubleCount(t *testing.T) {
	for name, store := range newTestStores(t, 100, 60) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("/page", fill('a', 60)); err != nil {
				t.Fatal(err)
			}
			if err := store.Put("/page", fill('b', 60)); err != nil {
				t.Fatal(err)
			}
			stats := store.Stats()
			if stats.Entries != 1 || stats.Size != 60 {
				t.Fatalf("stats after repeated put: %+v", stats)
			}
			got, _ := store.Lookup("/page")
			if !bytes.Equal(got, fill('b', 60)) {
				t.Fatal("repeated put did not replace content")
			}
		})
	}
}

func TestStorePurge(t *testing.T) {
	for name, store := range newTestStores(t, 1000, 100) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("/page", []byte("content")); err != nil {
				t.Fatal(err)
			}
			store.Purge("/page")
			if _, ok := store.Lookup("/page"); ok {
				t.Fatal("purged entry still present")
			}
		})
	}
}

func TestStoreCountsHitsAndMisses(t *testing.T) {
	for name, store := range newTestStores(t, 1000, 100) {
		t.Run(name, func(t *testing.T) {
			store.Put("/page", []byte("content"))
			store.Lookup("/page")
			store.Lookup("/page")
			store.Lookup("/missing")
			stats := store.Stats()
			if stats.Hits != 2 || stats.Misses != 1 {
				t.Fatalf("hits = %d misses = %d, want 2 and 1", stats.Hits, stats.Misses)
			}
		})
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	for name, store := range newTestStores(t, 10000, 100) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("/%d", i%4)
					for j := 0; j < 100; j++ {
						if _, ok := store.Lookup(key); !ok {
							store.Put(key, fill(byte('0'+i), 50))
						}
					}
				}(i)
			}
			wg.Wait()
			if stats := store.Stats(); stats.Size > 10000 {
				t.Fatalf("total size %d exceeds capacity", stats.Size)
			}
		})
	}
}
