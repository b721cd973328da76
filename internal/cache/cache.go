// Package cache implements the HashCache: a persistent, content-addressed
// store mapping (cache_key, algorithm) to perceptual hash bits, amortizing
// the decode-and-hash cost of repeated scans across runs.
//
// The on-disk lifecycle is a read-db/write-db swap: each run opens the
// existing database read-only and a fresh ".new" database for writes,
// and only entries actually touched during the run survive into the
// replacement database at Close — a self-cleaning cache that never
// accumulates stale entries for files that have since been deleted or
// moved. Eviction of the in-memory working set, and of entries that exceed
// the configured byte budget, is handled by an LRU index layered on top of
// the persistent store.
package cache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/user/dupeseer/internal/types"
)

const bucketName = "hashes"

// estimatedEntryBytes approximates the on-disk footprint of one cache
// record (key + 8-byte bits value + bbolt page overhead), used to translate
// a configured byte budget into an LRU entry-count bound.
const estimatedEntryBytes = 128

// Cache is a persistent HashCache backed by bbolt, bounded by an in-memory
// LRU index that evicts the least-recently-used entries once the
// configured byte budget is exceeded.
type Cache struct {
	readDB  *bolt.DB
	writeDB *bolt.DB
	path    string
	enabled bool

	lru *lru.Cache[string, uint64]

	onError func(error) // invoked at most once per Cache, CacheError
}

// Open opens the HashCache rooted at dir (the per-user application
// directory resolved by the caller). byteBudget bounds the working set via
// LRU eviction. onError, if non-nil, is invoked at most once. An existing
// store that cannot be opened (corrupt or locked) is reported and the run
// starts cold: writes still go to a fresh store that replaces it at Close.
// If the fresh store itself cannot be created, the failure is reported and
// the cache degrades to a disabled no-op (treat all reads as misses, all
// writes as no-ops, scan continues).
func Open(dir string, byteBudget int64, onError func(error)) *Cache {
	if dir == "" {
		return &Cache{enabled: false}
	}

	c := &Cache{path: filepath.Join(dir, "hashes.db"), onError: onError}

	maxEntries := int(byteBudget / estimatedEntryBytes)
	if maxEntries <= 0 {
		maxEntries = 100_000
	}
	evictor, err := lru.New[string, uint64](maxEntries)
	if err != nil {
		c.fail(fmt.Errorf("create lru index: %w", err))
		return c
	}
	c.lru = evictor

	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.fail(fmt.Errorf("create cache dir: %w", err))
		return c
	}

	if _, statErr := os.Stat(c.path); statErr == nil {
		readDB, err := bolt.Open(c.path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
		if err != nil {
			// Corrupt or locked existing store: cold start.
			c.readDB = nil
			if c.onError != nil {
				c.onError(fmt.Errorf("open existing cache (starting cold): %w", err))
				c.onError = nil // a single log entry
			}
		} else {
			c.readDB = readDB
		}
	}

	writeDB, err := bolt.Open(c.path+".new", 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		c.fail(fmt.Errorf("open write cache: %w", err))
		return c
	}
	if err := writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = writeDB.Close()
		c.fail(fmt.Errorf("init cache bucket: %w", err))
		return c
	}
	c.writeDB = writeDB
	c.enabled = true
	return c
}

func (c *Cache) fail(err error) {
	c.enabled = false
	if c.onError != nil {
		c.onError(err)
		c.onError = nil // a single log entry
	}
}

// Get implements the phash.Cache interface consumed by the Hashing stage.
func (c *Cache) Get(key types.CacheKey, alg types.Algorithm) (types.Hash, bool) {
	if !c.enabled || !key.Cacheable() {
		return types.Hash{}, false
	}
	k := encodeKey(key, alg)

	if bits, ok := c.lru.Get(string(k)); ok {
		return types.Hash{Algorithm: alg, Bits: bits}, true
	}

	if c.readDB == nil {
		return types.Hash{}, false
	}

	var bits uint64
	var found bool
	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get(k)
		if len(data) == 8 {
			bits = binary.BigEndian.Uint64(data)
			found = true
		}
		return nil
	})
	if !found {
		return types.Hash{}, false
	}

	// Self-cleaning: a hit is copied forward into the write database so
	// only entries actually used this run survive into the next.
	c.putLocked(k, bits)
	return types.Hash{Algorithm: alg, Bits: bits}, true
}

// Put implements the phash.Cache interface consumed by the Hashing stage.
func (c *Cache) Put(key types.CacheKey, h types.Hash) {
	if !c.enabled || !key.Cacheable() {
		return
	}
	c.putLocked(encodeKey(key, h.Algorithm), h.Bits)
}

func (c *Cache) putLocked(k []byte, bits uint64) {
	c.lru.Add(string(k), bits)
	if c.writeDB == nil {
		return
	}
	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, bits)
		return b.Put(k, buf)
	}); err != nil && c.onError != nil {
		c.fail(fmt.Errorf("cache write: %w", err))
	}
}

// Info reports the persistent store's entry count, approximate size, and
// location.
func (c *Cache) Info() (entryCount int, sizeBytes int64, location string) {
	if !c.enabled {
		return 0, 0, ""
	}
	db := c.writeDB
	if db == nil {
		return 0, 0, c.path
	}
	// Entries written this run plus those of the previous store not yet
	// copied forward, each key counted once.
	seen := make(map[string]bool)
	for _, d := range []*bolt.DB{db, c.readDB} {
		if d == nil {
			continue
		}
		_ = d.View(func(tx *bolt.Tx) error {
			b := tx.Bucket([]byte(bucketName))
			if b == nil {
				return nil
			}
			return b.ForEach(func(k, _ []byte) error {
				seen[string(k)] = true
				return nil
			})
		})
		if st, err := os.Stat(d.Path()); err == nil {
			sizeBytes += st.Size()
		}
	}
	return len(seen), sizeBytes, c.path
}

// Clear removes all records from the persistent store.
func (c *Cache) Clear() error {
	if !c.enabled {
		return nil
	}
	c.lru.Purge()
	if c.readDB != nil {
		_ = c.readDB.Close()
		c.readDB = nil
	}
	return c.writeDB.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
}

// Close flushes the write database and atomically replaces the previous
// on-disk cache with it, so only entries touched this run persist.
func (c *Cache) Close() error {
	if !c.enabled {
		return nil
	}
	var firstErr error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if err := os.Rename(c.path+".new", c.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// encodeKey builds the deterministic bbolt lookup key for (key, algorithm):
// path + NUL + size(8) + mtime(8) + algorithm(1). Any change to path, size,
// or mtime produces a different key, which is how cache invalidation works
// without an explicit invalidation pass.
func encodeKey(key types.CacheKey, alg types.Algorithm) []byte {
	buf := make([]byte, 0, len(key.Path)+1+8+8+1)
	buf = append(buf, key.Path...)
	buf = append(buf, 0)
	var sizeBuf, mtimeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], uint64(key.Size))
	binary.BigEndian.PutUint64(mtimeBuf[:], uint64(key.ModTime))
	buf = append(buf, sizeBuf[:]...)
	buf = append(buf, mtimeBuf[:]...)
	buf = append(buf, byte(alg))
	return buf
}
