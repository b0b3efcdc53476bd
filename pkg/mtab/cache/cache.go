// Package cache provides the host-side entry cache consulted by the lookup
// path.
//
// Admission honors the no-retain hint: an entry synthesized from volatile
// state is never stored, so the cache can never report a mount as present
// after it has been unmounted. The cache still earns its keep for any
// retaining entries an embedder feeds it, and its hit/miss counters feed
// the metrics surface either way.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/mntfs/internal/logger"
	"github.com/marmos91/mntfs/pkg/mtab"
)

// Config holds configuration for the entry cache.
type Config struct {
	// Enabled controls whether caching is active. A disabled cache still
	// counts misses.
	Enabled bool

	// TTL is how long stored entries remain valid.
	TTL time.Duration

	// MaxEntries limits the cache size (LRU eviction).
	MaxEntries int
}

// DefaultConfig returns the production cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		TTL:        5 * time.Second,
		MaxEntries: 1024,
	}
}

type key struct {
	dirID uint64
	name  string
}

type item struct {
	entry     mtab.Entry
	timestamp time.Time
	lruNode   *list.Element
}

// EntryCache is an LRU+TTL cache of directory entries keyed by
// (directory id, name).
//
// Thread safety: all operations are protected by a mutex.
type EntryCache struct {
	enabled    bool
	ttl        time.Duration
	maxEntries int

	mu    sync.Mutex
	items map[key]*item
	lru   *list.List

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New builds an EntryCache from the given configuration.
func New(cfg Config) *EntryCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}

	if cfg.Enabled {
		logger.Debug("entry cache enabled: ttl=%v max_entries=%d", cfg.TTL, cfg.MaxEntries)
	} else {
		logger.Debug("entry cache disabled")
	}

	return &EntryCache{
		enabled:    cfg.Enabled,
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		items:      make(map[key]*item),
		lru:        list.New(),
	}
}

// Get returns the cached entry for a name in a directory, if one is stored
// and still within its TTL.
func (c *EntryCache) Get(dirID uint64, name string) (mtab.Entry, bool) {
	if !c.enabled {
		c.misses.Add(1)
		return mtab.Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{dirID: dirID, name: name}
	it, ok := c.items[k]
	if !ok {
		c.misses.Add(1)
		return mtab.Entry{}, false
	}

	if time.Since(it.timestamp) > c.ttl {
		c.lru.Remove(it.lruNode)
		delete(c.items, k)
		c.misses.Add(1)
		return mtab.Entry{}, false
	}

	c.lru.MoveToFront(it.lruNode)
	c.hits.Add(1)
	return it.entry, true
}

// Put offers an entry for admission. Returns true if the entry was stored.
//
// Entries carrying the no-retain hint are always declined: their validity is
// time-bounded to the instant they were synthesized, and a stored positive
// would outlive the mount behind it.
func (c *EntryCache) Put(dirID uint64, name string, entry mtab.Entry) bool {
	if !c.enabled || entry.NoRetain {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{dirID: dirID, name: name}
	if existing, ok := c.items[k]; ok {
		existing.entry = entry
		existing.timestamp = time.Now()
		c.lru.MoveToFront(existing.lruNode)
		return true
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	it := &item{entry: entry, timestamp: time.Now()}
	it.lruNode = c.lru.PushFront(k)
	c.items[k] = it
	return true
}

// evictOldest removes the least recently used entry. Caller holds c.mu.
func (c *EntryCache) evictOldest() {
	oldest := c.lru.Back()
	if oldest == nil {
		return
	}
	c.lru.Remove(oldest)
	delete(c.items, oldest.Value.(key))
}

// Invalidate removes a single entry.
func (c *EntryCache) Invalidate(dirID uint64, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{dirID: dirID, name: name}
	if it, ok := c.items[k]; ok {
		c.lru.Remove(it.lruNode)
		delete(c.items, k)
	}
}

// Len reports the number of stored entries.
func (c *EntryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the hit and miss counts.
func (c *EntryCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
