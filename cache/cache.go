// Package cache implements the content-addressed extraction cache.
//
// Entries are keyed by file identity (name, size, content hash) so two
// uploads of the same bytes hit the same entry regardless of when they
// happened. The cache is bounded by entry count and aggregate byte
// size, evicts by combined least-frequently/least-recently-used order
// and drops entries older than a TTL on a periodic sweep.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Key identifies a cached extraction by file identity.
type Key struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// KeyFor builds a key from a file's name, size and content bytes. The
// hash component is the first 16 hex characters of the SHA-256 digest.
func KeyFor(name string, size int64, data []byte) Key {
	sum := sha256.Sum256(data)
	return Key{Name: name, Size: size, Hash: hex.EncodeToString(sum[:])[:16]}
}

// String renders the key in its stable storage form.
func (k Key) String() string {
	return fmt.Sprintf("%s|%d|%s", k.Name, k.Size, k.Hash)
}

// Entry is one cached extraction result.
type Entry struct {
	Key            Key           `json:"key"`
	Content        string        `json:"content"`
	Method         string        `json:"method"`
	ProcessingTime time.Duration `json:"processing_time"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessed   time.Time     `json:"last_accessed"`
	AccessCount    int64         `json:"access_count"`
}

// Config bounds the cache.
type Config struct {
	MaxEntries    int
	MaxBytes      int64
	TTL           time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns the default cache limits: 50 entries, 100 MB,
// 7-day TTL.
func DefaultConfig() Config {
	return Config{
		MaxEntries:    50,
		MaxBytes:      100 << 20,
		TTL:           7 * 24 * time.Hour,
		SweepInterval: time.Hour,
	}
}

// Cache is the in-memory cache with best-effort persistence. All
// mutation happens through Get/Put on one logical owner; concurrent
// puts for the same key are last-write-wins.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*Entry
	bytes   int64
	cfg     Config
	store   Store

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup

	hits, misses int64
}

// New creates a cache backed by the given store. A corrupt or missing
// store is a silent empty start, never an error.
func New(store Store, cfg Config) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultConfig().MaxBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}

	c := &Cache{
		entries:   make(map[Key]*Entry),
		cfg:       cfg,
		store:     store,
		sweepStop: make(chan struct{}),
	}

	if store != nil {
		entries, err := store.Load()
		if err != nil {
			log.Debug("cache store unreadable, starting empty", "err", err)
		}
		for i := range entries {
			e := entries[i]
			c.entries[e.Key] = &e
			c.bytes += int64(len(e.Content))
		}
	}

	if cfg.SweepInterval > 0 {
		c.sweepWG.Add(1)
		go c.sweepLoop()
	}
	return c
}

// Get returns the cached entry for key, updating its access metadata.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return Entry{}, false
	}
	c.hits++
	e.AccessCount++
	e.LastAccessed = time.Now()
	c.saveLocked()
	return *e, true
}

// Put stores an extraction result, evicting old entries if the cache
// is over capacity.
func (c *Cache) Put(key Key, content, method string, took time.Duration) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.bytes -= int64(len(old.Content))
	}
	c.entries[key] = &Entry{
		Key:            key,
		Content:        content,
		Method:         method,
		ProcessingTime: took,
		CreatedAt:      now,
		LastAccessed:   now,
		AccessCount:    1,
	}
	c.bytes += int64(len(content))

	if len(c.entries) > c.cfg.MaxEntries || c.bytes > c.cfg.MaxBytes {
		c.evictLeastUsedLocked()
	}
	c.saveLocked()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Close stops the sweep goroutine and persists a final snapshot.
func (c *Cache) Close() {
	close(c.sweepStop)
	c.sweepWG.Wait()
	c.mu.Lock()
	c.saveLocked()
	c.mu.Unlock()
}

// evictLeastUsedLocked removes the least-valuable 25% of entries
// (minimum one), ordered by access count then recency.
func (c *Cache) evictLeastUsedLocked() {
	victims := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		victims = append(victims, e)
	}
	sort.Slice(victims, func(i, j int) bool {
		if victims[i].AccessCount != victims[j].AccessCount {
			return victims[i].AccessCount < victims[j].AccessCount
		}
		return victims[i].LastAccessed.Before(victims[j].LastAccessed)
	})

	n := len(victims) / 4
	if n < 1 {
		n = 1
	}
	for _, e := range victims[:n] {
		log.Debug("evicting cache entry", "key", e.Key.String(), "accesses", e.AccessCount)
		c.bytes -= int64(len(e.Content))
		delete(c.entries, e.Key)
	}
}

func (c *Cache) sweepLoop() {
	defer c.sweepWG.Done()
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-c.sweepStop:
			return
		}
	}
}

// sweepExpired removes entries older than the TTL regardless of how
// often they were accessed.
func (c *Cache) sweepExpired() {
	cutoff := time.Now().Add(-c.cfg.TTL)
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if e.CreatedAt.Before(cutoff) {
			c.bytes -= int64(len(e.Content))
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		log.Debug("cache sweep removed expired entries", "count", removed)
		c.saveLocked()
	}
}

// saveLocked persists the current entries, best effort.
func (c *Cache) saveLocked() {
	if c.store == nil {
		return
	}
	entries := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, *e)
	}
	if err := c.store.Save(entries); err != nil {
		log.Debug("cache save failed", "err", err)
	}
}
