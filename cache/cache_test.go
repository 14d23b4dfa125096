package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SweepInterval = 0 // no background goroutine in tests
	return cfg
}

func TestKeyFor(t *testing.T) {
	data := []byte("the quick brown fox")
	k1 := KeyFor("doc.pdf", int64(len(data)), data)
	k2 := KeyFor("doc.pdf", int64(len(data)), data)

	if k1 != k2 {
		t.Errorf("KeyFor is not deterministic: %v vs %v", k1, k2)
	}
	if len(k1.Hash) != 16 {
		t.Errorf("hash length = %d, want 16", len(k1.Hash))
	}
	for _, r := range k1.Hash {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("hash contains non-hex rune %q", r)
		}
	}

	// Same name and size but different bytes must not collide.
	other := KeyFor("doc.pdf", int64(len(data)), []byte("the quick brown fix"))
	if k1 == other {
		t.Error("different content produced identical keys")
	}
}

func TestGetPutRoundTrip(t *testing.T) {
	c := New(NopStore{}, testConfig())
	defer c.Close()

	key := KeyFor("a.txt", 5, []byte("hello"))
	if _, ok := c.Get(key); ok {
		t.Fatal("Get on empty cache reported a hit")
	}

	c.Put(key, "hello text", "direct", 10*time.Millisecond)
	e, ok := c.Get(key)
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if e.Content != "hello text" || e.Method != "direct" {
		t.Errorf("entry = %+v", e)
	}
	// Put counts as the first access, Get as the second.
	if e.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", e.AccessCount)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits %d misses, want 1/1", hits, misses)
	}
}

func TestPutSameKeyReplaces(t *testing.T) {
	c := New(NopStore{}, testConfig())
	defer c.Close()

	key := KeyFor("a.txt", 5, []byte("hello"))
	c.Put(key, "first", "direct", 0)
	c.Put(key, "second", "worker", 0)

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	e, _ := c.Get(key)
	if e.Content != "second" || e.Method != "worker" {
		t.Errorf("entry after replace = %+v", e)
	}
}

func TestEvictionPrefersColdEntries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 8
	c := New(NopStore{}, cfg)
	defer c.Close()

	keys := make([]Key, 8)
	for i := range keys {
		data := []byte(fmt.Sprintf("content-%d", i))
		keys[i] = KeyFor(fmt.Sprintf("f%d", i), int64(len(data)), data)
		c.Put(keys[i], string(data), "direct", 0)
	}
	// Warm up everything except entry 3, the intended victim.
	for i, k := range keys {
		if i == 3 {
			continue
		}
		if _, ok := c.Get(k); !ok {
			t.Fatalf("warmup Get(%d) missed", i)
		}
	}

	// The 9th Put overflows the cap and evicts the least-used quarter.
	data := []byte("overflow")
	c.Put(KeyFor("over", int64(len(data)), data), string(data), "direct", 0)

	if _, ok := c.Get(keys[3]); ok {
		t.Error("cold entry survived eviction")
	}
	if c.Len() > cfg.MaxEntries {
		t.Errorf("Len = %d, want <= %d", c.Len(), cfg.MaxEntries)
	}
}

func TestEvictionByBytes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 100
	cfg.MaxBytes = 50
	c := New(NopStore{}, cfg)
	defer c.Close()

	for i := 0; i < 4; i++ {
		data := []byte(fmt.Sprintf("f%d", i))
		c.Put(KeyFor(string(data), 2, data), strings.Repeat("x", 20), "direct", 0)
	}
	if c.Len() >= 4 {
		t.Errorf("Len = %d, want eviction to have run", c.Len())
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = time.Hour
	c := New(NopStore{}, cfg)
	defer c.Close()

	fresh := KeyFor("fresh", 1, []byte("a"))
	stale := KeyFor("stale", 1, []byte("b"))
	c.Put(fresh, "fresh", "direct", 0)
	c.Put(stale, "stale", "direct", 0)

	// Age one entry past the TTL by hand.
	c.mu.Lock()
	c.entries[stale].CreatedAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()

	c.sweepExpired()

	if _, ok := c.Get(stale); ok {
		t.Error("expired entry survived sweep")
	}
	if _, ok := c.Get(fresh); !ok {
		t.Error("fresh entry removed by sweep")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cache.zst")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{Key: KeyFor("a", 1, []byte("a")), Content: "alpha", Method: "direct", AccessCount: 3},
		{Key: KeyFor("b", 1, []byte("b")), Content: "beta", Method: "worker", AccessCount: 1},
	}
	if err := store.Save(entries); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(got))
	}
	byKey := map[Key]Entry{}
	for _, e := range got {
		byKey[e.Key] = e
	}
	if e := byKey[entries[0].Key]; e.Content != "alpha" || e.AccessCount != 3 {
		t.Errorf("loaded entry = %+v", e)
	}
}

func TestFileStoreSkipsOversizedContent(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "cache.zst"))
	if err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{Key: KeyFor("small", 1, []byte("s")), Content: "ok"},
		{Key: KeyFor("big", 1, []byte("b")), Content: strings.Repeat("x", maxPersistedContent+1)},
	}
	if err := store.Save(entries); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "ok" {
		t.Errorf("Load() = %+v, want only the small entry", got)
	}
}

func TestNewToleratesCorruptStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.zst")
	if err := os.WriteFile(path, []byte("not zstd at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	c := New(store, testConfig())
	defer c.Close()
	if c.Len() != 0 {
		t.Errorf("Len = %d after corrupt load, want 0", c.Len())
	}

	// The cache still works and overwrites the corrupt file.
	key := KeyFor("a", 1, []byte("a"))
	c.Put(key, "recovered", "direct", 0)
	if _, ok := c.Get(key); !ok {
		t.Error("cache unusable after corrupt load")
	}
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.zst")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	key := KeyFor("doc.pdf", 9, []byte("same data"))
	first := New(store, testConfig())
	first.Put(key, "extracted text", "chunked", 5*time.Millisecond)
	first.Close()

	second := New(store, testConfig())
	defer second.Close()
	e, ok := second.Get(key)
	if !ok {
		t.Fatal("entry not found after reload")
	}
	if e.Content != "extracted text" || e.Method != "chunked" {
		t.Errorf("reloaded entry = %+v", e)
	}
}
