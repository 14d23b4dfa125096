package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

// maxPersistedContent caps the content size of a persisted entry.
// Oversized extractions stay in memory only; persisting them would
// bloat the store file without much replay value.
const maxPersistedContent = 50 << 10

// Store loads and saves cache entries. Implementations must tolerate
// partial or corrupt data on load by returning what they can.
type Store interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// NopStore is a Store that persists nothing. Useful for tests and for
// running with caching disabled on disk.
type NopStore struct{}

func (NopStore) Load() ([]Entry, error) { return nil, nil }
func (NopStore) Save([]Entry) error     { return nil }

// FileStore persists entries as zstd-compressed JSON in a single file.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path, creating parent directories as
// needed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the persisted entries. A missing or unreadable file yields
// an empty slice; corruption is not an error the caller can act on.
func (s *FileStore) Load() ([]Entry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open cache decoder: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress cache: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	return entries, nil
}

// Save writes the entries atomically, skipping entries whose content
// exceeds the persistence cap.
func (s *FileStore) Save(entries []Entry) error {
	keep := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if len(e.Content) > maxPersistedContent {
			log.Debug("skipping oversized cache entry", "key", e.Key.String(), "bytes", len(e.Content))
			continue
		}
		keep = append(keep, e)
	}

	data, err := json.Marshal(keep)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("open cache encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("compress cache: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush cache encoder: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
