package tieredcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/kraklabs/codelayer/internal/ir"
)

// FileCache is the L2 tier: an on-disk store keyed by the same
// content-address as L1, persisting across process restarts.
// Unlike L1 it has no size bound of its own — eviction happens at L1 only,
// and L2 is expected to be pruned externally (e.g. by a cache-dir TTL sweep)
// rather than by this type.
type FileCache struct {
	dir string

	mu sync.Mutex

	hits   int64
	misses int64
}

// NewFileCache creates an L2 cache rooted at dir, creating it if absent.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

func (fc *FileCache) pathFor(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

// Get reads the document stored under key, if any.
func (fc *FileCache) Get(key string) (*ir.IRDocument, bool) {
	data, err := os.ReadFile(fc.pathFor(key))
	if err != nil {
		atomic.AddInt64(&fc.misses, 1)
		return nil, false
	}
	doc := &ir.IRDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		atomic.AddInt64(&fc.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&fc.hits, 1)
	return doc, true
}

// Set persists doc under key. Writes go to a temp file first and are
// renamed into place so a concurrent Get never observes a partial write.
func (fc *FileCache) Set(key string, doc *ir.IRDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	tmp := fc.pathFor(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, fc.pathFor(key))
}

// Clear removes every entry under the cache directory.
func (fc *FileCache) Clear() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	entries, err := os.ReadDir(fc.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(fc.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns L2 telemetry.
func (fc *FileCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&fc.hits), atomic.LoadInt64(&fc.misses)
}
