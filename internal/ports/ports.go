package ports

import (
	"context"
	"sync"
	"time"
)

// Boundary interfaces the core consumes. Adapters (LSP subprocess clients,
// Redis/PG stores) live outside the core and implement these; the core
// holds only references.

// Location is a file position at the port boundary. Line and Col are
// 1-indexed here; adapters convert to/from the 0-indexed wire form.
type Location struct {
	FilePath string
	Line     int
	Col      int
}

// TypeInfo is a hover/type fact returned by a language server.
type TypeInfo struct {
	Raw        string
	Detail     string
	IsNullable bool
}

// DiagnosticSeverity follows the LSP numbering: 1 = error, 4 = hint.
type DiagnosticSeverity int

const (
	DiagError DiagnosticSeverity = iota + 1
	DiagWarning
	DiagInformation
	DiagHint
)

// Diagnostic is one published language-server finding.
type Diagnostic struct {
	Location Location
	Severity DiagnosticSeverity
	Code     string
	Message  string
}

// LSPPort is the unified request/response surface over a language server.
// Calls block and honor ctx; on timeout or RPC failure the adapter returns
// a nil/empty result with a *TimeoutError or *ExternalError, and the build
// continues without type info.
type LSPPort interface {
	Hover(ctx context.Context, loc Location) (*TypeInfo, error)
	Definition(ctx context.Context, loc Location) ([]Location, error)
	References(ctx context.Context, loc Location) ([]Location, error)
	Diagnostics(ctx context.Context, filePath string) ([]Diagnostic, error)
}

// DiagnosticsSubscriberPort is the push counterpart of
// LSPPort.Diagnostics: the adapter invokes the callback whenever the
// server publishes for a subscribed file, dropping entries below
// minSeverity and expiring per-file state after ttl. The returned func
// cancels the subscription.
type DiagnosticsSubscriberPort interface {
	Subscribe(filePath string, ttl time.Duration, minSeverity DiagnosticSeverity, fn func([]Diagnostic)) (cancel func())
}

// DocumentStorePort is the narrow CRUD contract for domain documents with
// full-text search.
type DocumentStorePort interface {
	Put(ctx context.Context, id string, body []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	SearchText(ctx context.Context, query string, limit int) ([]string, error)
}

// FeedbackLogPort appends query-feedback records for later analysis.
type FeedbackLogPort interface {
	Append(ctx context.Context, record map[string]string) error
}

// CacheStorePort is a keyed byte cache with optional TTL and batch
// variants. The API is split in two halves on purpose: the context-taking
// methods reach the real backing store (Redis or similar) and may block or
// fail; GetSync/SetSync never leave the process — they serve from an
// in-memory mirror and are safe to call on hot paths that cannot afford a
// network round trip. Implementations keep the mirror coherent by writing
// through it on Set and falling back to it when the backing store is
// unreachable.
type CacheStorePort interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	GetBatch(ctx context.Context, keys []string) (map[string][]byte, error)
	SetBatch(ctx context.Context, entries map[string][]byte, ttl time.Duration) error

	GetSync(key string) ([]byte, bool)
	SetSync(key string, value []byte)
}

// ShadowFSPort is the scoped write surface: an in-memory overlay over a
// workspace whose writes become visible on disk only at Commit.
// internal/shadowfs provides the concrete implementation.
type ShadowFSPort interface {
	ReadFile(filePath string) (string, error)
	WriteFile(filePath, content string)
	Commit() error
	Rollback()
	HasChanges() bool
}

type mirrorEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryMirror is the in-process half of a CacheStorePort implementation:
// a TTL-aware map adapters write through on Set and read from in GetSync,
// and the fallback target when the backing store is down.
type MemoryMirror struct {
	mu      sync.Mutex
	entries map[string]mirrorEntry
	now     func() time.Time
}

// NewMemoryMirror returns an empty mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{entries: make(map[string]mirrorEntry), now: time.Now}
}

// GetSync returns the mirrored value for key, expiring stale entries on
// the way.
func (m *MemoryMirror) GetSync(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// SetSync stores value under key with no expiry.
func (m *MemoryMirror) SetSync(key string, value []byte) {
	m.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key; ttl <= 0 means no expiry.
func (m *MemoryMirror) SetWithTTL(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := mirrorEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
}

// Delete removes key from the mirror.
func (m *MemoryMirror) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len reports the number of live entries, counting expired ones until
// their next GetSync.
func (m *MemoryMirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
