// Package incremental tells which files in a workspace changed since a
// previous run, using a fast (mtime, size) check and a slow content-hash
// check: an unchanged fingerprint is trusted as unchanged, while a changed
// one is only reported as modified if the content hash differs too.
// Enumeration is a
// filepath.Walk with symlink-cycle tracking and doublestar exclusion
// globs; previous state is a pure in-memory FileMetadata map.
package incremental

import "time"

// FileMetadata is the fast-path fingerprint plus the lazily-computed
// content hash for one file, keyed by its path relative to the workspace
// root in the caller's metadata map.
type FileMetadata struct {
	Path    string
	ModTime time.Time
	Size    int64
	Hash    string // content hash; empty until a slow-path check computes it
}

// unchanged reports whether the fast-path fingerprint (mtime, size) matches
// between two FileMetadata snapshots of the same path.
func (m FileMetadata) unchanged(other FileMetadata) bool {
	return m.ModTime.Equal(other.ModTime) && m.Size == other.Size
}

// ChangeSet is the result of comparing a previous and current file listing,
// relative paths only.
type ChangeSet struct {
	Added    []string
	Modified []string
	Deleted  []string
}

// Empty reports whether the change set has no added, modified, or deleted
// files.
func (cs ChangeSet) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// Stats reports change-detection telemetry.
type Stats struct {
	TotalChecked    int // files that went through the slow (hash) path
	ActuallyChanged int // files reported as added or modified
	FalsePositives  int // slow path ran (mtime/size changed) but hash matched
}
