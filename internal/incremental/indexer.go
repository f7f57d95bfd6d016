package incremental

import (
	"os"
	"path/filepath"
)

// Indexer runs the fast-path/slow-path change detection.
type Indexer struct {
	Scanner  *Scanner
	HashFunc HashFunc
}

// NewIndexer creates an Indexer rooted at root. hashFunc defaults to
// XXHash64Hex when nil.
func NewIndexer(root string, exclude []string, hashFunc HashFunc) *Indexer {
	if hashFunc == nil {
		hashFunc = XXHash64Hex
	}
	return &Indexer{Scanner: NewScanner(root, exclude), HashFunc: hashFunc}
}

// Detect compares the current workspace listing against prev and returns
// the ChangeSet, the metadata map to persist for the next run, and
// telemetry. The fast path ((mtime, size) unchanged) never runs the slow
// path and is trusted as unchanged outright. Whenever the fast path signals
// a possible change (new file, or mtime/size differs), the slow path
// computes a content hash and only a hash mismatch is reported as
// added/modified — a changed mtime with a matching hash is a false
// positive, not a modification.
func (ix *Indexer) Detect(prev map[string]FileMetadata) (ChangeSet, map[string]FileMetadata, Stats, error) {
	current, err := ix.Scanner.Enumerate()
	if err != nil {
		return ChangeSet{}, nil, Stats{}, err
	}

	var cs ChangeSet
	var stats Stats
	next := make(map[string]FileMetadata, len(current))

	for path, meta := range current {
		prevMeta, existed := prev[path]

		if existed && prevMeta.unchanged(meta) {
			meta.Hash = prevMeta.Hash
			next[path] = meta
			continue
		}

		stats.TotalChecked++
		hash, hashErr := ix.hashFile(path)
		if hashErr != nil {
			return ChangeSet{}, nil, Stats{}, hashErr
		}
		meta.Hash = hash
		next[path] = meta

		switch {
		case !existed:
			cs.Added = append(cs.Added, path)
			stats.ActuallyChanged++
		case prevMeta.Hash != hash:
			cs.Modified = append(cs.Modified, path)
			stats.ActuallyChanged++
		default:
			stats.FalsePositives++
		}
	}

	for path := range prev {
		if _, stillPresent := current[path]; !stillPresent {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	return cs, next, stats, nil
}

func (ix *Indexer) hashFile(relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(ix.Scanner.Root, filepath.FromSlash(relPath)))
	if err != nil {
		return "", err
	}
	return ix.HashFunc(data), nil
}
