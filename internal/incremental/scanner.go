package incremental

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner enumerates candidate files under a workspace root, applying
// exclusion globs as relative, slash-normalized doublestar patterns, with symlink-cycle tracking so a
// looping symlink tree can't hang the walk.
type Scanner struct {
	Root    string
	Exclude []string
}

// NewScanner creates a Scanner rooted at root with the given exclusion
// glob patterns (e.g. "**/.git/**", "**/node_modules/**").
func NewScanner(root string, exclude []string) *Scanner {
	return &Scanner{Root: root, Exclude: exclude}
}

func (s *Scanner) excluded(relPath string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, pattern := range s.Exclude {
		if matched, _ := doublestar.Match(pattern, normalized); matched {
			return true
		}
	}
	return false
}

// Enumerate walks the workspace root and returns the current FileMetadata
// for every non-excluded regular file, keyed by its path relative to Root.
func (s *Scanner) Enumerate() (map[string]FileMetadata, error) {
	visitedDirs := make(map[string]bool)
	out := make(map[string]FileMetadata)

	err := filepath.Walk(s.Root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}

		if path == s.Root {
			return nil
		}

		relPath, err := filepath.Rel(s.Root, path)
		if err != nil {
			relPath = path
		}

		if info.IsDir() {
			realPath, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			if visitedDirs[realPath] {
				return filepath.SkipDir
			}
			visitedDirs[realPath] = true

			if s.excluded(relPath) || s.excluded(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if s.excluded(relPath) {
			return nil
		}

		out[filepath.ToSlash(relPath)] = FileMetadata{
			Path:    filepath.ToSlash(relPath),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
