// Package shadowfs is an in-memory overlay filesystem that isolates
// in-progress edits from the real workspace until an explicit commit.
// Writes land only in the overlay; the real files are untouched until
// Commit, and Rollback discards the overlay without touching disk at all.
// Reads go through the overlay first and back up first-observed disk
// content so GetDiff can show what a commit would change.
package shadowfs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kraklabs/codelayer/internal/ports"
)

// FileDiff is one overlaid file's unified diff against its pre-overlay
// content.
type FileDiff struct {
	FilePath     string
	OldContent   string
	NewContent   string
	UnifiedDiff  string
	LinesAdded   int
	LinesRemoved int
}

// State is a point-in-time summary of a ShadowFS's overlay.
type State struct {
	WorkspacePath     string
	ModifiedFiles     []string
	TotalLinesAdded   int
	TotalLinesRemoved int
	IsCommitted       bool
}

// ShadowFS is an in-memory overlay over a real workspace directory.
type ShadowFS struct {
	workspace string

	mu       sync.Mutex
	overlay  map[string]string // file_path -> pending content
	original map[string]string // file_path -> first-observed content (backup)
}

var _ ports.ShadowFSPort = (*ShadowFS)(nil)

// New creates a ShadowFS rooted at workspacePath, which must already exist.
func New(workspacePath string) (*ShadowFS, error) {
	info, err := os.Stat(workspacePath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("shadowfs: workspace does not exist: %s", workspacePath)
	}
	log.Printf("shadowfs: initialized at %s", workspacePath)
	return &ShadowFS{
		workspace: workspacePath,
		overlay:   make(map[string]string),
		original:  make(map[string]string),
	}, nil
}

// ReadFile returns filePath's content: the overlay's pending content if
// present, otherwise the real file, backing up its first-observed content
// into original so later diffs have a baseline.
func (fs *ShadowFS) ReadFile(filePath string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.readFileLocked(filePath)
}

func (fs *ShadowFS) readFileLocked(filePath string) (string, error) {
	if content, ok := fs.overlay[filePath]; ok {
		return content, nil
	}

	realPath := filepath.Join(fs.workspace, filePath)
	data, err := os.ReadFile(realPath)
	if err != nil {
		return "", fmt.Errorf("shadowfs: file not found: %s", filePath)
	}
	content := string(data)

	if _, backed := fs.original[filePath]; !backed {
		fs.original[filePath] = content
	}
	return content, nil
}

// WriteFile stores content in the overlay only; the real file is not
// touched until Commit. The first write against a never-before-seen file
// backs up its original content (empty string for a brand new file).
func (fs *ShadowFS) WriteFile(filePath, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, backed := fs.original[filePath]; !backed {
		if existing, err := fs.readFileLocked(filePath); err == nil {
			fs.original[filePath] = existing
		} else {
			fs.original[filePath] = ""
		}
	}

	fs.overlay[filePath] = content
	log.Printf("shadowfs: modified (overlay) %s (%d chars)", filePath, len(content))
}

// GetDiff returns a unified diff for every overlaid file against its
// backed-up original content.
func (fs *ShadowFS) GetDiff() []FileDiff {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.diffLocked()
}

func (fs *ShadowFS) diffLocked() []FileDiff {
	diffs := make([]FileDiff, 0, len(fs.overlay))
	for filePath, newContent := range fs.overlay {
		oldContent := fs.original[filePath]

		oldLines := splitKeepLines(oldContent)
		newLines := splitKeepLines(newContent)

		unified := difflib.UnifiedDiff{
			A:        oldLines,
			B:        newLines,
			FromFile: "a/" + filePath,
			ToFile:   "b/" + filePath,
			Context:  3,
		}
		text, _ := difflib.GetUnifiedDiffString(unified)

		diffs = append(diffs, FileDiff{
			FilePath:     filePath,
			OldContent:   oldContent,
			NewContent:   newContent,
			UnifiedDiff:  text,
			LinesAdded:   countNotIn(newLines, oldLines),
			LinesRemoved: countNotIn(oldLines, newLines),
		})
	}
	return diffs
}

// Commit writes every overlaid file to disk, creating parent directories
// as needed, then clears the overlay. All-or-nothing is approximated as
// the original does: the first write failure aborts before clearing state,
// leaving the overlay intact for a retry.
func (fs *ShadowFS) Commit() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(fs.overlay) == 0 {
		log.Printf("shadowfs: no changes to commit")
		return nil
	}

	log.Printf("shadowfs: committing %d files", len(fs.overlay))
	for filePath, content := range fs.overlay {
		realPath := filepath.Join(fs.workspace, filePath)
		if err := os.MkdirAll(filepath.Dir(realPath), 0o755); err != nil {
			return fmt.Errorf("shadowfs: commit %s: %w", filePath, err)
		}
		if err := os.WriteFile(realPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("shadowfs: commit %s: %w", filePath, err)
		}
		log.Printf("shadowfs: committed %s", filePath)
	}

	committed := len(fs.overlay)
	fs.overlay = make(map[string]string)
	fs.original = make(map[string]string)
	log.Printf("shadowfs: commit successful (%d files)", committed)
	return nil
}

// Rollback discards the overlay and its backups without touching disk.
func (fs *ShadowFS) Rollback() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(fs.overlay) == 0 {
		log.Printf("shadowfs: no changes to rollback")
		return
	}
	n := len(fs.overlay)
	fs.overlay = make(map[string]string)
	fs.original = make(map[string]string)
	log.Printf("shadowfs: rolled back %d files", n)
}

// GetState returns the current overlay summary.
func (fs *ShadowFS) GetState() State {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	diffs := fs.diffLocked()
	modified := make([]string, 0, len(fs.overlay))
	for filePath := range fs.overlay {
		modified = append(modified, filePath)
	}

	var added, removed int
	for _, d := range diffs {
		added += d.LinesAdded
		removed += d.LinesRemoved
	}

	return State{
		WorkspacePath:     fs.workspace,
		ModifiedFiles:     modified,
		TotalLinesAdded:   added,
		TotalLinesRemoved: removed,
		IsCommitted:       len(fs.overlay) == 0,
	}
}

// HasChanges reports whether any file is pending in the overlay.
func (fs *ShadowFS) HasChanges() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.overlay) > 0
}

func splitKeepLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func countNotIn(a, b []string) int {
	inB := make(map[string]int, len(b))
	for _, l := range b {
		inB[l]++
	}
	count := 0
	for _, l := range a {
		if inB[l] > 0 {
			inB[l]--
			continue
		}
		count++
	}
	return count
}
