package shadowfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("line1\nline2\n"), 0o644))
	return dir
}

func TestReadFileFallsThroughToDiskThenOverlay(t *testing.T) {
	dir := newTestWorkspace(t)
	fs, err := New(dir)
	require.NoError(t, err)

	content, err := fs.ReadFile("app.py")
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\n", content)

	fs.WriteFile("app.py", "line1\nline2 modified\n")
	content, err = fs.ReadFile("app.py")
	require.NoError(t, err)
	require.Equal(t, "line1\nline2 modified\n", content)

	// Real file on disk must still be untouched.
	raw, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\n", string(raw))
}

func TestGetDiffReportsAddedAndRemovedLines(t *testing.T) {
	dir := newTestWorkspace(t)
	fs, err := New(dir)
	require.NoError(t, err)

	fs.WriteFile("app.py", "line1\nline3\n")
	diffs := fs.GetDiff()
	require.Len(t, diffs, 1)
	require.Equal(t, "app.py", diffs[0].FilePath)
	require.Equal(t, 1, diffs[0].LinesAdded)
	require.Equal(t, 1, diffs[0].LinesRemoved)
	require.Contains(t, diffs[0].UnifiedDiff, "a/app.py")
	require.Contains(t, diffs[0].UnifiedDiff, "b/app.py")
}

func TestCommitWritesOverlayThenClearsIt(t *testing.T) {
	dir := newTestWorkspace(t)
	fs, err := New(dir)
	require.NoError(t, err)

	fs.WriteFile("app.py", "committed content\n")
	require.NoError(t, fs.Commit())
	require.False(t, fs.HasChanges())

	raw, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	require.Equal(t, "committed content\n", string(raw))
}

func TestCommitCreatesNewNestedFile(t *testing.T) {
	dir := newTestWorkspace(t)
	fs, err := New(dir)
	require.NoError(t, err)

	fs.WriteFile("pkg/sub/new.py", "print('hi')\n")
	require.NoError(t, fs.Commit())

	raw, err := os.ReadFile(filepath.Join(dir, "pkg", "sub", "new.py"))
	require.NoError(t, err)
	require.Equal(t, "print('hi')\n", string(raw))
}

func TestRollbackDiscardsOverlayWithoutTouchingDisk(t *testing.T) {
	dir := newTestWorkspace(t)
	fs, err := New(dir)
	require.NoError(t, err)

	fs.WriteFile("app.py", "should never land\n")
	fs.Rollback()
	require.False(t, fs.HasChanges())

	raw, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	require.Equal(t, "line1\nline2\n", string(raw))
}

func TestGetStateReflectsOverlay(t *testing.T) {
	dir := newTestWorkspace(t)
	fs, err := New(dir)
	require.NoError(t, err)

	state := fs.GetState()
	require.True(t, state.IsCommitted)
	require.Empty(t, state.ModifiedFiles)

	fs.WriteFile("app.py", "line1\nline2\nline3\n")
	state = fs.GetState()
	require.False(t, state.IsCommitted)
	require.Equal(t, []string{"app.py"}, state.ModifiedFiles)
	require.Equal(t, 1, state.TotalLinesAdded)
}

func TestNewRejectsMissingWorkspace(t *testing.T) {
	_, err := New("/nonexistent/workspace/path")
	require.Error(t, err)
}
