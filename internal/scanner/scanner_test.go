//go:build unix

package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/dupeseer/internal/types"
)

func createFile(t *testing.T, path string, size int64) {
	t.Helper()
	data := make([]byte, size)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, paths []string, includeHidden bool) []*types.Candidate {
	t.Helper()
	s := New(paths, includeHidden, 4, nil, nil)
	return s.Run(context.Background())
}

// =============================================================================
// Section 1: Basic Discovery
// =============================================================================

func TestDiscoversImagesInNestedDirectories(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a.jpg"), 100)
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	createFile(t, filepath.Join(root, "sub", "b.png"), 200)

	files := run(t, []string{root}, false)
	if len(files) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(files))
	}
}

func TestNonWhitelistedExtensionsAreSkipped(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a.jpg"), 100)
	createFile(t, filepath.Join(root, "notes.txt"), 100)
	createFile(t, filepath.Join(root, "archive.zip"), 100)

	files := run(t, []string{root}, false)
	if len(files) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(files))
	}
	if files[0].MediaType != "jpg" {
		t.Errorf("MediaType = %q, want jpg", files[0].MediaType)
	}
}

func TestExtensionMatchIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a.JPG"), 100)
	createFile(t, filepath.Join(root, "b.PnG"), 100)

	files := run(t, []string{root}, false)
	if len(files) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(files))
	}
}

// =============================================================================
// Section 2: Hidden files
// =============================================================================

func TestHiddenFilesExcludedByDefault(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, ".hidden.jpg"), 100)
	createFile(t, filepath.Join(root, "visible.jpg"), 100)

	files := run(t, []string{root}, false)
	if len(files) != 1 {
		t.Fatalf("expected 1 candidate with hidden excluded, got %d", len(files))
	}
}

func TestHiddenFilesIncludedWhenRequested(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, ".hidden.jpg"), 100)
	createFile(t, filepath.Join(root, "visible.jpg"), 100)

	files := run(t, []string{root}, true)
	if len(files) != 2 {
		t.Fatalf("expected 2 candidates with hidden included, got %d", len(files))
	}
}

func TestHiddenDirectoryExcludedByDefault(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	createFile(t, filepath.Join(root, ".git", "a.jpg"), 100)
	createFile(t, filepath.Join(root, "visible.jpg"), 100)

	files := run(t, []string{root}, false)
	if len(files) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(files))
	}
}

// =============================================================================
// Section 3: Edge cases
// =============================================================================

func TestZeroByteFilesAreEmittedNotSkipped(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "empty.jpg"), 0)

	files := run(t, []string{root}, false)
	if len(files) != 1 {
		t.Fatalf("expected zero-byte file to be discovered, got %d", len(files))
	}
	if files[0].Size != 0 {
		t.Errorf("Size = %d, want 0", files[0].Size)
	}
}

func TestDeterministicOrderingByPath(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "zeta.jpg"), 10)
	createFile(t, filepath.Join(root, "alpha.jpg"), 10)
	createFile(t, filepath.Join(root, "mike.jpg"), 10)

	var first []string
	for i := 0; i < 5; i++ {
		files := run(t, []string{root}, false)
		var paths []string
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		if first == nil {
			first = paths
			continue
		}
		for j := range paths {
			if paths[j] != first[j] {
				t.Fatalf("run %d: order changed: %v vs %v", i, paths, first)
			}
		}
	}
}

// =============================================================================
// Section 4: Symlinks
// =============================================================================

func TestSymlinkedFileIsFollowed(t *testing.T) {
	root := t.TempDir()
	realDir := t.TempDir()
	target := filepath.Join(realDir, "real.jpg")
	createFile(t, target, 50)

	if err := os.Symlink(target, filepath.Join(root, "link.jpg")); err != nil {
		t.Fatal(err)
	}

	files := run(t, []string{root}, false)
	if len(files) != 1 {
		t.Fatalf("expected symlinked file to be discovered, got %d", len(files))
	}

	wantPath, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatal(err)
	}
	if files[0].Path != wantPath {
		t.Errorf("Path = %q, want canonicalized target %q (not the symlink's own path)", files[0].Path, wantPath)
	}
}

func TestSymlinkLoopDoesNotHang(t *testing.T) {
	root := t.TempDir()
	loop := filepath.Join(root, "loop")
	if err := os.Symlink(root, loop); err != nil {
		t.Fatal(err)
	}
	createFile(t, filepath.Join(root, "a.jpg"), 10)

	done := make(chan struct{})
	go func() {
		run(t, []string{root}, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not terminate: symlink loop not broken")
	}
}

// =============================================================================
// Section 5: Cancellation
// =============================================================================

func TestCancellationStopsDiscovery(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		sub := filepath.Join(root, "d"+string(rune('a'+i%26)))
		_ = os.Mkdir(sub, 0o755)
		createFile(t, filepath.Join(sub, "f.jpg"), 10)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel before starting

	s := New([]string{root}, false, 4, nil, nil)
	files := s.Run(ctx)

	if len(files) != 0 {
		t.Errorf("expected 0 candidates with pre-cancelled context, got %d", len(files))
	}
}

// =============================================================================
// Section 6: Errors
// =============================================================================

func TestUnreadableRootReportsError(t *testing.T) {
	errCh := make(chan types.FileError, 10)
	s := New([]string{"/nonexistent/path/for/dupeseer/test"}, false, 2, errCh, nil)
	files := s.Run(context.Background())

	if len(files) != 0 {
		t.Errorf("expected 0 candidates for nonexistent root, got %d", len(files))
	}

	select {
	case e := <-errCh:
		if e.Kind != types.KindIO {
			t.Errorf("error kind = %v, want KindIO", e.Kind)
		}
	default:
		t.Error("expected an error to be reported for unreadable root")
	}
}
