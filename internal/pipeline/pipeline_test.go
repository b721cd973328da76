package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/dupeseer/internal/logging"
	"github.com/user/dupeseer/internal/types"
)

func writePNG(t *testing.T, path string, w, h int, fill func(x, y int) color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func solid(c color.Color) func(x, y int) color.Color {
	return func(int, int) color.Color { return c }
}

func checker(a, b color.Color, cell int) func(x, y int) color.Color {
	return func(x, y int) color.Color {
		if ((x/cell)+(y/cell))%2 == 0 {
			return a
		}
		return b
	}
}

func req(t *testing.T, root string) *types.ScanRequest {
	t.Helper()
	return &types.ScanRequest{
		Paths:       []string{root},
		Algorithm:   types.Difference,
		Threshold:   types.DefaultThreshold,
		WorkerCount: 2,
	}
}

func collectEvents(sink *[]Event) Sink {
	return SinkFunc(func(e Event) { *sink = append(*sink, e) })
}

// =============================================================================
// Section 1: Empty tree
// =============================================================================

func TestScanEmptyTreeProducesNoGroups(t *testing.T) {
	root := t.TempDir()
	p := New(logging.NopLogger{}, 0)

	result, err := p.Scan(context.Background(), req(t, root), nil)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if result.TotalCandidates != 0 || result.Groups.Len() != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if result.Cancelled {
		t.Error("Cancelled = true for an empty tree")
	}
}

// =============================================================================
// Section 2: Identical copies group as Exact
// =============================================================================

func TestScanIdenticalCopiesFormOneExactGroup(t *testing.T) {
	root := t.TempDir()
	fill := checker(color.RGBA{200, 30, 30, 255}, color.RGBA{10, 10, 220, 255}, 4)
	writePNG(t, filepath.Join(root, "a.png"), 32, 32, fill)
	writePNG(t, filepath.Join(root, "b.png"), 32, 32, fill)

	p := New(logging.NopLogger{}, 0)
	result, err := p.Scan(context.Background(), req(t, root), nil)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if result.Groups.Len() != 1 {
		t.Fatalf("expected 1 group, got %d", result.Groups.Len())
	}
	g := result.Groups.Items()[0]
	if g.MatchKind != types.Exact {
		t.Errorf("MatchKind = %v, want Exact", g.MatchKind)
	}
	if g.Members.Len() != 2 {
		t.Errorf("Members = %d, want 2", g.Members.Len())
	}
}

// =============================================================================
// Section 3: Unrelated photos never group
// =============================================================================

func TestScanUnrelatedPhotosProduceNoGroups(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "red.png"), 32, 32, solid(color.RGBA{255, 0, 0, 255}))
	writePNG(t, filepath.Join(root, "pattern.png"), 32, 32, checker(color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255}, 2))

	p := New(logging.NopLogger{}, 0)
	result, err := p.Scan(context.Background(), req(t, root), nil)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if result.Groups.Len() != 0 {
		t.Fatalf("expected 0 groups, got %d", result.Groups.Len())
	}
	if result.TotalCandidates != 2 {
		t.Fatalf("TotalCandidates = %d, want 2", result.TotalCandidates)
	}
}

// =============================================================================
// Section 4: Broken file is reported, not fatal
// =============================================================================

func TestScanBrokenFileIsSkippedNotFatal(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "good.png"), 32, 32, solid(color.RGBA{0, 255, 0, 255}))
	if err := os.WriteFile(filepath.Join(root, "broken.jpg"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(logging.NopLogger{}, 0)
	result, err := p.Scan(context.Background(), req(t, root), nil)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if result.TotalCandidates != 2 {
		t.Fatalf("TotalCandidates = %d, want 2", result.TotalCandidates)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 FileError, got %d: %+v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Kind != types.KindDecode {
		t.Errorf("Errors[0].Kind = %v, want KindDecode", result.Errors[0].Kind)
	}
}

// =============================================================================
// Section 5: Cancellation
// =============================================================================

func TestScanWithPreCancelledContextReturnsCancelledResult(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 32, 32, solid(color.RGBA{1, 2, 3, 255}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []Event
	p := New(logging.NopLogger{}, 0)
	result, err := p.Scan(ctx, req(t, root), collectEvents(&events))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if !result.Cancelled {
		t.Error("Cancelled = false, want true")
	}

	found := false
	for _, e := range events {
		if e.Kind == PipelineCancelled {
			found = true
		}
	}
	if !found {
		t.Error("expected a Pipeline.Cancelled event")
	}
}

// =============================================================================
// Section 6: Config validation rejects the request before a scan starts
// =============================================================================

func TestScanRejectsInvalidRequest(t *testing.T) {
	p := New(logging.NopLogger{}, 0)
	_, err := p.Scan(context.Background(), &types.ScanRequest{}, nil)
	if err == nil {
		t.Fatal("expected a ConfigError for an empty Paths request")
	}
	serr, ok := err.(*types.ScanError)
	if !ok || serr.Kind != types.KindConfig {
		t.Errorf("err = %v, want a *types.ScanError with KindConfig", err)
	}
}

// =============================================================================
// Section 7: At-most-one-active-scan guard
// =============================================================================

func TestScanRejectsConcurrentScanOnSameProcess(t *testing.T) {
	root := t.TempDir()
	p := New(logging.NopLogger{}, 0)

	if !p.active.CompareAndSwap(false, true) {
		t.Fatal("expected to acquire the guard")
	}
	defer p.active.Store(false)

	_, err := p.Scan(context.Background(), req(t, root), nil)
	if err == nil {
		t.Fatal("expected an error while a scan is already active")
	}
	serr, ok := err.(*types.ScanError)
	if !ok || serr.Kind != types.KindConfig {
		t.Errorf("err = %v, want a *types.ScanError with KindConfig", err)
	}
}

// =============================================================================
// Section 8: Progress events fire in the expected order and stay monotonic
// =============================================================================

func TestScanEmitsCompletedEventLast(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 32, 32, solid(color.RGBA{9, 9, 9, 255}))
	writePNG(t, filepath.Join(root, "b.png"), 32, 32, solid(color.RGBA{9, 9, 9, 255}))

	var events []Event
	p := New(logging.NopLogger{}, 0)
	_, err := p.Scan(context.Background(), req(t, root), collectEvents(&events))
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	if events[len(events)-1].Kind != PipelineCompleted {
		t.Errorf("last event = %v, want Pipeline.Completed", events[len(events)-1].Kind)
	}
}

// =============================================================================
// Section 9: Cache reuse across scans on the same Pipeline
// =============================================================================

func TestCacheInfoAndClearRoundTripThroughPipeline(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 32, 32, solid(color.RGBA{40, 80, 120, 255}))

	p := New(logging.NopLogger{}, 0)
	defer p.Close()

	r := req(t, root)
	r.CacheDirectory = cacheDir
	if _, err := p.Scan(context.Background(), r, nil); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	entries, _, location := p.CacheInfo(cacheDir)
	if entries == 0 {
		t.Error("expected at least one cached entry after a scan")
	}
	if location == "" {
		t.Error("expected a non-empty cache location")
	}
	if err := p.ClearCache(cacheDir); err != nil {
		t.Fatalf("ClearCache error: %v", err)
	}
	entries, _, _ = p.CacheInfo(cacheDir)
	if entries != 0 {
		t.Errorf("entries after Clear = %d, want 0", entries)
	}
}
