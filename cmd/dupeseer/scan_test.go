package main

import (
	"testing"

	"github.com/user/dupeseer/internal/pipeline"
)

// =============================================================================
// Section: scan progress sink
// =============================================================================

func TestScanProgressSinkDisabledNeverPanics(t *testing.T) {
	sink := newScanProgressSink(false)
	sink.Send(pipeline.Event{Kind: pipeline.ScanProgress, PhotosFound: 3})
	sink.Send(pipeline.Event{Kind: pipeline.HashProgress, Completed: 1, Total: 3})
	sink.Send(pipeline.Event{Kind: pipeline.CompareProgress})
	sink.Send(pipeline.Event{Kind: pipeline.CompareDuplicateFound, Completed: 1})
	sink.finish()
}

func TestScanProgressSinkTracksDuplicateCount(t *testing.T) {
	sink := newScanProgressSink(false)
	sink.Send(pipeline.Event{Kind: pipeline.CompareDuplicateFound, Completed: 4})
	if sink.found != 4 {
		t.Errorf("found = %d, want 4", sink.found)
	}
}
