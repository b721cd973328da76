package main

import (
	"errors"

	"github.com/user/dupeseer/internal/types"
)

// exitCodeOf maps a terminal error to the CLI exit-code contract:
// 2 for cancellation, 1 for everything else. Returns ok=false for errors
// with no opinion on exit code, so callers fall back to a default.
func exitCodeOf(err error) (code int, ok bool) {
	var serr *types.ScanError
	if errors.As(err, &serr) {
		return serr.ExitCode(), true
	}
	return 0, false
}
