package types

import "time"

// DefaultThreshold is the default similarity threshold.
const DefaultThreshold = 5

// MaxThreshold is the largest similarity threshold accepted.
const MaxThreshold = 10

// ExtensionWhitelist is the recognized-extension policy for Discovery,
// lower-cased and without the leading dot.
var ExtensionWhitelist = []string{
	"jpg", "jpeg", "png", "heic", "heif", "tiff", "webp", "bmp", "gif",
	"arw", "cr2", "cr3", "nef", "dng", "raf", "orf", "rw2", "raw",
}

// RawExtensions is the subset of ExtensionWhitelist that requires embedded-
// preview extraction rather than direct decode (step 2).
var RawExtensions = map[string]bool{
	"arw": true, "cr2": true, "cr3": true, "nef": true, "dng": true,
	"raf": true, "orf": true, "rw2": true, "raw": true,
}

// ScanRequest configures a scan. It is the core's sole entry point for
// configuration — the CLI/config layer resolves everything else (defaults,
// env, config files) down to one of these before calling the pipeline.
type ScanRequest struct {
	Paths          []string
	Algorithm      Algorithm
	Threshold      int
	IncludeHidden  bool
	WorkerCount    int // 0 means "use logical cores"
	DeadlineMS     int64 // 0 means "no deadline"
	CacheDirectory string // empty disables the persistent cache
}

// Validate checks the request against the ConfigError conditions. A
// request that fails validation never starts a scan.
func (r *ScanRequest) Validate() *ScanError {
	if len(r.Paths) == 0 {
		return &ScanError{Kind: KindConfig, Detail: "paths must not be empty"}
	}
	if r.Threshold < 0 || r.Threshold > MaxThreshold {
		return &ScanError{Kind: KindConfig, Detail: "threshold must be in [0,10]"}
	}
	return nil
}

// Deadline returns the absolute deadline derived from DeadlineMS and the
// given start time, or the zero time if no deadline was configured.
func (r *ScanRequest) Deadline(start time.Time) time.Time {
	if r.DeadlineMS <= 0 {
		return time.Time{}
	}
	return start.Add(time.Duration(r.DeadlineMS) * time.Millisecond)
}
