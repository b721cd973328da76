package types

import "time"

// Candidate is a record produced by Discovery: an image file found under a
// scan root, with the metadata needed to derive a cache key and, later,
// to break representative-selection ties.
//
// Invariant: Path is canonicalized (symlinks resolved, trailing separators
// removed) by the scanner before a Candidate is constructed, so two
// Candidates in the same candidate list never share a Path.
type Candidate struct {
	Path      string    // canonical absolute path
	Size      int64     // bytes
	ModTime   time.Time // sub-second resolution where the filesystem provides it
	MediaType string    // inferred from extension, e.g. "jpeg", "heic", "raw"
	Width     int       // 0 if not yet known (populated during hashing decode)
	Height    int       // 0 if not yet known
}

// Area returns width*height, or 0 if dimensions are unknown.
func (c *Candidate) Area() int64 {
	return int64(c.Width) * int64(c.Height)
}

// CacheKey is the cache lookup key derived solely from a Candidate's
// canonical path, size, and modification time — never from file content.
// Two files with identical keys are treated as content-identical for the
// purpose of hash reuse only.
type CacheKey struct {
	Path    string
	Size    int64
	ModTime int64 // UnixNano; 0 means "mtime unreadable", which never hits the cache
}

// NewCacheKey derives a CacheKey for a Candidate. It is pure: it never opens
// the file's content, and it collides only if Path, Size, and ModTime all
// match. A Candidate whose ModTime could not be determined (the zero
// time.Time) produces ModTime == 0, which Cacheable reports as ineligible.
func NewCacheKey(c *Candidate) CacheKey {
	if c.ModTime.IsZero() {
		return CacheKey{Path: c.Path, Size: c.Size, ModTime: 0}
	}
	return CacheKey{Path: c.Path, Size: c.Size, ModTime: c.ModTime.UnixNano()}
}

// Cacheable reports whether a key is eligible for cache reuse. A candidate
// whose mtime could not be read is keyed with ModTime == 0, which must never
// be treated as a cache hit against another zero-mtime file.
func (k CacheKey) Cacheable() bool { return k.ModTime != 0 }
