// Package scanner implements Discovery: a parallel, cancellable
// walk of a set of directory roots that yields a deterministically-ordered
// list of image candidates.
//
// # Architecture Overview
//
// The scanner uses the same concurrent fan-out/fan-in architecture as the
// plain-file scanner it is descended from: one goroutine per directory,
// bounded by a semaphore, feeding a single collector over a buffered
// channel.
//
// # Concurrency Model
//
//  1. WALKER GOROUTINES (fan-out)
//     - One goroutine spawned per directory discovered
//     - Concurrency limited by a semaphore (walkerSem)
//     - Each walker: acquires the semaphore → lists the directory →
//       releases the semaphore → spawns child walkers
//
//  2. COLLECTOR GOROUTINE (fan-in)
//     - Single goroutine draining resultCh into a slice
//     - Runs until resultCh is closed
//
//  3. MAIN GOROUTINE (orchestrator)
//     - Spawns initial walkers, waits for them, closes resultCh, waits for
//       the collector
//
// # Cancellation
//
// Workers check ctx.Err() at the start of each directory listing, so
// cancellation latency is bounded by one directory's worth of work, never
// by the size of the whole tree.
//
// # Symlink loops
//
// A directory entry that is itself a symlink to a directory is followed
// (consistent with Discovery needing to surface images reachable only
// through a symlinked subtree), but only once: a shared, mutex-protected
// visited set keyed by each listed directory's (device, inode) pair stops
// the walker from re-entering a directory it has already listed.
package scanner

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/user/dupeseer/internal/types"
)

// extSet is the lower-cased, dot-free extension whitelist, built once at
// package init for O(1) membership checks.
var extSet = func() map[string]bool {
	m := make(map[string]bool, len(types.ExtensionWhitelist))
	for _, e := range types.ExtensionWhitelist {
		m[e] = true
	}
	return m
}()

// Scanner discovers image candidates using parallel directory traversal.
//
// A Scanner is single-use: create with New, call Run once.
type Scanner struct {
	paths         []string
	includeHidden bool
	workers       int
	errCh         chan<- types.FileError
	onBatch       func(found uint64) // called as candidates accumulate; may be nil

	walkerWg  sync.WaitGroup
	walkerSem types.Semaphore
	resultCh  chan *types.Candidate
	visited   *visitedSet
	found     atomic.Uint64
}

// New creates a Scanner. onBatch, if non-nil, is invoked periodically with
// the cumulative candidate count found so far (Scan.Progress).
func New(paths []string, includeHidden bool, workers int, errCh chan<- types.FileError, onBatch func(uint64)) *Scanner {
	return &Scanner{
		paths:         paths,
		includeHidden: includeHidden,
		workers:       workers,
		errCh:         errCh,
		onBatch:       onBatch,
	}
}

// Run executes the scan and returns a deterministically-ordered candidate
// list (lexicographic by canonical path). If ctx is
// cancelled mid-walk, Run still returns the candidates discovered before
// cancellation; callers check ctx.Err() to distinguish a complete scan from
// a cancelled one.
func (s *Scanner) Run(ctx context.Context) []*types.Candidate {
	workers := s.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	s.walkerSem = types.NewSemaphore(workers)
	s.resultCh = make(chan *types.Candidate, 1000)
	s.visited = newVisitedSet()

	var results []*types.Candidate
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for c := range s.resultCh {
			results = append(results, c)
		}
	}()

	for _, p := range s.paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			s.sendError(p, types.KindIO, err.Error())
			continue
		}
		canon, err := canonicalize(absPath)
		if err != nil {
			s.sendError(p, types.KindIO, err.Error())
			continue
		}
		s.walkDirectory(ctx, canon)
	}

	s.walkerWg.Wait()
	close(s.resultCh)
	collectorWg.Wait()

	return types.NewSorted(results, func(c *types.Candidate) string { return c.Path }).Items()
}

func (s *Scanner) walkDirectory(ctx context.Context, dir string) {
	s.walkerWg.Add(1)
	go func() {
		defer s.walkerWg.Done()

		// Suspension point: check cancellation before starting a new
		// directory listing, .
		if ctx.Err() != nil {
			return
		}

		// Every directory is listed at most once, however many paths
		// (roots, plain entries, symlinks) lead to it.
		if info, err := os.Stat(dir); err == nil && !s.visited.markIfNew(info) {
			return
		}

		s.walkerSem.Acquire()
		files, subdirs, err := s.listDirectory(dir)
		s.walkerSem.Release()
		if err != nil {
			s.sendError(dir, types.KindIO, err.Error())
			return
		}

		for _, f := range files {
			s.resultCh <- f
			n := s.found.Add(1)
			if s.onBatch != nil && n%64 == 0 {
				s.onBatch(n)
			}
		}

		for _, sub := range subdirs {
			s.walkDirectory(ctx, sub)
		}
	}()
}

// listDirectory reads a single directory, returning image candidates and
// subdirectories to recurse into.
func (s *Scanner) listDirectory(dirPath string) (files []*types.Candidate, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	for {
		entries, rerr := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if rerr != nil && rerr != io.EOF {
				return files, subdirs, rerr
			}
			break
		}
		for _, entry := range entries {
			if !s.includeHidden && strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			f, sub := s.processEntry(dirPath, entry)
			if f != nil {
				files = append(files, f)
			}
			if sub != "" {
				subdirs = append(subdirs, sub)
			}
		}
	}
	return files, subdirs, nil
}

// processEntry classifies one directory entry, following directory symlinks
// exactly once via the shared visited set.
func (s *Scanner) processEntry(dirPath string, entry os.DirEntry) (file *types.Candidate, subdir string) {
	fullPath := filepath.Join(dirPath, entry.Name())

	if entry.IsDir() {
		return nil, fullPath
	}

	if entry.Type()&os.ModeSymlink != 0 {
		return s.processSymlink(fullPath)
	}

	if !entry.Type().IsRegular() {
		return nil, ""
	}

	ext := extensionOf(entry.Name())
	if !extSet[ext] {
		return nil, ""
	}

	info, err := entry.Info()
	if err != nil {
		return nil, ""
	}
	return newCandidate(fullPath, ext, info), ""
}

// processSymlink resolves a symlink entry, re-entering a target directory
// only if its (device, inode) identity has not been visited before, and
// treating a file target as an ordinary candidate.
func (s *Scanner) processSymlink(fullPath string) (file *types.Candidate, subdir string) {
	target, err := os.Stat(fullPath) // follows the link
	if err != nil {
		return nil, "" // dangling symlink: skip
	}

	if target.IsDir() {
		canon, err := canonicalize(fullPath)
		if err != nil {
			return nil, ""
		}
		// walkDirectory skips canon if its identity was already listed,
		// which is what breaks a loop.
		return nil, canon
	}

	if !target.Mode().IsRegular() {
		return nil, ""
	}
	ext := extensionOf(fullPath)
	if !extSet[ext] {
		return nil, ""
	}
	canon, err := canonicalize(fullPath)
	if err != nil {
		return nil, ""
	}
	return newCandidate(canon, ext, target), ""
}

func (s *Scanner) sendError(path string, kind types.ErrorKind, detail string) {
	if s.errCh != nil {
		s.errCh <- types.FileError{Path: path, Kind: kind, Detail: detail}
	}
}

func extensionOf(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// canonicalize resolves symlinks in path and removes trailing separators,
// per the Candidate invariant in .
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(resolved), nil
}
