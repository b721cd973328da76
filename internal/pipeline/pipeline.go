// Package pipeline implements the Pipeline Orchestrator:
// sequential coordination of Discovery, Hashing, and Indexing & Grouping,
// cooperative cancellation and optional deadline, progress fan-out, and the
// at-most-one-active-scan-per-process guard.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/user/dupeseer/internal/cache"
	"github.com/user/dupeseer/internal/grouping"
	"github.com/user/dupeseer/internal/logging"
	"github.com/user/dupeseer/internal/phash"
	"github.com/user/dupeseer/internal/scanner"
	"github.com/user/dupeseer/internal/types"
)

// Pipeline coordinates the scanning stages and owns the process-lifetime
// HashCache instances. A single Pipeline should be constructed
// once per process and reused across scans.
type Pipeline struct {
	logger     logging.Logger
	byteBudget int64

	mu     sync.Mutex
	caches map[string]*cache.Cache

	active atomic.Bool
}

// New creates a Pipeline. cacheByteBudget bounds each opened HashCache's LRU
// working set.
func New(logger logging.Logger, cacheByteBudget int64) *Pipeline {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Pipeline{
		logger:     logger,
		byteBudget: cacheByteBudget,
		caches:     make(map[string]*cache.Cache),
	}
}

// Scan runs one complete scan to produce a types.ScanResult. It enforces
// the at-most-one-active-scan guard: a concurrent call to Scan on
// the same Pipeline returns a ConfigError immediately rather than queuing
// or blocking. A non-nil error here is always a fatal ConfigError (request
// validation or the busy guard) — per-file failures and cancellation are
// reported inside the returned ScanResult instead.
func (p *Pipeline) Scan(ctx context.Context, req *types.ScanRequest, sink Sink) (types.ScanResult, error) {
	if verr := req.Validate(); verr != nil {
		return types.ScanResult{}, verr
	}
	if !p.active.CompareAndSwap(false, true) {
		return types.ScanResult{}, &types.ScanError{Kind: types.KindConfig, Detail: "a scan is already in progress"}
	}
	defer p.active.Store(false)

	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	msink := newMonotonicSink(sink)

	start := time.Now()
	if deadline := req.Deadline(start); !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	errs, collectErrs := newErrorCollector()

	candidates := p.runDiscovery(ctx, req, msink, collectErrs)

	if ctx.Err() != nil {
		return p.cancelledResult(msink, len(candidates), start, *errs), nil
	}

	items := p.runHashing(ctx, req, candidates, msink, errs)

	if ctx.Err() != nil {
		return p.cancelledResult(msink, len(candidates), start, *errs), nil
	}

	groups := p.runGrouping(ctx, req, items, msink)

	if ctx.Err() != nil {
		return p.cancelledResult(msink, len(candidates), start, *errs), nil
	}

	durationMS := time.Since(start).Milliseconds()
	result := types.NewScanResult(groups, len(candidates), durationMS, *errs, false)
	p.logger.Info("scan complete: %d candidate(s), %d group(s), %s reclaimable, %dms",
		result.TotalCandidates, result.Groups.Len(), humanize.Bytes(uint64(result.ReclaimableTotal)), durationMS)
	msink.Send(Event{Kind: PipelineCompleted})
	return result, nil
}

func (p *Pipeline) runDiscovery(ctx context.Context, req *types.ScanRequest, sink Sink, collect func(types.FileError)) []*types.Candidate {
	p.logger.Debug("discovery: scanning %d root(s)", len(req.Paths))

	errCh := make(chan types.FileError, 256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range errCh {
			collect(e)
		}
	}()

	sc := scanner.New(req.Paths, req.IncludeHidden, req.WorkerCount, errCh, func(n uint64) {
		sink.Send(Event{Kind: ScanProgress, PhotosFound: n})
	})
	candidates := sc.Run(ctx)
	close(errCh)
	<-done

	p.logger.Debug("discovery: found %d candidate(s)", len(candidates))
	return candidates
}

func (p *Pipeline) runHashing(ctx context.Context, req *types.ScanRequest, candidates []*types.Candidate, sink Sink, errs *[]types.FileError) []grouping.Item {
	c := p.cacheFor(req.CacheDirectory)
	total := uint64(len(candidates))

	workers := req.WorkerCount
	p.logger.Debug("hashing: starting worker pool (workers=%d) for %d candidate(s)", workers, total)

	hasher := phash.New(req.Algorithm, c, workers, func(n uint64) {
		sink.Send(Event{Kind: HashProgress, Completed: n, Total: total})
	})
	results := hasher.Run(ctx, candidates)

	items := make([]grouping.Item, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			*errs = append(*errs, *r.Err)
			continue
		}
		hashMap := make(map[types.Algorithm]types.Hash, len(r.Hashes))
		for _, h := range r.Hashes {
			hashMap[h.Algorithm] = h
		}
		items = append(items, grouping.Item{Candidate: r.Candidate, Hashes: hashMap})
	}

	p.logger.Debug("hashing: computed hashes for %d of %d candidate(s)", len(items), total)
	return items
}

func (p *Pipeline) runGrouping(ctx context.Context, req *types.ScanRequest, items []grouping.Item, sink Sink) []types.Group {
	p.logger.Debug("indexing: building LSH candidate index over %d item(s) across %d band(s) (threshold=%d)",
		len(items), req.Threshold+1, req.Threshold)

	sink.Send(Event{Kind: CompareProgress})
	groups := grouping.Run(ctx, items, req.Algorithm, req.Threshold)
	var found uint64
	for range groups {
		found++
		sink.Send(Event{Kind: CompareDuplicateFound, Completed: found})
	}

	p.logger.Debug("grouping: formed %d component(s)", len(groups))
	return groups
}

func (p *Pipeline) cancelledResult(sink Sink, totalCandidates int, start time.Time, errs []types.FileError) types.ScanResult {
	sink.Send(Event{Kind: PipelineCancelled})
	return types.NewScanResult(nil, totalCandidates, time.Since(start).Milliseconds(), errs, true)
}

// cacheFor returns the process-lifetime HashCache for dir, opening it on
// first use and reusing it thereafter. An empty dir disables the cache for
// that call: an empty CacheDirectory means run without a persistent cache.
func (p *Pipeline) cacheFor(dir string) *cache.Cache {
	if dir == "" {
		return cache.Open("", 0, nil)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.caches[dir]; ok {
		return c
	}
	c := cache.Open(dir, p.byteBudget, func(err error) {
		p.logger.Warn("hash cache unavailable, continuing cold: %v", err)
	})
	p.caches[dir] = c
	return c
}

// CacheInfo reports entry count, size, and location for the HashCache
// rooted at the given cache directory.
func (p *Pipeline) CacheInfo(dir string) (entryCount int, sizeBytes int64, location string) {
	return p.cacheFor(dir).Info()
}

// ClearCache removes all entries from the HashCache rooted at dir.
func (p *Pipeline) ClearCache(dir string) error {
	return p.cacheFor(dir).Clear()
}

// Close flushes and atomically persists every HashCache this Pipeline has
// opened. Call once at process exit.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, c := range p.caches {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newErrorCollector returns a slice pointer plus a thread-safe collector
// function, so per-file errors discovered by concurrent stages can be
// gathered without a data race.
func newErrorCollector() (errs *[]types.FileError, collect func(types.FileError)) {
	var mu sync.Mutex
	var list []types.FileError
	return &list, func(e types.FileError) {
		mu.Lock()
		list = append(list, e)
		mu.Unlock()
	}
}
