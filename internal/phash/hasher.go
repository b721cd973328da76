package phash

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/user/dupeseer/internal/types"
)

// Cache is the subset of the HashCache's interface the Hashing stage needs.
// Defined here (rather than importing internal/cache) so phash stays
// testable without a real bbolt database and so internal/cache can depend
// on internal/types without an import cycle back into phash.
type Cache interface {
	Get(key types.CacheKey, alg types.Algorithm) (types.Hash, bool)
	Put(key types.CacheKey, h types.Hash)
}

// Result is what Hasher.Run emits for one candidate: the hashes computed (or
// recalled from cache) for every algorithm the selection required, or an
// error if decoding failed.
type Result struct {
	Candidate *types.Candidate
	Hashes    []types.Hash
	Err       *types.FileError
}

// Hasher computes perceptual hashes for a stream of candidates using a
// bounded worker pool, consulting and populating a Cache to avoid
// re-decoding unchanged files across runs.
type Hasher struct {
	algorithm Algorithm
	cache     Cache
	workers   int
	onProgress func(completed uint64)
}

// Algorithm is an alias kept local to avoid a stutter; phash only ever
// operates on types.Algorithm.
type Algorithm = types.Algorithm

// New creates a Hasher for the given algorithm selection (a base algorithm
// or Fusion, which requires all three). workers <= 0 defaults to
// runtime.NumCPU(), matching the parallelism default.
func New(algorithm Algorithm, cache Cache, workers int, onProgress func(uint64)) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &Hasher{algorithm: algorithm, cache: cache, workers: workers, onProgress: onProgress}
}

// Run hashes every candidate concurrently across h.workers goroutines,
// returning one Result per input candidate (order not guaranteed to match
// input order; callers needing determinism sort by candidate path). Run
// respects ctx cancellation at the start of each candidate's processing,
// the suspension point calls out for the Hashing stage.
func (h *Hasher) Run(ctx context.Context, candidates []*types.Candidate) []Result {
	jobs := make(chan *types.Candidate, len(candidates))
	results := make(chan Result, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < h.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- h.hashOne(c)
			}
		}()
	}

	for _, c := range candidates {
		jobs <- c
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, 0, len(candidates))
	var completed uint64
	for r := range results {
		out = append(out, r)
		completed++
		if h.onProgress != nil {
			h.onProgress(completed)
		}
	}
	return out
}

// hashOne implements the per-image algorithm: consult the cache for
// every required base algorithm, decode once if any missed, compute the
// missing bits, and write new records back to the cache.
func (h *Hasher) hashOne(c *types.Candidate) Result {
	key := types.NewCacheKey(c)
	required := h.algorithm.BaseAlgorithms()

	hashes := make([]types.Hash, 0, len(required))
	missing := make([]Algorithm, 0, len(required))
	if key.Cacheable() {
		for _, alg := range required {
			if hash, ok := h.cache.Get(key, alg); ok {
				hashes = append(hashes, hash)
				continue
			}
			missing = append(missing, alg)
		}
	} else {
		missing = required
	}

	if len(missing) == 0 {
		return Result{Candidate: c, Hashes: hashes}
	}

	img, err := decodeImage(c.Path, c.MediaType)
	if err != nil {
		kind := types.KindDecode
		if de, ok := err.(*decodeErr); ok {
			kind = de.kind
		}
		return Result{Candidate: c, Err: &types.FileError{Path: c.Path, Kind: kind, Detail: err.Error()}}
	}
	img = ensureRGBA(img)

	b := img.Bounds()
	c.Width, c.Height = b.Dx(), b.Dy()

	for _, alg := range missing {
		bits := computeBits(img, alg)
		hash := types.Hash{Algorithm: alg, Bits: bits}
		hashes = append(hashes, hash)
		if key.Cacheable() {
			h.cache.Put(key, hash)
		}
	}

	return Result{Candidate: c, Hashes: hashes}
}

// computeBits dispatches to the resize size and bit-computation function
// mandated by step 3/4 for a single base algorithm.
func computeBits(img image.Image, alg Algorithm) uint64 {
	switch alg {
	case types.Average:
		return averageBits(luminanceGrid(img, 8, 8))
	case types.Difference:
		return differenceBits(luminanceGrid(img, 9, 8))
	case types.Perceptual:
		return perceptualBits(luminanceGrid(img, 32, 32))
	default:
		return 0
	}
}

type noopCache struct{}

func (noopCache) Get(types.CacheKey, types.Algorithm) (types.Hash, bool) { return types.Hash{}, false }
func (noopCache) Put(types.CacheKey, types.Hash)                        {}
