// Package index implements the LSH half of Indexing & Grouping (spec
// ): band-splitting 64-bit perceptual hashes into `b = threshold + 1`
// contiguous bands so that, by the generalized pigeonhole principle, any
// two hashes within Hamming distance ≤ threshold are guaranteed to agree
// exactly on at least one band. Confirmation (exact popcount, union-find,
// representative selection) lives in internal/grouping; this package only
// produces the deduplicated candidate-pair set.
//
// No example in the reference corpus implements LSH band-splitting for
// Hamming-space ANN search (the closest analog, Tejas242-sift's
// internal/index, builds an HNSW graph over float32 embeddings — a
// different algorithm for a different metric space), so the construction
// here follows directly rather than any one retrieved file.
package index

import "github.com/user/dupeseer/internal/types"

// band describes one contiguous bit range of a 64-bit hash: the low bit it
// starts at and how many bits wide it is.
type band struct {
	shift uint
	width uint
}

// bandLayout splits 64 bits into n equal-width contiguous bands, any
// remainder distributed one-bit-wider to the first bands, so that
// sum(width) == 64 exactly regardless of whether n divides 64.
func bandLayout(n int) []band {
	base := 64 / n
	extra := 64 % n
	bands := make([]band, n)
	shift := uint(64)
	for k := 0; k < n; k++ {
		w := base
		if k < extra {
			w++
		}
		shift -= uint(w)
		bands[k] = band{shift: shift, width: uint(w)}
	}
	return bands
}

func (b band) extract(bits uint64) uint64 {
	mask := uint64(1)<<b.width - 1
	return (bits >> b.shift) & mask
}

// Index is an LSH index over one algorithm's 64-bit hashes, built for a
// fixed similarity threshold. Items are referenced by their position in the
// slice passed to Build.
type Index struct {
	threshold int
	bands     []band
	tables    []map[uint64][]int // tables[k][bandBits] = item indices sharing that band's bits
	hashes    []types.Hash
}

// New creates an Index for the given threshold. threshold must be in [0, types.MaxThreshold]; a threshold of 0
// degenerates to a single band covering the whole 64-bit hash, i.e. only
// identical hashes become candidates.
func New(threshold int) *Index {
	bands := threshold + 1
	return &Index{
		threshold: threshold,
		bands:     bandLayout(bands),
		tables:    make([]map[uint64][]int, bands),
	}
}

// Build populates the b hash tables from a stable-ordered slice of hashes,
// one per item per image").
func (idx *Index) Build(hashes []types.Hash) {
	idx.hashes = hashes
	for k := range idx.tables {
		idx.tables[k] = make(map[uint64][]int, len(hashes))
	}
	for i, h := range hashes {
		for k, b := range idx.bands {
			key := b.extract(h.Bits)
			idx.tables[k][key] = append(idx.tables[k][key], i)
		}
	}
}

// Pair is an unordered candidate pair of item indices, i always < j.
type Pair struct {
	I, J int
}

// CandidatePairs returns the deduplicated set of index pairs that share at
// least one band. Every pair with true Hamming distance ≤ threshold is
// guaranteed present (the LSH-completeness property); pairs with distance
// > threshold may also appear (false positives) and must be filtered by
// exact confirmation downstream.
func (idx *Index) CandidatePairs() []Pair {
	seen := make(map[Pair]bool)
	var out []Pair
	for _, table := range idx.tables {
		for _, bucket := range table {
			if len(bucket) < 2 {
				continue
			}
			for a := 0; a < len(bucket); a++ {
				for b := a + 1; b < len(bucket); b++ {
					i, j := bucket[a], bucket[b]
					if i > j {
						i, j = j, i
					}
					p := Pair{I: i, J: j}
					if !seen[p] {
						seen[p] = true
						out = append(out, p)
					}
				}
			}
		}
	}
	return out
}
