// Package grouping implements the confirmation and grouping half of
// Indexing & Grouping: exact Hamming confirmation of LSH
// candidate pairs, Fusion's 2-of-3 algorithm voting, union-find clustering,
// representative selection, match-kind assignment, and group id
// computation.
package grouping

import (
	"context"

	"github.com/user/dupeseer/internal/index"
	"github.com/user/dupeseer/internal/types"
)

// Item is one hashed candidate as seen by Grouping: its Discovery record
// plus the hash(es) computed for it. For a base algorithm Hashes holds one
// entry; for Fusion it holds all three (Average, Difference, Perceptual).
type Item struct {
	Candidate *types.Candidate
	Hashes    map[types.Algorithm]types.Hash
}

// edge is a confirmed pair with the Hamming distance (or, for Fusion, the
// worst confirming algorithm's distance) that confirmed it.
type edge struct {
	i, j     int
	distance int
}

// Run executes the confirmation and grouping algorithm over a
// stable-ordered item list, returning the resulting duplicate groups
// (components of size 1 discarded). algorithm selects which hash(es) to
// confirm on; threshold is the configured similarity threshold. Run checks
// ctx for cancellation at each candidate-pair batch; a cancelled ctx yields
// whatever groups can be formed from the edges confirmed so far.
func Run(ctx context.Context, items []Item, algorithm types.Algorithm, threshold int) []types.Group {
	if len(items) == 0 {
		return nil
	}

	var edges []edge
	if algorithm == types.Fusion {
		edges = confirmFusion(ctx, items, threshold)
	} else {
		edges = confirmBase(ctx, items, algorithm, threshold)
	}

	uf := newUnionFind(len(items))
	for _, e := range edges {
		uf.union(e.i, e.j)
	}

	components := uf.components()
	groups := make([]types.Group, 0, len(components))
	for _, member := range components {
		groups = append(groups, buildGroup(items, member, edges, threshold))
	}
	return groups
}

// confirmBase runs the LSH candidate generator for a single base algorithm
// and confirms each candidate pair by exact popcount, checking ctx for
// cancellation once per candidate-pair batch.
func confirmBase(ctx context.Context, items []Item, algorithm types.Algorithm, threshold int) []edge {
	hashes := make([]types.Hash, len(items))
	for i, it := range items {
		hashes[i] = it.Hashes[algorithm]
	}

	idx := index.New(threshold)
	idx.Build(hashes)

	var edges []edge
	for _, p := range idx.CandidatePairs() {
		if ctx.Err() != nil {
			return edges
		}
		d := hashes[p.I].Hamming(hashes[p.J])
		if d <= threshold {
			edges = append(edges, edge{i: p.I, j: p.J, distance: d})
		}
	}
	return edges
}

// confirmFusion builds one LSH index per base algorithm, unions their
// candidate sets, and accepts a pair iff at least two of the three
// algorithms independently confirm it within threshold. The
// recorded distance is the largest among the confirming algorithms, so a
// Fusion group's match kind reflects its loosest confirming signal. ctx is
// checked for cancellation once per candidate-pair batch, both while
// building the unioned candidate set and while confirming it.
func confirmFusion(ctx context.Context, items []Item, threshold int) []edge {
	bases := types.Fusion.BaseAlgorithms()
	hashesByAlg := make(map[types.Algorithm][]types.Hash, len(bases))
	for _, alg := range bases {
		hashes := make([]types.Hash, len(items))
		for i, it := range items {
			hashes[i] = it.Hashes[alg]
		}
		hashesByAlg[alg] = hashes
	}

	candidates := make(map[index.Pair]bool)
	for _, alg := range bases {
		if ctx.Err() != nil {
			return nil
		}
		idx := index.New(threshold)
		idx.Build(hashesByAlg[alg])
		for _, p := range idx.CandidatePairs() {
			candidates[p] = true
		}
	}

	var edges []edge
	for p := range candidates {
		if ctx.Err() != nil {
			return edges
		}
		confirmedCount := 0
		maxDistance := 0
		for _, alg := range bases {
			d := hashesByAlg[alg][p.I].Hamming(hashesByAlg[alg][p.J])
			if d <= threshold {
				confirmedCount++
				if d > maxDistance {
					maxDistance = d
				}
			}
		}
		if confirmedCount >= 2 {
			edges = append(edges, edge{i: p.I, j: p.J, distance: maxDistance})
		}
	}
	return edges
}

// buildGroup assembles a types.Group from a connected component: the
// group's match kind is the worst (largest) confirmed distance among edges
// whose endpoints both fall in this component, and its id and representative
// are computed by groupID and selectRepresentative.
func buildGroup(items []Item, memberIdx []int, edges []edge, threshold int) types.Group {
	inComponent := make(map[int]bool, len(memberIdx))
	for _, i := range memberIdx {
		inComponent[i] = true
	}

	maxDistance := 0
	for _, e := range edges {
		if inComponent[e.i] && inComponent[e.j] && e.distance > maxDistance {
			maxDistance = e.distance
		}
	}

	members := make([]*types.Candidate, len(memberIdx))
	for k, i := range memberIdx {
		members[k] = items[i].Candidate
	}

	rep := selectRepresentative(members)
	id := groupID(members)
	kind := types.ClassifyDistance(maxDistance, threshold)

	return types.NewGroup(id, members, rep, kind)
}
