package grouping

import "github.com/user/dupeseer/internal/types"

// selectRepresentative applies the fixed priority, first winner
// takes all: largest pixel area (only considered if every member's
// dimensions are known), then largest file size, then oldest mtime, then
// lexicographically smallest canonical path as the final, total tie-break.
func selectRepresentative(members []*types.Candidate) *types.Candidate {
	candidates := members

	if allHaveKnownArea(candidates) {
		candidates = tieBreak(candidates, func(c *types.Candidate) int64 { return c.Area() })
		if len(candidates) == 1 {
			return candidates[0]
		}
	}

	candidates = tieBreak(candidates, func(c *types.Candidate) int64 { return c.Size })
	if len(candidates) == 1 {
		return candidates[0]
	}

	candidates = tieBreak(candidates, func(c *types.Candidate) int64 { return -c.ModTime.UnixNano() })
	if len(candidates) == 1 {
		return candidates[0]
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Path < best.Path {
			best = c
		}
	}
	return best
}

func allHaveKnownArea(members []*types.Candidate) bool {
	for _, c := range members {
		if c.Area() == 0 {
			return false
		}
	}
	return true
}

// tieBreak returns the subset of members sharing the maximum value of key
// (all ties), so the caller can either stop (a unique winner) or proceed to
// the next tier.
func tieBreak(members []*types.Candidate, key func(*types.Candidate) int64) []*types.Candidate {
	best := key(members[0])
	for _, c := range members[1:] {
		if v := key(c); v > best {
			best = v
		}
	}
	var tied []*types.Candidate
	for _, c := range members {
		if key(c) == best {
			tied = append(tied, c)
		}
	}
	return tied
}
