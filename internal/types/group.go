package types

// Group is a confirmed duplicate group produced by the Grouping stage (
// ). Members is sorted by canonical path (NewGroup enforces this), so ID
// computation and iteration are deterministic regardless of discovery order.
//
// Invariants: len(Members) >= 2; Representative is one of Members;
// MatchKind is the worst (loosest) kind among the edges that connect the
// group.
type Group struct {
	ID               string
	Members          Sorted[*Candidate, string]
	Representative   *Candidate
	MatchKind        MatchKind
	ReclaimableBytes int64
}

// NewGroup builds a Group from its members, representative, and match kind.
// ReclaimableBytes is computed as sum(size) - size(representative), .
func NewGroup(id string, members []*Candidate, representative *Candidate, kind MatchKind) Group {
	sorted := NewSorted(members, func(c *Candidate) string { return c.Path })
	var total int64
	for _, m := range sorted.Items() {
		total += m.Size
	}
	return Group{
		ID:               id,
		Members:          sorted,
		Representative:   representative,
		MatchKind:        kind,
		ReclaimableBytes: total - representative.Size,
	}
}

// Groups is a sorted collection of Groups. requires deterministic
// output ordering: by reclaimable_bytes descending, then group id
// ascending. groupOrderKey packs both into a single sortable string so
// Groups can reuse the generic Sorted machinery.
type Groups = Sorted[Group, string]

// NewGroups builds a deterministically-ordered Groups collection: by
// reclaimable_bytes descending, then by group id ascending as the
// tie-break.
func NewGroups(groups []Group) Groups {
	return NewSorted(groups, groupOrderKey)
}

// groupOrderKey produces the sort key implementing "reclaimable_bytes
// descending, then group id ascending". Encoding the negated, zero-padded
// byte count ahead of the id makes a single ascending string sort produce
// that exact order.
func groupOrderKey(g Group) string {
	// 1<<62 comfortably exceeds any real reclaimable byte count while
	// keeping the subtraction non-negative, so the encoding is monotonic.
	const bias = int64(1) << 62
	inverted := bias - g.ReclaimableBytes
	return fmtPaddedInt(inverted) + g.ID
}

// fmtPaddedInt formats n as a fixed-width, zero-padded decimal string so
// lexicographic comparison matches numeric comparison for the non-negative
// range groupOrderKey uses it in.
func fmtPaddedInt(n int64) string {
	const width = 20 // enough digits for any int64
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf)
}

// ScanResult is the outcome of a completed scan.
type ScanResult struct {
	Groups           Groups
	TotalCandidates  int
	DuplicateCount   int // total non-representative members across all groups
	ReclaimableTotal int64
	DurationMS       int64
	Errors           []FileError
	Cancelled        bool
}

// NewScanResult aggregates per-group stats (duplicate count, reclaimable
// total) into a ScanResult. Per "Reclaim accounting":
// reclaimable_total == sum(group.reclaimable_bytes).
func NewScanResult(groups []Group, totalCandidates int, durationMS int64, errs []FileError, cancelled bool) ScanResult {
	ordered := NewGroups(groups)
	var dupCount int
	var reclaimable int64
	for _, g := range ordered.Items() {
		dupCount += g.Members.Len() - 1
		reclaimable += g.ReclaimableBytes
	}
	return ScanResult{
		Groups:           ordered,
		TotalCandidates:  totalCandidates,
		DuplicateCount:   dupCount,
		ReclaimableTotal: reclaimable,
		DurationMS:       durationMS,
		Errors:           errs,
		Cancelled:        cancelled,
	}
}
