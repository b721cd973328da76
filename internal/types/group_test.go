package types

import "testing"

func newCandidate(path string, size int64) *Candidate {
	return &Candidate{Path: path, Size: size}
}

func TestNewGroupReclaimableBytes(t *testing.T) {
	rep := newCandidate("/a.jpg", 1000)
	other := newCandidate("/b.jpg", 1000)
	g := NewGroup("id1", []*Candidate{rep, other}, rep, Exact)

	if g.ReclaimableBytes != 1000 {
		t.Errorf("ReclaimableBytes = %d, want 1000", g.ReclaimableBytes)
	}
	if g.Members.Len() != 2 {
		t.Errorf("Members.Len() = %d, want 2", g.Members.Len())
	}
}

func TestNewGroupMembersSortedByPath(t *testing.T) {
	a := newCandidate("/z.jpg", 10)
	b := newCandidate("/a.jpg", 10)
	g := NewGroup("id", []*Candidate{a, b}, a, Exact)

	items := g.Members.Items()
	if items[0].Path != "/a.jpg" || items[1].Path != "/z.jpg" {
		t.Errorf("members not sorted by path: %v", items)
	}
}

func TestNewGroupsOrdering(t *testing.T) {
	rep1 := newCandidate("/a.jpg", 100)
	rep2 := newCandidate("/b.jpg", 100)

	// g1 reclaims less than g2; g1 should sort after g2 (descending bytes).
	g1 := NewGroup("zzz", []*Candidate{rep1, newCandidate("/a2.jpg", 100)}, rep1, Exact) // reclaim 100
	g2 := NewGroup("aaa", []*Candidate{rep2, newCandidate("/b2.jpg", 500)}, rep2, Exact) // reclaim 500

	groups := NewGroups([]Group{g1, g2})
	items := groups.Items()
	if items[0].ID != "aaa" {
		t.Errorf("expected highest-reclaim group first, got %q then %q", items[0].ID, items[1].ID)
	}
}

func TestNewGroupsTieBreakByID(t *testing.T) {
	rep1 := newCandidate("/a.jpg", 100)
	rep2 := newCandidate("/b.jpg", 100)

	g1 := NewGroup("bravo", []*Candidate{rep1, newCandidate("/a2.jpg", 100)}, rep1, Exact)
	g2 := NewGroup("alpha", []*Candidate{rep2, newCandidate("/b2.jpg", 100)}, rep2, Exact)

	groups := NewGroups([]Group{g1, g2})
	items := groups.Items()
	if items[0].ID != "alpha" || items[1].ID != "bravo" {
		t.Errorf("expected alpha before bravo on tie, got %q then %q", items[0].ID, items[1].ID)
	}
}

func TestNewScanResultReclaimAccounting(t *testing.T) {
	rep1 := newCandidate("/a.jpg", 100)
	rep2 := newCandidate("/c.jpg", 200)
	g1 := NewGroup("g1", []*Candidate{rep1, newCandidate("/b.jpg", 100)}, rep1, Exact)
	g2 := NewGroup("g2", []*Candidate{rep2, newCandidate("/d.jpg", 200), newCandidate("/e.jpg", 200)}, rep2, Similar)

	result := NewScanResult([]Group{g1, g2}, 5, 1234, nil, false)

	wantReclaim := g1.ReclaimableBytes + g2.ReclaimableBytes
	if result.ReclaimableTotal != wantReclaim {
		t.Errorf("ReclaimableTotal = %d, want %d", result.ReclaimableTotal, wantReclaim)
	}
	if result.DuplicateCount != 3 { // 1 from g1 + 2 from g2
		t.Errorf("DuplicateCount = %d, want 3", result.DuplicateCount)
	}
}

func TestScanRequestValidate(t *testing.T) {
	r := &ScanRequest{Paths: nil, Threshold: 5}
	if err := r.Validate(); err == nil || err.Kind != KindConfig {
		t.Error("expected KindConfig error for empty paths")
	}

	r = &ScanRequest{Paths: []string{"/tmp"}, Threshold: 11}
	if err := r.Validate(); err == nil || err.Kind != KindConfig {
		t.Error("expected KindConfig error for out-of-range threshold")
	}

	r = &ScanRequest{Paths: []string{"/tmp"}, Threshold: 5}
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
