package grouping

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/user/dupeseer/internal/types"
)

// groupID computes the stable group identifier from SHA-256 of
// the sorted canonical member paths, truncated to 128 bits, lowercase hex.
// Identical membership always yields an identical id, regardless of
// discovery order.
func groupID(members []*types.Candidate) string {
	paths := make([]string, len(members))
	for i, c := range members {
		paths[i] = c.Path
	}
	sort.Strings(paths)

	sum := sha256.Sum256([]byte(strings.Join(paths, "\n")))
	return hex.EncodeToString(sum[:16]) // 128 bits = 16 bytes
}
