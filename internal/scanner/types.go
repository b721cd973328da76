package scanner

import (
	"os"
	"sync"

	"github.com/user/dupeseer/internal/types"
)

// newCandidate builds a types.Candidate from a canonical path, its lower-cased
// extension, and the os.FileInfo already obtained while listing its parent
// directory. Width/Height are left at zero; the hashing stage fills them in
// once it decodes the file.
func newCandidate(path, ext string, info os.FileInfo) *types.Candidate {
	return &types.Candidate{
		Path:      path,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		MediaType: ext,
	}
}

// dirIdentity is the (device, inode) pair used to recognize a directory
// that has already been visited, so a symlink cycle is only ever
// traversed once regardless of how many different symlinks lead into it.
type dirIdentity struct {
	dev, ino uint64
}

// visitedSet tracks the identities of directories already listed, guarding
// against symlink loops. It is safe for concurrent use.
type visitedSet struct {
	mu   sync.Mutex
	seen map[dirIdentity]bool
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[dirIdentity]bool)}
}

// markIfNew reports whether info's directory identity has not been seen
// before, recording it as seen in the same atomic step. Platforms where the
// identity cannot be determined always report true (never loop-break),
// which is safe because EvalSymlinks elsewhere still bounds recursion depth
// to the filesystem's actual symlink chain length.
func (v *visitedSet) markIfNew(info os.FileInfo) bool {
	id, ok := identityOf(info)
	if !ok {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seen[id] {
		return false
	}
	v.seen[id] = true
	return true
}
