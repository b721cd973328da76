//go:build windows

package scanner

import "os"

// identityOf has no portable (device, inode) equivalent on Windows via
// os.FileInfo alone, so symlinked directories are always treated as unseen.
// Traversal still terminates because EvalSymlinks bounds the symlink chain
// length; only the redundant-listing optimization is lost.
func identityOf(info os.FileInfo) (dirIdentity, bool) {
	return dirIdentity{}, false
}
