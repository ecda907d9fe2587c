// Package cos ("common OS/storage") holds the small, dependency-free types
// shared by the checksum, lock, and partial-file packages: the
// checksum-algorithm contract, the SidecarName path helper, and the lock
// and partial-file extension constants used throughout the connector.
package cos

import "hash"

// ChecksumAlgorithm is the contract a repository layout supplies for each
// checksum kind it wants validated (spec.md §3: "externally supplied").
// Name is the wire/display name ("SHA-1", "MD5", ...); Extension is the
// sidecar file suffix ("sha1", "md5", ...).
type ChecksumAlgorithm interface {
	Name() string
	Extension() string
	New() hash.Hash
}

// SidecarName returns the sidecar filename for a destination file and an
// algorithm, e.g. SidecarName("foo.jar", alg) == "foo.jar.sha1".
func SidecarName(destFile string, alg ChecksumAlgorithm) string {
	return destFile + "." + alg.Extension()
}

const (
	LockExt = ".lock"
	PartExt = ".part"
)
