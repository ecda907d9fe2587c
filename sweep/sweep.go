// Package sweep is the operator-invoked orphaned-file collector from
// SPEC_FULL.md §9: the explicit replacement for the original Maven
// resolver's finalizer-driven PartialFile cleanup (see
// original_source/_INDEX.md and this module's Design Notes), which this
// spec drops as non-deterministic. Never run automatically, and never
// from inside a transfer.
package sweep

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/depotline/connector-basic/cmn/cos"
	"github.com/depotline/connector-basic/lock"
)

// Result reports what one Sweep pass did.
type Result struct {
	Removed []string
	Skipped []string // held lock, or too young
	Errors  map[string]error
}

// Sweep walks root and removes orphaned *.part/*.part.lock/*-*.tmp files
// whose mtime is older than olderThan (measured against now) and whose
// lock is not currently held. It never touches a file whose companion
// .lock is held, regardless of age.
func Sweep(root string, olderThan time.Duration, now time.Time) (Result, error) {
	res := Result{Errors: map[string]error{}}
	cutoff := now.Add(-olderThan)

	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if !isOrphanCandidate(osPathname) {
				return nil
			}
			sweepOne(osPathname, cutoff, &res)
			return nil
		},
	})
	if err != nil {
		return res, err
	}
	return res, nil
}

func sweepOne(path string, cutoff time.Time, res *Result) {
	fi, err := os.Lstat(path)
	if err != nil {
		res.Errors[path] = err
		return
	}
	if fi.ModTime().After(cutoff) {
		res.Skipped = append(res.Skipped, path)
		return
	}
	if strings.HasSuffix(path, cos.LockExt) {
		if lock.IsHeld(path) {
			res.Skipped = append(res.Skipped, path)
			return
		}
	} else if lock.IsHeld(path + cos.LockExt) {
		res.Skipped = append(res.Skipped, path)
		return
	}

	if err := os.Remove(path); err != nil {
		res.Errors[path] = err
		return
	}
	res.Removed = append(res.Removed, path)
}

func isOrphanCandidate(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, cos.PartExt) || strings.HasSuffix(base, cos.LockExt) {
		return true
	}
	if strings.HasPrefix(base, "checksum-") && strings.HasSuffix(base, ".tmp") {
		return true
	}
	// "*-*.tmp": a hyphen-delimited stem followed by .tmp, the temp-file
	// naming this module's own os.CreateTemp("*-*.tmp"-style patterns use.
	if strings.HasSuffix(base, ".tmp") && strings.Contains(strings.TrimSuffix(base, ".tmp"), "-") {
		return true
	}
	return false
}
