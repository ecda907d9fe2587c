//go:build !windows

package lock

import (
	"os"

	"golang.org/x/sys/unix"
)

// tryLock attempts a non-blocking exclusive flock(2) on f. The lock is
// advisory and belongs to the open file, so a second open of the same lock
// file sees it as held whether it comes from another process or this one.
func tryLock(f *os.File) (bool, error) {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func unlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
