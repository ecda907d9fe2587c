// Package lock implements the cross-process advisory LockFile described in
// spec.md §4.2: a sidecar "<part>.lock" file held under an exclusive,
// non-blocking OS advisory lock (flock(2) on Unix, a LockFileEx lock on the
// first byte on Windows), with a progress-sensitive wait loop for
// contending workers.
package lock

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/depotline/connector-basic/cmn/cos"
	"github.com/depotline/connector-basic/cmn/mono"
)

// ErrTimeout is returned when a peer holding the lock stops advancing the
// partial file within the configured request timeout.
var ErrTimeout = errors.New("lock: peer download stalled past request timeout")

const (
	pollInterval = 100 * time.Millisecond
	minTimeout   = 3 * time.Second
)

// RemoteAccessCheck is invoked exactly once, the first time a waiter
// observes contention, to confirm the remote repository at least knows
// about the URI being fetched (spec.md §4.2 step 1).
type RemoteAccessCheck func(ctx context.Context) error

// LockFile is a held or about-to-be-released advisory lock.
type LockFile struct {
	path       string
	f          *os.File
	concurrent bool
}

// Path returns the sidecar lock file's path.
func (l *LockFile) Path() string { return l.path }

// Concurrent reports whether this acquisition had to wait behind another
// holder at least once.
func (l *LockFile) Concurrent() bool { return l.concurrent }

// Acquire attempts a non-blocking exclusive lock on "<partFile>.lock",
// waiting out contention as long as the holder keeps advancing partFile's
// length, and failing with ErrTimeout once it stalls past requestTimeoutMs
// (or 3s, whichever is larger). A requestTimeoutMs <= 0 disables the
// timeout: the caller waits indefinitely (bounded only by ctx).
func Acquire(ctx context.Context, partFile string, requestTimeoutMs int, check RemoteAccessCheck) (*LockFile, error) {
	lockPath := partFile + cos.LockExt

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		_ = os.Remove(lockPath) // best-effort, spec.md §4.2 edge case
		return nil, err
	}

	acquired, err := tryLock(f)
	if err != nil {
		f.Close()
		_ = os.Remove(lockPath)
		return nil, err
	}
	if acquired {
		return &LockFile{path: lockPath, f: f}, nil
	}

	l := &LockFile{path: lockPath, f: f, concurrent: true}
	lastLength := partialLen(partFile)
	lastAdvance := mono.NanoTime()

	if check != nil {
		if cerr := check(ctx); cerr != nil {
			f.Close()
			return nil, cerr
		}
	}

	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}

		acquired, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		if acquired {
			return l, nil
		}

		if curLen := partialLen(partFile); curLen != lastLength {
			lastLength = curLen
			lastAdvance = mono.NanoTime()
		}

		if requestTimeoutMs > 0 {
			timeout := time.Duration(requestTimeoutMs) * time.Millisecond
			if timeout < minTimeout {
				timeout = minTimeout
			}
			if mono.Since(lastAdvance) > timeout {
				f.Close()
				return nil, ErrTimeout
			}
		}

		timer.Reset(pollInterval)
	}
}

// Release releases the byte-range lock, closes the file handle, and
// best-effort deletes the sidecar lock file.
func (l *LockFile) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unlock(l.f)
	err := l.f.Close()
	l.f = nil
	_ = os.Remove(l.path)
	return err
}

// IsHeld reports whether the lock sidecar at lockPath is currently held by
// some process. Used by package sweep to avoid reclaiming a lock file that
// is mid-download (spec.md §9 addendum). A missing lockPath is reported as
// not held.
func IsHeld(lockPath string) bool {
	f, err := os.OpenFile(lockPath, os.O_RDWR, 0o644)
	if err != nil {
		return false
	}
	defer f.Close()

	acquired, err := tryLock(f)
	if err != nil {
		return false
	}
	if !acquired {
		return true
	}
	_ = unlock(f)
	return false
}

func partialLen(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
