// Package partial implements the PartialFile factory and instance from
// spec.md §4.3: a resumable sidecar coordinated by a lock.LockFile, or a
// disposable unique temp file when resume is disabled.
package partial

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/depotline/connector-basic/cmn/cos"
	"github.com/depotline/connector-basic/cmn/nlog"
	"github.com/depotline/connector-basic/lock"
)

// Factory holds the per-connector partial-file configuration (spec.md §4.3).
type Factory struct {
	ResumeEnabled        bool
	ResumeThresholdBytes int64
	RequestTimeoutMs     int
}

// PartialFile is the handle returned by Factory.NewInstance: either a
// resumable `<dest>.part` coordinated by a LockFile, or a disposable unique
// temp file with no lock and a zero threshold.
type PartialFile struct {
	path      string
	lockFile  *lock.LockFile
	threshold int64
	resumable bool
	closed    bool
}

// NewInstance implements spec.md §4.3's newInstance logic. A nil
// *PartialFile with a nil error means "another process just finished";
// the caller must skip the download.
func (f Factory) NewInstance(ctx context.Context, destFile string, check lock.RemoteAccessCheck) (*PartialFile, error) {
	if !f.ResumeEnabled {
		return newTempInstance(destFile)
	}

	partFile := destFile + cos.PartExt
	reqTimestamp := time.Now()

	l, err := lock.Acquire(ctx, partFile, f.RequestTimeoutMs, check)
	if err != nil {
		return nil, err
	}

	if l.Concurrent() {
		if fi, statErr := os.Stat(destFile); statErr == nil {
			if !fi.ModTime().Before(reqTimestamp.Add(-100 * time.Millisecond)) {
				_ = l.Release()
				return nil, nil
			}
		}
	}

	if _, statErr := os.Stat(partFile); os.IsNotExist(statErr) {
		cf, cerr := os.OpenFile(partFile, os.O_CREATE|os.O_RDWR, 0o644)
		if cerr != nil {
			nlog.Infof("partial: could not create %s, falling back to temp file: %v", partFile, cerr)
			_ = l.Release()
			return newTempInstance(destFile)
		}
		cf.Close()
	}

	return &PartialFile{
		path:      partFile,
		lockFile:  l,
		threshold: f.ResumeThresholdBytes,
		resumable: true,
	}, nil
}

func newTempInstance(destFile string) (*PartialFile, error) {
	path := destFile + "-" + uuid.NewString() + ".tmp"
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &PartialFile{path: path}, nil
}

// Path returns the path to write into.
func (p *PartialFile) Path() string { return p.path }

// IsResume reports whether a lock is held and the current on-disk length is
// at least the configured threshold, i.e. whether the transporter should
// issue a ranged request and append rather than restart from zero.
func (p *PartialFile) IsResume() bool {
	if p.lockFile == nil {
		return false
	}
	fi, err := os.Stat(p.path)
	if err != nil {
		return false
	}
	return fi.Size() >= p.threshold
}

// Close deletes the file if it is non-resumable or below threshold, then
// releases the lock if any. Idempotent.
func (p *PartialFile) Close() error {
	if p == nil || p.closed {
		return nil
	}
	p.closed = true

	keep := false
	if p.lockFile != nil {
		if fi, err := os.Stat(p.path); err == nil {
			keep = fi.Size() >= p.threshold
		}
	}
	if !keep {
		_ = os.Remove(p.path)
	}
	if p.lockFile != nil {
		return p.lockFile.Release()
	}
	return nil
}
