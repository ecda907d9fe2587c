package connector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/depotline/connector-basic/cmn/nlog"
	"github.com/depotline/connector-basic/layout"
	"github.com/depotline/connector-basic/lock"
	"github.com/depotline/connector-basic/policy"
	"github.com/depotline/connector-basic/validate"
	"github.com/depotline/connector-basic/xfer"
)

// runGetTask implements GetTask from spec.md §4.7.
func (c *Connector) runGetTask(ctx context.Context, entity layout.Entity, loc layout.Location, dest string, pol policy.Policy, provided map[string]string, listener xfer.Listener) {
	a := xfer.NewAdapter(listener, nil)
	if err := a.Initiated(); err != nil {
		_ = a.Failed(c.wrapAdapterErr(err))
		return
	}

	if err := ensureParentDir(dest); err != nil {
		_ = a.Failed(NewLocalIO("creating parent directory for "+dest, err))
		return
	}

	uri := loc.URI
	remoteAccessCheck := func(checkCtx context.Context) error {
		if err := c.transporter.Peek(checkCtx, uri); err != nil {
			return c.classify(uri, err)
		}
		return nil
	}

	lockWaitStart := time.Now()
	partFile, err := c.partialFactory.NewInstance(ctx, dest, remoteAccessCheck)
	c.metrics.ObserveLockWait(time.Since(lockWaitStart).Seconds())
	if err != nil {
		_ = a.Failed(c.wrapPartialErr(err))
		return
	}
	if partFile == nil {
		// Another process finished this destination concurrently.
		nlog.Infof("connector: %s already installed by a concurrent download, skipping", dest)
		_ = a.Succeeded()
		return
	}

	externalLocs, err := c.layout.ChecksumLocationsOf(entity, false, loc)
	if err != nil {
		_ = partFile.Close()
		_ = a.Failed(NewLocalIO("resolving checksum locations", err))
		return
	}

	v := validate.New(partFile.Path(), c.layout.AlgorithmFactories(), externalLocs, pol, provided, c.fetchChecksumSidecar, c.negCache)
	v.SetMetrics(c.metrics)
	a.SetCalculator(v.NewChecksumCalculator(partFile.Path()))

	defer func() {
		_ = partFile.Close()
		v.Close()
	}()

	var taskErr error
	for trial := 0; trial < 2; trial++ {
		resume := partFile.IsResume() && trial == 0
		v.SetRetryWorthy(resume)

		if err := c.transporter.Get(ctx, uri, partFile.Path(), resume, a.Started, a.Progressed); err != nil {
			taskErr = c.classify(uri, err)
			break
		}

		// smart-checksums would forward transport-reported inline digests
		// here; none of this module's transporter backends surface them
		// (see DESIGN.md), so REMOTE_INCLUDED never has a candidate.
		var included map[string]string

		valErr := v.Validate(ctx, a.Checksums(), included)
		if valErr == nil {
			break
		}

		var mismatch *policy.MismatchError
		if as, ok := valErr.(*policy.MismatchError); ok {
			mismatch = as
		}
		if mismatch == nil {
			taskErr = translateValidateErr(valErr)
			break
		}

		failure := mismatch.Failure
		if trial == 0 && failure.RetryWorthy {
			if err := a.Corrupted(valErr); err != nil {
				taskErr = c.wrapAdapterErr(err)
				break
			}
			v.Retry()
			continue
		}
		if v.Handle(failure) {
			if err := a.Corrupted(valErr); err != nil {
				taskErr = c.wrapAdapterErr(err)
			}
			break
		}
		taskErr = NewChecksumFailure(failure)
		break
	}

	if taskErr != nil {
		_ = a.Failed(taskErr)
		return
	}

	if err := moveFile(partFile.Path(), dest); err != nil {
		_ = a.Failed(NewLocalIO("finalizing "+dest, err))
		return
	}
	if c.cfg.PersistedChecksums(c.repositoryID) {
		v.Commit()
	}
	_ = a.Succeeded()
}

func (c *Connector) wrapPartialErr(err error) error {
	if _, ok := err.(*Error); ok {
		return err // already classified by the remote-access check
	}
	if errors.Is(err, lock.ErrTimeout) {
		return NewLockTimeout(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCancelled(err)
	}
	return NewLocalIO("acquiring partial file", err)
}

func translateValidateErr(err error) error {
	if errors.Is(err, policy.ErrNoMatch) {
		return NewChecksumMissing()
	}
	return NewLocalIO("checksum policy aborted validation", err)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
