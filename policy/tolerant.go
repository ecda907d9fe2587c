package policy

import "github.com/depotline/connector-basic/cmn/nlog"

// Tolerant accepts the first verified match, logs mismatches and fetch
// errors without aborting, and accepts a transfer even when no checksum
// ever matched.
type Tolerant struct{}

var _ Policy = Tolerant{}

func (Tolerant) OnChecksumMatch(algorithm string, kind Kind) bool { return true }

func (Tolerant) OnChecksumMismatch(algorithm string, kind Kind, failure Failure) error {
	nlog.Warnf("tolerant policy: %s checksum (%s) mismatch: expected=%s actual=%s",
		algorithm, kind, failure.Expected, failure.Actual)
	return nil
}

func (Tolerant) OnChecksumError(algorithm string, kind Kind, err error) {
	nlog.Warnf("tolerant policy: %s checksum (%s) fetch failed: %v", algorithm, kind, err)
}

func (Tolerant) OnNoMoreChecksums() error { return nil }

func (Tolerant) OnTransferRetry() {}

func (Tolerant) OnTransferChecksumFailure(failure Failure) bool { return true }
