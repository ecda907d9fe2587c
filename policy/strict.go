package policy

import "github.com/depotline/connector-basic/cmn/nlog"

// Strict accepts the first verified match and aborts immediately on any
// mismatch; a fetch error is logged and the next checksum is tried. A
// transfer with no verified checksum at all is rejected.
type Strict struct{}

var _ Policy = Strict{}

func (Strict) OnChecksumMatch(algorithm string, kind Kind) bool { return true }

func (Strict) OnChecksumMismatch(algorithm string, kind Kind, failure Failure) error {
	return &MismatchError{Failure: failure}
}

func (Strict) OnChecksumError(algorithm string, kind Kind, err error) {
	nlog.Warnf("strict policy: %s checksum (%s) fetch failed: %v", algorithm, kind, err)
}

func (Strict) OnNoMoreChecksums() error { return ErrNoMatch }

func (Strict) OnTransferRetry() {}

func (Strict) OnTransferChecksumFailure(failure Failure) bool { return false }
