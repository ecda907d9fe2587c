package policy

// InspectAll never short-circuits: every checksum kind and algorithm is
// inspected before a verdict is reached at OnNoMoreChecksums. One instance
// is expected to be scoped to a single TransferRequest (spec.md §3: the
// policy travels with the request), since it accumulates state across a
// single validate() call.
type InspectAll struct {
	matched    bool
	mismatches []Failure
}

var _ Policy = (*InspectAll)(nil)

func (p *InspectAll) OnChecksumMatch(algorithm string, kind Kind) bool {
	p.matched = true
	return false // keep inspecting remaining kinds/algorithms
}

func (p *InspectAll) OnChecksumMismatch(algorithm string, kind Kind, failure Failure) error {
	p.mismatches = append(p.mismatches, failure)
	return nil
}

func (p *InspectAll) OnChecksumError(algorithm string, kind Kind, err error) {}

func (p *InspectAll) OnNoMoreChecksums() error {
	if !p.matched && len(p.mismatches) > 0 {
		return &MismatchError{Failure: p.mismatches[0]}
	}
	if !p.matched {
		return ErrNoMatch
	}
	return nil
}

func (p *InspectAll) OnTransferRetry() {
	p.matched = false
	p.mismatches = nil
}

func (p *InspectAll) OnTransferChecksumFailure(failure Failure) bool {
	return p.matched
}

// Mismatches returns the mismatches observed during the most recent
// validate() call, for callers (tests, logging) that want the full picture
// rather than just the first one.
func (p *InspectAll) Mismatches() []Failure {
	return append([]Failure(nil), p.mismatches...)
}
