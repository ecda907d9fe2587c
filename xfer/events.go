// Package xfer implements the transfer-listener adapter from spec.md §4.5:
// it wraps a user-supplied Listener, drives the strict
// INITIATED→STARTED→PROGRESSED*→CORRUPTED*→(SUCCEEDED|FAILED) event
// sequence, and primes/feeds the owned checksum.Calculator.
package xfer

// EventType enumerates the transfer-listener event kinds (spec.md §4.5, §8).
type EventType int

const (
	Initiated EventType = iota
	Started
	Progressed
	Succeeded
	Corrupted
	Failed
)

func (t EventType) String() string {
	switch t {
	case Initiated:
		return "INITIATED"
	case Started:
		return "STARTED"
	case Progressed:
		return "PROGRESSED"
	case Succeeded:
		return "SUCCEEDED"
	case Corrupted:
		return "CORRUPTED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is the single value type notified to a Listener for every
// lifecycle transition of one transfer.
type Event struct {
	Type EventType

	// Started
	DataOffset int64
	DataLength int64

	// Progressed
	Transferred int64

	// Failed / Corrupted
	Err error
}

// Listener is the user-provided sink a TransferRequest carries (spec.md §3).
// TransferInitiated, TransferStarted, TransferProgressed and
// TransferCorrupted may return an error to request cancellation; the
// cancellation terminates the task with FAILED (spec.md §5). Errors
// returned from TransferSucceeded and TransferFailed are ignored.
type Listener interface {
	TransferInitiated(Event) error
	TransferStarted(Event) error
	TransferProgressed(Event) error
	TransferCorrupted(Event) error
	TransferSucceeded(Event) error
	TransferFailed(Event) error
}

// NoopListener implements Listener with no-ops, for callers with no
// observation needs (e.g. a PeekTask that still needs a sink to satisfy
// the TransferRequest contract).
type NoopListener struct{}

func (NoopListener) TransferInitiated(Event) error  { return nil }
func (NoopListener) TransferStarted(Event) error    { return nil }
func (NoopListener) TransferProgressed(Event) error { return nil }
func (NoopListener) TransferCorrupted(Event) error  { return nil }
func (NoopListener) TransferSucceeded(Event) error  { return nil }
func (NoopListener) TransferFailed(Event) error     { return nil }
