package xfer

import (
	"github.com/depotline/connector-basic/checksum"
	"github.com/depotline/connector-basic/cmn/debug"
)

// Adapter wraps a caller-supplied Listener, checks the event-sequence
// invariant from spec.md §4.5/§8 with debug assertions (one INITIATED,
// STARTED only after INITIATED, PROGRESSED only after STARTED, exactly one
// terminal event; STARTED is emitted again when a task retries the
// transfer), and keeps the owned checksum.Calculator primed and fed.
type Adapter struct {
	listener Listener
	calc     *checksum.Calculator

	initiated bool
	started   bool
	terminal  bool
}

// NewAdapter wraps listener. calc may be nil when no checksum policy is
// active for this transfer (spec.md §4.4 newChecksumCalculator contract).
func NewAdapter(listener Listener, calc *checksum.Calculator) *Adapter {
	if listener == nil {
		listener = NoopListener{}
	}
	return &Adapter{listener: listener, calc: calc}
}

// SetCalculator attaches calc to an adapter constructed before the
// calculator could be built (e.g. GetTask emits INITIATED before the
// PartialFile, and so the calculator's target path, exists). Must be
// called before Started.
func (a *Adapter) SetCalculator(calc *checksum.Calculator) {
	debug.Assert(!a.started, "calculator attached after STARTED")
	a.calc = calc
}

// Initiated emits exactly one INITIATED event.
func (a *Adapter) Initiated() error {
	debug.Assert(!a.initiated, "INITIATED emitted twice")
	a.initiated = true
	return wrapCancel(a.listener.TransferInitiated(Event{Type: Initiated}))
}

// Started emits STARTED and primes the checksum calculator at dataOffset
// so a resumed transfer produces a correct digest over the whole file.
func (a *Adapter) Started(dataOffset, dataLength int64) error {
	debug.Assert(a.initiated, "STARTED before INITIATED")
	a.started = true
	a.calc.Prime(dataOffset)
	return wrapCancel(a.listener.TransferStarted(Event{Type: Started, DataOffset: dataOffset, DataLength: dataLength}))
}

// Progressed emits PROGRESSED and feeds buf to the calculator without
// disturbing the caller's view of buf.
func (a *Adapter) Progressed(buf []byte, transferred int64) error {
	debug.Assert(a.started, "PROGRESSED before STARTED")
	a.calc.Update(buf)
	return wrapCancel(a.listener.TransferProgressed(Event{Type: Progressed, Transferred: transferred}))
}

// Corrupted emits a CORRUPTED event. It may precede the terminal event any
// number of times (a tolerated/retried mismatch still records one
// CORRUPTED per occurrence).
func (a *Adapter) Corrupted(err error) error {
	return wrapCancel(a.listener.TransferCorrupted(Event{Type: Corrupted, Err: err}))
}

func wrapCancel(err error) error {
	if err == nil {
		return nil
	}
	return &Cancelled{Cause: err}
}

// Succeeded emits the terminal SUCCEEDED event. Idempotent guard via debug
// assertion only; the task runners are responsible for calling this
// exactly once.
func (a *Adapter) Succeeded() error {
	debug.Assert(!a.terminal, "terminal event emitted twice")
	a.terminal = true
	return a.listener.TransferSucceeded(Event{Type: Succeeded})
}

// Failed emits the terminal FAILED event.
func (a *Adapter) Failed(err error) error {
	debug.Assert(!a.terminal, "terminal event emitted twice")
	a.terminal = true
	return a.listener.TransferFailed(Event{Type: Failed, Err: err})
}

// Checksums returns the calculator's current finish() view, or nil if no
// calculator is owned (no active policy).
func (a *Adapter) Checksums() map[string]checksum.Result {
	if a.calc == nil {
		return nil
	}
	return a.calc.Finish()
}
