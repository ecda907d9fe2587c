package connector

import (
	"time"

	"github.com/depotline/connector-basic/journal"
	"github.com/depotline/connector-basic/layout"
	"github.com/depotline/connector-basic/metrics"
	"github.com/depotline/connector-basic/xfer"
)

// observingListener wraps a caller's xfer.Listener and taps metrics.Registry
// and journal.Journal on the way through, exactly as SPEC_FULL.md §4.6
// describes: a pure side-observation that can never change a task's
// outcome or the listener event sequence. Every method still returns
// whatever the wrapped listener returns, so listener-driven cancellation
// (spec.md §5) is untouched.
type observingListener struct {
	inner xfer.Listener
	reg   *metrics.Registry
	jrnl  *journal.Journal

	kind        metrics.Kind
	entity      string
	traceToken  string
	signedToken string

	start       time.Time
	transferred int64
	retries     int
}

// wrapListener taps metrics and journaling onto inner. signedToken is the
// trace token already run through tracetoken.Generator.Sign by the caller
// (connector.Connector.signForJournal) — empty when signing is disabled,
// in which case the appended record simply carries no SignedToken.
func wrapListener(inner xfer.Listener, reg *metrics.Registry, jrnl *journal.Journal, kind metrics.Kind, entity layout.Entity, traceToken, signedToken string) xfer.Listener {
	if reg == nil && jrnl == nil {
		return inner
	}
	return &observingListener{
		inner:       inner,
		reg:         reg,
		jrnl:        jrnl,
		kind:        kind,
		entity:      entityString(entity),
		traceToken:  traceToken,
		signedToken: signedToken,
	}
}

func entityString(e layout.Entity) string {
	switch v := e.(type) {
	case layout.Artifact:
		return v.String()
	case layout.Metadata:
		return v.GroupID + ":" + v.ArtifactID + ":" + v.Version
	default:
		return ""
	}
}

func (o *observingListener) TransferInitiated(e xfer.Event) error {
	o.start = time.Now()
	o.reg.Started(o.kind)
	return o.inner.TransferInitiated(e)
}

func (o *observingListener) TransferStarted(e xfer.Event) error {
	return o.inner.TransferStarted(e)
}

func (o *observingListener) TransferProgressed(e xfer.Event) error {
	o.transferred = e.Transferred
	return o.inner.TransferProgressed(e)
}

func (o *observingListener) TransferCorrupted(e xfer.Event) error {
	o.retries++
	o.reg.Corrupted(o.kind)
	return o.inner.TransferCorrupted(e)
}

func (o *observingListener) TransferSucceeded(e xfer.Event) error {
	o.terminal("succeeded")
	return o.inner.TransferSucceeded(e)
}

func (o *observingListener) TransferFailed(e xfer.Event) error {
	errKind := "Unknown"
	if k, ok := KindOf(e.Err); ok {
		errKind = k.String()
	}
	o.reg.Failed(o.kind, errKind)
	o.appendRecord("failed")
	return o.inner.TransferFailed(e)
}

func (o *observingListener) terminal(outcome string) {
	o.reg.Succeeded(o.kind)
	o.appendRecord(outcome)
}

func (o *observingListener) appendRecord(outcome string) {
	o.reg.BytesTransferred(o.kind, o.transferred)
	if o.jrnl == nil || o.traceToken == "" {
		return
	}
	var durationMs int64
	if !o.start.IsZero() {
		durationMs = time.Since(o.start).Milliseconds()
	}
	o.jrnl.Append(journal.Record{
		TraceToken:  o.traceToken,
		Entity:      o.entity,
		Kind:        string(o.kind),
		Outcome:     outcome,
		Bytes:       o.transferred,
		DurationMs:  durationMs,
		Retries:     o.retries,
		SignedToken: o.signedToken,
	})
}
