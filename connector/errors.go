// Package connector implements the Connector and task runners from
// spec.md §4.6/§4.7: the per-remote-repository object that owns a
// transporter, a layout, a worker pool, and dispatches GET/PEEK/PUT tasks.
package connector

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/depotline/connector-basic/policy"
)

// Kind is the closed error taxonomy from spec.md §7.
type Kind int

const (
	KindNotFound Kind = iota
	KindTransportFailure
	KindChecksumFailure
	KindChecksumMissing
	KindLocalIO
	KindLockTimeout
	KindNoConnector
	KindConnectorClosed
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindTransportFailure:
		return "TransportFailure"
	case KindChecksumFailure:
		return "ChecksumFailure"
	case KindChecksumMissing:
		return "ChecksumMissing"
	case KindLocalIO:
		return "LocalIo"
	case KindLockTimeout:
		return "LockTimeout"
	case KindNoConnector:
		return "NoConnector"
	case KindConnectorClosed:
		return "ConnectorClosed"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the connector's single error type; Kind discriminates which of
// spec.md §7's named failures it represents. Failure carries the
// expected/actual/retry-worthy detail for KindChecksumFailure; nil
// otherwise.
type Error struct {
	kind    Kind
	msg     string
	Failure *policy.Failure
	cause   error
}

func (e *Error) Kind() Kind   { return e.kind }
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// KindOf unwraps err (following its Unwrap chain) looking for a
// *connector.Error and returns its Kind, or false if err isn't one.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			ce = as
			break
		}
		err = errors.Unwrap(err)
	}
	if ce == nil {
		return 0, false
	}
	return ce.kind, true
}

func NewNotFound(uri string, cause error) *Error {
	return &Error{kind: KindNotFound, msg: "not found: " + uri, cause: errors.WithStack(cause)}
}

func NewTransportFailure(msg string, cause error) *Error {
	return &Error{kind: KindTransportFailure, msg: msg, cause: errors.WithStack(cause)}
}

func NewChecksumFailure(f policy.Failure) *Error {
	return &Error{
		kind:    KindChecksumFailure,
		msg:     fmt.Sprintf("checksum mismatch: algorithm=%s kind=%s", f.Algorithm, f.Kind),
		Failure: &f,
	}
}

func NewChecksumMissing() *Error {
	return &Error{kind: KindChecksumMissing, msg: "no checksum kind produced a verified match"}
}

func NewLocalIO(msg string, cause error) *Error {
	return &Error{kind: KindLocalIO, msg: msg, cause: errors.WithStack(cause)}
}

func NewLockTimeout(cause error) *Error {
	return &Error{kind: KindLockTimeout, msg: "peer download stalled past request timeout", cause: errors.WithStack(cause)}
}

func NewNoConnector(msg string) *Error {
	return &Error{kind: KindNoConnector, msg: msg}
}

func NewConnectorClosed() *Error {
	return &Error{kind: KindConnectorClosed, msg: "connector is closed"}
}

func NewCancelled(cause error) *Error {
	return &Error{kind: KindCancelled, msg: "transfer cancelled by listener", cause: errors.WithStack(cause)}
}
