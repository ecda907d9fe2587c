package journal

import "github.com/tinylib/msgp/msgp"

// Record is an observational summary of one terminated task (SPEC_FULL.md
// §9). Never consulted for control flow — a journal write failure is
// logged by Journal.Append and never fails the task it describes.
type Record struct {
	TraceToken string
	Entity     string
	Kind       string // "get", "put", "peek"
	Outcome    string // "succeeded", "failed"
	Bytes      int64
	DurationMs int64
	Retries    int

	// SignedToken is TraceToken run through tracetoken.Generator.Sign at
	// append time. Empty when no tracetoken.Generator was configured on
	// the Connector, or the configured one has no signing key.
	SignedToken string
}

// MarshalMsg appends the MessagePack encoding of r to b. Hand-written
// rather than codegen'd (see DESIGN.md): Record is small and stable enough
// that the generator's ceremony isn't worth it.
func (r *Record) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 8)
	b = msgp.AppendString(b, r.TraceToken)
	b = msgp.AppendString(b, r.Entity)
	b = msgp.AppendString(b, r.Kind)
	b = msgp.AppendString(b, r.Outcome)
	b = msgp.AppendInt64(b, r.Bytes)
	b = msgp.AppendInt64(b, r.DurationMs)
	b = msgp.AppendInt(b, r.Retries)
	b = msgp.AppendString(b, r.SignedToken)
	return b, nil
}

// UnmarshalMsg decodes a Record previously produced by MarshalMsg from the
// front of b, returning the remaining bytes.
func (r *Record) UnmarshalMsg(b []byte) ([]byte, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return b, err
	}
	if n != 8 {
		return b, msgp.ArrayError{Wanted: 8, Got: uint32(n)}
	}
	if r.TraceToken, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if r.Entity, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if r.Kind, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if r.Outcome, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	if r.Bytes, b, err = msgp.ReadInt64Bytes(b); err != nil {
		return b, err
	}
	if r.DurationMs, b, err = msgp.ReadInt64Bytes(b); err != nil {
		return b, err
	}
	if r.Retries, b, err = msgp.ReadIntBytes(b); err != nil {
		return b, err
	}
	if r.SignedToken, b, err = msgp.ReadStringBytes(b); err != nil {
		return b, err
	}
	return b, nil
}
