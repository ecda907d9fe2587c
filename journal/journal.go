// Package journal is the connector's durable, purely observational
// per-task transfer log (SPEC_FULL.md §9): an embedded tidwall/buntdb store
// keyed by trace token, holding one hand-written-msgp-encoded Record per
// terminated task, expiring after a configurable TTL.
package journal

import (
	"encoding/base64"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/depotline/connector-basic/cmn/nlog"
	"github.com/depotline/connector-basic/tracetoken"
)

// Journal wraps a buntdb database. A nil *Journal is valid: Append and
// Close become no-ops so callers can wire journaling in unconditionally.
type Journal struct {
	db  *buntdb.DB
	ttl time.Duration
}

// Open creates or reuses the buntdb store at path. ttl <= 0 disables
// expiry: records persist until explicitly deleted or the store is wiped.
func Open(path string, ttl time.Duration) (*Journal, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db, ttl: ttl}, nil
}

// Append encodes rec and stores it under its trace token. A write failure
// is logged and swallowed: per SPEC_FULL.md §9 the journal can never fail
// the task it describes.
func (j *Journal) Append(rec Record) {
	if j == nil {
		return
	}
	raw, err := rec.MarshalMsg(nil)
	if err != nil {
		nlog.Warnf("journal: encoding record for %s: %v", rec.TraceToken, err)
		return
	}
	value := base64.StdEncoding.EncodeToString(raw)

	err = j.db.Update(func(tx *buntdb.Tx) error {
		var opts *buntdb.SetOptions
		if j.ttl > 0 {
			opts = &buntdb.SetOptions{Expires: true, TTL: j.ttl}
		}
		_, _, err := tx.Set(key(rec.TraceToken), value, opts)
		return err
	})
	if err != nil {
		nlog.Warnf("journal: persisting record for %s: %v", rec.TraceToken, err)
	}
}

// Lookup retrieves the record filed under traceToken, if it hasn't expired.
func (j *Journal) Lookup(traceToken string) (Record, bool) {
	var rec Record
	if j == nil {
		return rec, false
	}
	var value string
	err := j.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key(traceToken))
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return rec, false
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return rec, false
	}
	if _, err := rec.UnmarshalMsg(raw); err != nil {
		return rec, false
	}
	return rec, true
}

// LookupVerified retrieves the record filed under traceToken and reports
// whether its SignedToken verifies against gen. found is false only when
// no record exists (or it has expired); verified is false whenever the
// record carries no SignedToken (no generator with a signing key was
// configured when it was appended), gen is nil, or gen rejects the
// signature — the caller, a
// journal consumer, decides on its own whether to trust an unverified
// record. Per SPEC_FULL.md §9, this is never consulted on the transfer
// path: the record is already durable by the time anything calls this.
func (j *Journal) LookupVerified(traceToken string, gen *tracetoken.Generator) (rec Record, found, verified bool) {
	rec, found = j.Lookup(traceToken)
	if !found || rec.SignedToken == "" || gen == nil {
		return rec, found, false
	}
	recovered, ok := gen.Verify(rec.SignedToken)
	return rec, found, ok && recovered == rec.TraceToken
}

// Close flushes and closes the underlying store.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

func key(traceToken string) string { return "record:" + traceToken }
