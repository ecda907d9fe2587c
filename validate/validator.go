// Package validate implements the ChecksumValidator from spec.md §4.4:
// policy-driven validation across provided / remote-included /
// remote-external checksum kinds, with retry/commit/close lifecycle and a
// concurrent prefetch of external sidecars that still applies results in
// strict, sequential, short-circuiting order.
package validate

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/depotline/connector-basic/checksum"
	"github.com/depotline/connector-basic/cmn/cos"
	"github.com/depotline/connector-basic/cmn/nlog"
	"github.com/depotline/connector-basic/layout"
	"github.com/depotline/connector-basic/metrics"
	"github.com/depotline/connector-basic/policy"
)

// Fetcher retrieves remoteURI into localFile. It returns (false, nil) on a
// classified 404 and (false, err) on any other transport failure.
type Fetcher func(ctx context.Context, remoteURI, localFile string) (bool, error)

// NegativeCache is consulted before issuing a REMOTE_EXTERNAL fetch, to
// skip sidecars already known to be absent. Implemented by
// negcache.Cache; accepted as an interface so this package never
// depends on the cuckoofilter it's backed by.
type NegativeCache interface {
	KnownAbsent(uri string) bool
	MarkAbsent(uri string)
	ClearAbsent(uri string)
}

type pendingValue struct {
	literal  string
	tempFile string
	isTemp   bool
}

// Validator is scoped to a single destination file and owned exclusively
// by one task for the duration of the transfer (spec.md §3).
type Validator struct {
	dataFile          string
	algorithms        []cos.ChecksumAlgorithm
	externalLocations []layout.ChecksumLocation
	policy            policy.Policy
	provided          map[string]string
	fetch             Fetcher
	negCache          NegativeCache
	tmpDir            string
	retryWorthy       bool
	metrics           *metrics.Registry

	pending   map[string]pendingValue
	tempFiles []string
}

// New constructs a Validator. policy may be nil (validation becomes a
// no-op, matching spec.md's "if the policy is None" rule throughout).
func New(
	dataFile string,
	algorithms []cos.ChecksumAlgorithm,
	externalLocations []layout.ChecksumLocation,
	pol policy.Policy,
	provided map[string]string,
	fetch Fetcher,
	negCache NegativeCache,
) *Validator {
	return &Validator{
		dataFile:          dataFile,
		algorithms:        algorithms,
		externalLocations: externalLocations,
		policy:            pol,
		provided:          provided,
		fetch:             fetch,
		negCache:          negCache,
		tmpDir:            filepath.Dir(dataFile),
		pending:           make(map[string]pendingValue),
	}
}

// SetRetryWorthy marks every Failure constructed by this Validator's next
// Validate call as retry-worthy or not. The connector sets this from
// whether the current trial resumed a partial download (see DESIGN.md):
// a mismatch following a resumed transfer is attributable to a stale
// `.part` file and worth one retry from scratch; a mismatch on a fresh,
// non-resumed download is not.
func (v *Validator) SetRetryWorthy(worthy bool) { v.retryWorthy = worthy }

// SetMetrics wires a metrics.Registry so every checksum mismatch this
// Validator observes increments connector_checksum_mismatches_total by
// algorithm (SPEC_FULL.md §9). Nil (the default) disables the counter.
func (v *Validator) SetMetrics(reg *metrics.Registry) { v.metrics = reg }

// NewChecksumCalculator returns nil if no policy is active; otherwise a
// calculator over this validator's enabled algorithms.
func (v *Validator) NewChecksumCalculator(targetFile string) *checksum.Calculator {
	if v.policy == nil {
		return nil
	}
	return checksum.New(targetFile, v.algorithms)
}

// Validate applies PROVIDED, then REMOTE_INCLUDED, then REMOTE_EXTERNAL
// checksum kinds in that order, short-circuiting on the first match the
// policy accepts. Returns a non-nil error only when the policy aborts
// (a *policy.MismatchError, policy.ErrNoMatch, or a custom policy error).
func (v *Validator) Validate(ctx context.Context, actual map[string]checksum.Result, included map[string]string) error {
	if v.policy == nil {
		return nil
	}

	for _, alg := range v.algorithms {
		expected, ok := v.provided[alg.Name()]
		if !ok {
			continue
		}
		short, err := v.compareLiteral(alg.Name(), policy.PROVIDED, expected, actual[alg.Name()])
		if err != nil {
			return err
		}
		if short {
			return nil
		}
	}

	for _, alg := range v.algorithms {
		expected, ok := included[alg.Name()]
		if !ok {
			continue
		}
		short, err := v.compareLiteral(alg.Name(), policy.REMOTE_INCLUDED, expected, actual[alg.Name()])
		if err != nil {
			return err
		}
		if short {
			return nil
		}
	}

	if short, err := v.validateExternal(ctx, actual); err != nil {
		return err
	} else if short {
		return nil
	}

	return v.policy.OnNoMoreChecksums()
}

func (v *Validator) compareLiteral(algName string, kind policy.Kind, expectedHex string, r checksum.Result) (bool, error) {
	if r.Err != nil {
		v.policy.OnChecksumError(algName, kind, r.Err)
		return false, nil
	}
	if strings.EqualFold(r.Hex, expectedHex) {
		if alg := algByName(v.algorithms, algName); alg != nil {
			v.pending[cos.SidecarName(v.dataFile, alg)] = pendingValue{literal: expectedHex}
		}
		return v.policy.OnChecksumMatch(algName, kind), nil
	}
	failure := policy.Failure{Algorithm: algName, Kind: kind, Expected: expectedHex, Actual: r.Hex, RetryWorthy: v.retryWorthy}
	v.metrics.ChecksumMismatch(algName)
	return false, v.policy.OnChecksumMismatch(algName, kind, failure)
}

type externalFetch struct {
	hex      string
	tempFile string
	fetchErr error
	notFound bool
}

// validateExternal prefetches every REMOTE_EXTERNAL sidecar concurrently
// (network-bound, order-independent), then applies the results
// sequentially in configured location order so notification order and
// short-circuit semantics match spec.md §4.4 exactly.
func (v *Validator) validateExternal(ctx context.Context, actual map[string]checksum.Result) (bool, error) {
	results := make([]externalFetch, len(v.externalLocations))

	g, gctx := errgroup.WithContext(ctx)
	for i, loc := range v.externalLocations {
		i, loc := i, loc
		if actual[loc.AlgorithmName].Err != nil {
			continue // no point fetching; applied loop notifies onChecksumError
		}
		if v.negCache != nil && v.negCache.KnownAbsent(loc.URI) {
			results[i].notFound = true
			continue
		}
		g.Go(func() error {
			results[i] = v.fetchOne(gctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	// Record every fetched sidecar up front, so Retry and Close also remove
	// the ones a short-circuit below leaves unapplied.
	for _, fr := range results {
		if fr.tempFile != "" {
			v.tempFiles = append(v.tempFiles, fr.tempFile)
		}
	}

	for i, loc := range v.externalLocations {
		r := actual[loc.AlgorithmName]
		if r.Err != nil {
			v.policy.OnChecksumError(loc.AlgorithmName, policy.REMOTE_EXTERNAL, r.Err)
			continue
		}
		fr := results[i]
		if fr.fetchErr != nil {
			v.policy.OnChecksumError(loc.AlgorithmName, policy.REMOTE_EXTERNAL, fr.fetchErr)
			continue
		}
		if fr.notFound {
			continue
		}

		if strings.EqualFold(r.Hex, fr.hex) {
			if alg := algByName(v.algorithms, loc.AlgorithmName); alg != nil {
				v.pending[cos.SidecarName(v.dataFile, alg)] = pendingValue{tempFile: fr.tempFile, isTemp: true}
			}
			if v.policy.OnChecksumMatch(loc.AlgorithmName, policy.REMOTE_EXTERNAL) {
				return true, nil
			}
			continue
		}

		failure := policy.Failure{
			Algorithm:   loc.AlgorithmName,
			Kind:        policy.REMOTE_EXTERNAL,
			Expected:    fr.hex,
			Actual:      r.Hex,
			RetryWorthy: v.retryWorthy,
		}
		v.metrics.ChecksumMismatch(loc.AlgorithmName)
		if err := v.policy.OnChecksumMismatch(loc.AlgorithmName, policy.REMOTE_EXTERNAL, failure); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (v *Validator) fetchOne(ctx context.Context, loc layout.ChecksumLocation) externalFetch {
	tmp, err := os.CreateTemp(v.tmpDir, "checksum-*.tmp")
	if err != nil {
		return externalFetch{fetchErr: err}
	}
	tmp.Close()

	ok, err := v.fetch(ctx, loc.URI, tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return externalFetch{fetchErr: err}
	}
	if !ok {
		os.Remove(tmp.Name())
		if v.negCache != nil {
			v.negCache.MarkAbsent(loc.URI)
		}
		return externalFetch{notFound: true}
	}

	raw, err := os.ReadFile(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return externalFetch{fetchErr: err}
	}
	if v.negCache != nil {
		v.negCache.ClearAbsent(loc.URI)
	}
	return externalFetch{hex: checksum.ParseSidecar(raw), tempFile: tmp.Name()}
}

// Handle delegates to policy.OnTransferChecksumFailure.
func (v *Validator) Handle(failure policy.Failure) bool {
	if v.policy == nil {
		return false
	}
	return v.policy.OnTransferChecksumFailure(failure)
}

// Retry notifies the policy, discards all pending writes, and deletes all
// temp files recorded during validation.
func (v *Validator) Retry() {
	if v.policy != nil {
		v.policy.OnTransferRetry()
	}
	v.pending = make(map[string]pendingValue)
	v.gcTempFiles()
}

// Commit moves or writes every pending sidecar entry. Per-entry failures
// are logged and do not abort the commit.
func (v *Validator) Commit() {
	for sidecarPath, pv := range v.pending {
		var err error
		if pv.isTemp {
			err = moveFile(pv.tempFile, sidecarPath)
		} else {
			err = os.WriteFile(sidecarPath, checksum.FormatSidecar(pv.literal), 0o644)
		}
		if err != nil {
			nlog.Warnf("validate: commit %s failed: %v", sidecarPath, err)
		}
	}
	v.pending = make(map[string]pendingValue)
}

// Close deletes all remaining temp files. Idempotent.
func (v *Validator) Close() {
	v.gcTempFiles()
}

func (v *Validator) gcTempFiles() {
	for _, f := range v.tempFiles {
		_ = os.Remove(f)
	}
	v.tempFiles = nil
}

func algByName(algorithms []cos.ChecksumAlgorithm, name string) cos.ChecksumAlgorithm {
	for _, a := range algorithms {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
