package policy_test

import (
	"errors"
	"testing"

	"github.com/depotline/connector-basic/policy"
)

func TestStrictAbortsOnMismatch(t *testing.T) {
	s := policy.Strict{}
	f := policy.Failure{Algorithm: "SHA-1", Kind: policy.PROVIDED, Expected: "aa", Actual: "bb"}
	err := s.OnChecksumMismatch("SHA-1", policy.PROVIDED, f)
	if err == nil {
		t.Fatal("expected Strict to abort on mismatch")
	}
	var me *policy.MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("expected a *MismatchError, got %T", err)
	}
	if s.OnTransferChecksumFailure(f) {
		t.Fatal("expected Strict to never tolerate a checksum failure")
	}
	if s.OnNoMoreChecksums() == nil {
		t.Fatal("expected Strict to require at least one verified match")
	}
}

func TestTolerantAcceptsMismatchAndMissingChecksum(t *testing.T) {
	tol := policy.Tolerant{}
	f := policy.Failure{Algorithm: "MD5", Kind: policy.REMOTE_EXTERNAL, Expected: "aa", Actual: "bb"}
	if err := tol.OnChecksumMismatch("MD5", policy.REMOTE_EXTERNAL, f); err != nil {
		t.Fatalf("expected Tolerant to swallow the mismatch, got %v", err)
	}
	if err := tol.OnNoMoreChecksums(); err != nil {
		t.Fatalf("expected Tolerant to accept no checksum at all, got %v", err)
	}
	if !tol.OnTransferChecksumFailure(f) {
		t.Fatal("expected Tolerant to tolerate a checksum failure")
	}
}

func TestInspectAllNeverShortCircuitsAndConcludesOnMatch(t *testing.T) {
	p := &policy.InspectAll{}

	// S6: PROVIDED match, then REMOTE_EXTERNAL match, then noMore().
	if shortCircuit := p.OnChecksumMatch("SHA-1", policy.PROVIDED); shortCircuit {
		t.Fatal("InspectAll must never short-circuit on match")
	}
	if shortCircuit := p.OnChecksumMatch("SHA-1", policy.REMOTE_EXTERNAL); shortCircuit {
		t.Fatal("InspectAll must never short-circuit on match")
	}
	if err := p.OnNoMoreChecksums(); err != nil {
		t.Fatalf("expected InspectAll to conclude OK after at least one match, got %v", err)
	}
}

func TestInspectAllRejectsWhenNothingEverMatched(t *testing.T) {
	p := &policy.InspectAll{}
	f := policy.Failure{Algorithm: "SHA-1", Kind: policy.PROVIDED, Expected: "aa", Actual: "bb"}
	_ = p.OnChecksumMismatch("SHA-1", policy.PROVIDED, f)

	if err := p.OnNoMoreChecksums(); err == nil {
		t.Fatal("expected InspectAll to reject a transfer with zero matches")
	}
	if p.OnTransferChecksumFailure(f) {
		t.Fatal("expected InspectAll to not tolerate a failure when nothing ever matched")
	}
}

func TestInspectAllResetsOnTransferRetry(t *testing.T) {
	p := &policy.InspectAll{}
	p.OnChecksumMatch("SHA-1", policy.PROVIDED)
	p.OnTransferRetry()

	if err := p.OnNoMoreChecksums(); err == nil {
		t.Fatal("expected state to be cleared by OnTransferRetry")
	}
}
