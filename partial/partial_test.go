package partial_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/depotline/connector-basic/partial"
)

func destPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "artifact.jar")
}

func TestNonResumableInstanceIsUniqueTempFileDeletedOnClose(t *testing.T) {
	f := partial.Factory{ResumeEnabled: false}
	dest := destPath(t)

	pf, err := f.NewInstance(context.Background(), dest, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pf.IsResume() {
		t.Fatal("non-resumable instance must never report IsResume() == true")
	}
	if _, statErr := os.Stat(pf.Path()); statErr != nil {
		t.Fatalf("expected temp file to exist: %v", statErr)
	}
	if err := pf.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
	if _, statErr := os.Stat(pf.Path()); !os.IsNotExist(statErr) {
		t.Fatalf("expected temp file to be deleted on close, stat err = %v", statErr)
	}
}

func TestResumableInstanceBelowThresholdIsDiscardedOnClose(t *testing.T) {
	f := partial.Factory{ResumeEnabled: true, ResumeThresholdBytes: 1024}
	dest := destPath(t)

	pf, err := f.NewInstance(context.Background(), dest, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(pf.Path(), []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pf.IsResume() {
		t.Fatal("expected IsResume() == false below threshold")
	}
	lockPath := pf.Path() + ".lock"
	if _, statErr := os.Stat(lockPath); statErr != nil {
		t.Fatalf("expected lock sidecar to exist while held: %v", statErr)
	}

	if err := pf.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
	if _, statErr := os.Stat(pf.Path()); !os.IsNotExist(statErr) {
		t.Fatal("expected .part file below threshold to be discarded on close")
	}
	if _, statErr := os.Stat(lockPath); !os.IsNotExist(statErr) {
		t.Fatal("expected lock sidecar to be removed on release")
	}
}

func TestResumableInstanceAtThresholdSurvivesClose(t *testing.T) {
	f := partial.Factory{ResumeEnabled: true, ResumeThresholdBytes: 4}
	dest := destPath(t)

	pf, err := f.NewInstance(context.Background(), dest, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(pf.Path(), []byte("abcd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !pf.IsResume() {
		t.Fatal("expected IsResume() == true at threshold")
	}
	if err := pf.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
	if _, statErr := os.Stat(pf.Path()); statErr != nil {
		t.Fatalf("expected .part file at threshold to survive close: %v", statErr)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := partial.Factory{ResumeEnabled: true, ResumeThresholdBytes: 10}
	dest := destPath(t)

	pf, err := f.NewInstance(context.Background(), dest, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pf.Close(); err != nil {
		t.Fatalf("unexpected error on first close: %v", err)
	}
	if err := pf.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
}

func TestConcurrentNewInstanceReturnsNilWhenDestAlreadyFresh(t *testing.T) {
	f := partial.Factory{ResumeEnabled: true, ResumeThresholdBytes: 10, RequestTimeoutMs: 0}
	dest := destPath(t)

	holder, err := f.NewInstance(context.Background(), dest, nil)
	if err != nil {
		t.Fatalf("unexpected error acquiring holder instance: %v", err)
	}

	type result struct {
		pf  *partial.PartialFile
		err error
	}
	waiterDone := make(chan result, 1)
	go func() {
		pf, err := f.NewInstance(context.Background(), dest, func(context.Context) error { return nil })
		waiterDone <- result{pf, err}
	}()

	time.Sleep(50 * time.Millisecond) // let the waiter block on the held lock
	if err := os.WriteFile(dest, []byte("done"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := holder.Close(); err != nil {
		t.Fatalf("unexpected error closing holder: %v", err)
	}

	select {
	case r := <-waiterDone:
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.pf != nil {
			t.Fatalf("expected nil PartialFile signaling a concurrent finish, got %+v", r.pf)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for waiter's NewInstance to return")
	}
}
