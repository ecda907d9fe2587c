package xfer_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/depotline/connector-basic/checksum"
	"github.com/depotline/connector-basic/xfer"
)

type recordingListener struct {
	events []xfer.EventType
}

func (r *recordingListener) TransferInitiated(e xfer.Event) error  { r.events = append(r.events, e.Type); return nil }
func (r *recordingListener) TransferStarted(e xfer.Event) error    { r.events = append(r.events, e.Type); return nil }
func (r *recordingListener) TransferProgressed(e xfer.Event) error { r.events = append(r.events, e.Type); return nil }
func (r *recordingListener) TransferCorrupted(e xfer.Event) error  { r.events = append(r.events, e.Type); return nil }
func (r *recordingListener) TransferSucceeded(e xfer.Event) error  { r.events = append(r.events, e.Type); return nil }
func (r *recordingListener) TransferFailed(e xfer.Event) error     { r.events = append(r.events, e.Type); return nil }

func TestEventSequenceMatchesRegularExpression(t *testing.T) {
	l := &recordingListener{}
	a := xfer.NewAdapter(l, nil)

	must(t, a.Initiated())
	must(t, a.Started(0, 100))
	must(t, a.Progressed([]byte("abc"), 3))
	must(t, a.Progressed([]byte("def"), 6))
	must(t, a.Corrupted(errors.New("mismatch")))
	must(t, a.Succeeded())

	want := []xfer.EventType{xfer.Initiated, xfer.Started, xfer.Progressed, xfer.Progressed, xfer.Corrupted, xfer.Succeeded}
	if len(l.events) != len(want) {
		t.Fatalf("got %v, want %v", l.events, want)
	}
	for i, e := range want {
		if l.events[i] != e {
			t.Fatalf("event %d: got %v, want %v", i, l.events[i], e)
		}
	}
}

func TestStartedPrimesCalculatorAtResumeOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("hello, "), 0o644); err != nil {
		t.Fatal(err)
	}

	calc := checksum.New(path, checksum.Builtin[:1]) // SHA-1
	a := xfer.NewAdapter(&recordingListener{}, calc)

	must(t, a.Initiated())
	must(t, a.Started(7, 12))
	must(t, a.Progressed([]byte("world"), 5))

	got := a.Checksums()["SHA-1"]
	if got.Err != nil {
		t.Fatalf("unexpected error: %v", got.Err)
	}
	if got.Hex == "" {
		t.Fatal("expected a non-empty digest")
	}
}

func TestChecksumsReturnsNilWithoutACalculator(t *testing.T) {
	a := xfer.NewAdapter(&recordingListener{}, nil)
	must(t, a.Initiated())
	must(t, a.Started(0, 0))
	if got := a.Checksums(); got != nil {
		t.Fatalf("expected nil checksums with no active policy, got %v", got)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
