package lock_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/depotline/connector-basic/lock"
)

func partPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "artifact.jar.part")
}

func TestAcquireUncontendedSucceedsImmediately(t *testing.T) {
	part := partPath(t)
	l, err := lock.Acquire(context.Background(), part, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer l.Release()

	if l.Concurrent() {
		t.Fatal("expected an uncontended acquisition to report Concurrent() == false")
	}
	if _, statErr := os.Stat(l.Path()); statErr != nil {
		t.Fatalf("expected sidecar lock file to exist: %v", statErr)
	}
}

func TestReleaseRemovesSidecarAndAllowsReacquire(t *testing.T) {
	part := partPath(t)
	l, err := lock.Acquire(context.Background(), part, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lockPath := l.Path()
	if err := l.Release(); err != nil {
		t.Fatalf("unexpected error releasing: %v", err)
	}
	if _, statErr := os.Stat(lockPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected sidecar lock file to be removed, stat err = %v", statErr)
	}

	l2, err := lock.Acquire(context.Background(), part, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error re-acquiring after release: %v", err)
	}
	defer l2.Release()
}

func TestAcquireContendedInvokesRemoteAccessCheckOnce(t *testing.T) {
	part := partPath(t)
	holder, err := lock.Acquire(context.Background(), part, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error acquiring holder lock: %v", err)
	}
	defer holder.Release()

	var checks int
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err = lock.Acquire(ctx, part, 0, func(context.Context) error {
		checks++
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded waiting on held lock, got %v", err)
	}
	if checks != 1 {
		t.Fatalf("expected remoteAccessCheck invoked exactly once, got %d", checks)
	}
}

func TestAcquireContendedAbortsWhenRemoteAccessCheckFails(t *testing.T) {
	part := partPath(t)
	holder, err := lock.Acquire(context.Background(), part, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error acquiring holder lock: %v", err)
	}
	defer holder.Release()

	wantErr := errors.New("remote does not know this artifact")
	_, err = lock.Acquire(context.Background(), part, 0, func(context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected remoteAccessCheck error to propagate, got %v", err)
	}

	if _, statErr := os.Stat(part + ".lock"); statErr != nil {
		t.Fatalf("expected holder's sidecar to remain untouched: %v", statErr)
	}
}

func TestAcquireTimesOutWhenPartialFileStalls(t *testing.T) {
	part := partPath(t)
	if err := os.WriteFile(part, []byte("xx"), 0o644); err != nil {
		t.Fatal(err)
	}
	holder, err := lock.Acquire(context.Background(), part, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error acquiring holder lock: %v", err)
	}
	defer holder.Release()

	_, err = lock.Acquire(context.Background(), part, 1, nil)
	if !errors.Is(err, lock.ErrTimeout) {
		t.Fatalf("expected ErrTimeout (requestTimeoutMs floored to 3s), got %v", err)
	}
}
