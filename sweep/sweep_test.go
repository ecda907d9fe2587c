package sweep_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/depotline/connector-basic/lock"
	"github.com/depotline/connector-basic/sweep"
)

func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestSweepRemovesOldOrphans(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "foo.jar.part")
	fresh := filepath.Join(dir, "bar.jar.part")
	unrelated := filepath.Join(dir, "foo.jar")

	now := time.Now()
	touch(t, old, now.Add(-2*time.Hour))
	touch(t, fresh, now)
	touch(t, unrelated, now.Add(-2*time.Hour))

	res, err := sweep.Sweep(dir, time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Removed) != 1 || res.Removed[0] != old {
		t.Fatalf("removed = %v, want [%s]", res.Removed, old)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old .part to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("expected fresh .part to survive")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatal("expected non-orphan file to survive")
	}
}

func TestSweepSkipsFilesWithHeldLock(t *testing.T) {
	dir := t.TempDir()
	part := filepath.Join(dir, "foo.jar.part")

	now := time.Now()
	touch(t, part, now.Add(-2*time.Hour))

	held, err := lock.Acquire(context.Background(), part, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	res, err := sweep.Sweep(dir, time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Removed) != 0 {
		t.Fatalf("expected nothing removed while lock held, got %v", res.Removed)
	}
}
