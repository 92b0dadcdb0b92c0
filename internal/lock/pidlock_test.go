package lock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "tickflow.lock")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		t.Fatal("expected PID in lock file, got empty")
	}
}

func TestForDatabaseDerivesLockPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := ForDatabase(filepath.Join(dir, "bars.db"))
	if err != nil {
		t.Fatalf("ForDatabase: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	if l.Path() != filepath.Join(dir, "bars.lock") {
		t.Fatalf("lock path=%q", l.Path())
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "tickflow.lock")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	l2, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	_ = l2.Release()
}

func TestForDatabaseEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := ForDatabase(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
