package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "nested", "dabops-serve.lock")
	l, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.TrimSpace(string(b)); got != strconv.Itoa(os.Getpid()) {
		t.Fatalf("lock file = %q, want pid %d", got, os.Getpid())
	}
}

func TestAcquireHeldLock(t *testing.T) {
	t.Parallel()

	lockPath := PathFor(filepath.Join(t.TempDir(), "history.db"))
	first, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	_, err = Acquire(lockPath)
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("second Acquire error = %v, want *HeldError", err)
	}
	if held.PID != os.Getpid() {
		t.Fatalf("HeldError.PID = %d, want %d", held.PID, os.Getpid())
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	again, err := Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestAcquireRejectsEmptyPath(t *testing.T) {
	if _, err := Acquire(""); err == nil {
		t.Fatal("Acquire(\"\") error = nil, want error")
	}
}
