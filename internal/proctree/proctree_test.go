package proctree

import (
	"math"
	"os"
	"testing"
)

func TestParentPIDOfSelf(t *testing.T) {
	ppid, ok := ParentPID(os.Getpid())
	if !ok {
		t.Fatal("should be able to read own PPid")
	}
	if ppid != os.Getppid() {
		t.Errorf("ParentPID = %d, os.Getppid() = %d", ppid, os.Getppid())
	}
}

func TestParentPIDOfNonexistent(t *testing.T) {
	// A pid near MaxInt32 is extremely unlikely to exist.
	if _, ok := ParentPID(math.MaxInt32); ok {
		t.Error("expected absent result for nonexistent pid")
	}
}

func TestParentPIDOfInit(t *testing.T) {
	if _, err := os.Stat("/proc/1/status"); err != nil {
		t.Skip("pid 1 status not readable in this environment")
	}
	ppid, ok := ParentPID(1)
	if !ok {
		t.Fatal("should be able to read PPid of pid 1")
	}
	if ppid != 0 {
		t.Errorf("pid 1 should have parent 0, got %d", ppid)
	}
}

func TestIsAncestorParentOfSelf(t *testing.T) {
	if !IsAncestor(os.Getppid(), os.Getpid()) {
		t.Error("parent should be an ancestor")
	}
}

func TestIsAncestorInitIsAncestorOfSelf(t *testing.T) {
	if !IsAncestor(1, os.Getpid()) {
		t.Error("pid 1 should be an ancestor of any live process")
	}
}

func TestIsAncestorSelfIsNotOwnAncestor(t *testing.T) {
	if IsAncestor(os.Getpid(), os.Getpid()) {
		t.Error("a process must not be its own ancestor")
	}
}

func TestIsAncestorNonexistentReturnsFalse(t *testing.T) {
	if IsAncestor(math.MaxInt32, os.Getpid()) {
		t.Error("nonexistent pid should not be an ancestor")
	}
}
