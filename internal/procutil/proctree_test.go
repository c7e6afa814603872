package procutil

import (
	"os"
	"testing"
)

func TestOrderDeepestFirst_LeafIsJustRoot(t *testing.T) {
	// A pid with no /proc children (here, one unlikely to exist) yields
	// a single-element order: the root itself.
	got := orderDeepestFirst(999999999)
	if len(got) != 1 || got[0] != 999999999 {
		t.Errorf("orderDeepestFirst() = %v, want [999999999]", got)
	}
}

func TestOrderDeepestFirst_RootLast(t *testing.T) {
	got := orderDeepestFirst(os.Getpid())
	if len(got) == 0 || got[len(got)-1] != os.Getpid() {
		t.Errorf("orderDeepestFirst() = %v, want root (%d) last", got, os.Getpid())
	}
}

func TestIsAlive_InvalidPID(t *testing.T) {
	if IsAlive(-1) {
		t.Error("IsAlive(-1) = true, want false")
	}
	if IsAlive(0) {
		t.Error("IsAlive(0) = true, want false")
	}
}
