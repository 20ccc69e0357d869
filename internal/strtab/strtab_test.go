package strtab

import "testing"

func TestInternDedups(t *testing.T) {
	tb := New()
	a := tb.Intern("main")
	b := tb.Intern("main")
	if a != b {
		t.Fatalf("expected the same string to intern to the same ID, got %d and %d", a, b)
	}
	c := tb.Intern("shader.vert")
	if c == a {
		t.Fatalf("expected distinct strings to get distinct IDs")
	}
}

func TestNoIDIsEmptyString(t *testing.T) {
	tb := New()
	s, ok := tb.Lookup(NoID)
	if !ok || s != "" {
		t.Fatalf("expected NoID to resolve to empty string, got %q, %v", s, ok)
	}
}

func TestHasRejectsOutOfRange(t *testing.T) {
	tb := New()
	if tb.Has(ID(99)) {
		t.Fatalf("expected out-of-range ID to be invalid")
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	tb := New()
	tb.Intern("a")
	snap := tb.Snapshot()
	tb.Intern("b")
	if len(snap) != 2 {
		t.Fatalf("expected snapshot to freeze at 2 entries, got %d", len(snap))
	}
}
