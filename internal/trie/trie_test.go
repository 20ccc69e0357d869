package trie

import (
	"reflect"
	"testing"
)

func TestInsertLookupExact(t *testing.T) {
	tr := New()
	tr.Insert("Sin", 13)
	tr.Insert("Sinh", 14)
	tr.Insert("Cos", 15)

	if v, ok := tr.Lookup("Sin"); !ok || v != 13 {
		t.Fatalf("expected Sin=13, got %v %v", v, ok)
	}
	if v, ok := tr.Lookup("Sinh"); !ok || v != 14 {
		t.Fatalf("expected Sinh=14, got %v %v", v, ok)
	}
	if v, ok := tr.Lookup("Cos"); !ok || v != 15 {
		t.Fatalf("expected Cos=15, got %v %v", v, ok)
	}
	if _, ok := tr.Lookup("Si"); ok {
		t.Fatalf("expected partial key to miss an exact lookup")
	}
}

func TestInsertSplitsSharedPrefix(t *testing.T) {
	tr := New()
	tr.Insert("Pow", 1)
	tr.Insert("PowN", 2)
	if v, ok := tr.Lookup("Pow"); !ok || v != 1 {
		t.Fatalf("expected Pow to survive the split, got %v %v", v, ok)
	}
	if v, ok := tr.Lookup("PowN"); !ok || v != 2 {
		t.Fatalf("expected PowN to be reachable after split, got %v %v", v, ok)
	}
}

func TestNextReturnsSuffix(t *testing.T) {
	tr := New()
	tr.Insert("Normalize", 7)
	node, suffix := tr.Next("Norm")
	if node == nil {
		t.Fatalf("expected a node for the abbreviated prefix")
	}
	if suffix != "alize" {
		t.Fatalf("expected remaining suffix 'alize', got %q", suffix)
	}
}

func TestEnumerateListsAllInOrder(t *testing.T) {
	tr := New()
	tr.Insert("Abs", 1)
	tr.Insert("Acos", 2)
	tr.Insert("Asin", 3)
	got := tr.Enumerate()
	want := []string{"Abs", "Acos", "Asin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLookupMissingKey(t *testing.T) {
	tr := New()
	tr.Insert("Exp", 1)
	if _, ok := tr.Lookup("Log"); ok {
		t.Fatalf("expected missing key to fail lookup")
	}
}
