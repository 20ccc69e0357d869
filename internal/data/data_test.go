package data

import (
	"testing"

	"spirvm/internal/types"
	"spirvm/internal/value"
)

func TestViewChainFallsThroughToAncestor(t *testing.T) {
	m := NewManager(0)
	a := types.NewArena()
	m.Global().Define(1, OfValue(value.NewUint(a, 32, 42)))

	frame := m.MakeView(m.Global())
	d, ok := frame.At(1)
	if !ok {
		t.Fatalf("expected id 1 to resolve via ancestor view")
	}
	v, ok := d.Value()
	if !ok || v.(*value.Primitive).AsUint() != 42 {
		t.Fatalf("expected value 42, got %v", d)
	}
}

func TestViewLocalShadowsAncestor(t *testing.T) {
	m := NewManager(0)
	a := types.NewArena()
	m.Global().Define(1, OfValue(value.NewUint(a, 32, 1)))

	frame := m.MakeView(m.Global())
	frame.Define(1, OfValue(value.NewUint(a, 32, 99)))

	d, _ := frame.At(1)
	v, _ := d.Value()
	if v.(*value.Primitive).AsUint() != 99 {
		t.Fatalf("expected local definition to shadow ancestor")
	}
	gd, _ := m.Global().At(1)
	gv, _ := gd.Value()
	if gv.(*value.Primitive).AsUint() != 1 {
		t.Fatalf("ancestor's own binding should be unaffected")
	}
}

func TestSpecConstVariableYieldsValue(t *testing.T) {
	a := types.NewArena()
	sc := NewSpecConst(value.NewUint(a, 32, 7))
	d := OfVariable(sc)
	v, ok := d.Value()
	if !ok {
		t.Fatalf("spec constant variable should yield a value")
	}
	if v.(*value.Primitive).AsUint() != 7 {
		t.Fatalf("expected 7, got %v", v)
	}
}

func TestOrdinaryVariableYieldsNoValue(t *testing.T) {
	a := types.NewArena()
	v := NewVariable(value.NewUint(a, 32, 7), StorageFunction)
	d := OfVariable(v)
	if _, ok := d.Value(); ok {
		t.Fatalf("a non-spec-const variable should not be directly usable as a value")
	}
}

func TestDestroyViewNotTrackedIsError(t *testing.T) {
	m := NewManager(0)
	stray := newView(m.Global())
	if err := m.DestroyView(stray); err == nil {
		t.Fatalf("expected error destroying an untracked view")
	}
}

func TestDestroyViewRemovesTrackedView(t *testing.T) {
	m := NewManager(0)
	v := m.MakeView(nil)
	if err := m.DestroyView(v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.DestroyView(v); err == nil {
		t.Fatalf("double-destroy should error")
	}
}

func TestCloneClearsOwnsFlag(t *testing.T) {
	m := NewManager(0)
	a := types.NewArena()
	view := m.MakeView(nil)
	view.Define(5, OfValue(value.NewUint(a, 32, 1)))

	clone := view.Clone()
	d, ok := clone.At(5)
	if !ok {
		t.Fatalf("expected clone to carry over the binding")
	}
	if d.Owns {
		t.Fatalf("cloned bindings must not re-assert ownership")
	}
}
