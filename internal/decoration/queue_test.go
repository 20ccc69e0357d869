package decoration

import (
	"testing"

	"spirvm/internal/data"
	"spirvm/internal/value"
	"spirvm/internal/types"
)

func TestApplyNameSetsVariableName(t *testing.T) {
	arena := types.NewArena()
	view := data.NewManager(0).Global()
	v := data.NewVariable(value.NewUint(arena, 32, 0), data.StorageInput)
	view.Define(10, data.OfVariable(v))

	var q Queue
	q.Enqueue(Entry{Op: OpName, Target: 10, Name: "position"})
	if err := q.Apply(view, arena); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Name != "position" {
		t.Fatalf("expected variable name to be set, got %q", v.Name)
	}
}

func TestApplyNameOnUndefinedTargetErrors(t *testing.T) {
	view := data.NewManager(0).Global()
	var q Queue
	q.Enqueue(Entry{Op: OpName, Target: 99, Name: "ghost"})
	if err := q.Apply(view, types.NewArena()); err == nil {
		t.Fatalf("expected error naming an undefined id")
	}
}

func TestApplyDecorateLocation(t *testing.T) {
	arena := types.NewArena()
	view := data.NewManager(0).Global()
	v := data.NewVariable(value.NewUint(arena, 32, 0), data.StorageInput)
	view.Define(3, data.OfVariable(v))

	var q Queue
	q.Enqueue(Entry{Op: OpDecorate, Target: 3, Decor: "Location", Operands: []uint32{2}})
	if err := q.Apply(view, arena); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc, ok := v.Location()
	if !ok || loc != 2 {
		t.Fatalf("expected location 2, got %d ok=%v", loc, ok)
	}
}

func TestApplyDecorateBuiltIn(t *testing.T) {
	arena := types.NewArena()
	view := data.NewManager(0).Global()
	v := data.NewVariable(value.NewUint(arena, 32, 0), data.StorageOutput)
	view.Define(4, data.OfVariable(v))

	var q Queue
	q.Enqueue(Entry{Op: OpDecorate, Target: 4, Decor: "BuiltIn", Operands: []uint32{0}})
	if err := q.Apply(view, arena); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.BuiltIn != "Position" {
		t.Fatalf("expected BuiltIn Position, got %q", v.BuiltIn)
	}
}

func TestApplyExecutionModeLocalSize(t *testing.T) {
	view := data.NewManager(0).Global()
	ep := &data.EntryPoint{}
	view.Define(7, data.OfEntryPoint(ep))

	var q Queue
	q.Enqueue(Entry{Op: OpExecutionMode, Target: 7, Decor: "LocalSize", Operands: []uint32{4, 4, 1}})
	if err := q.Apply(view, types.NewArena()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.SizeX != 4 || ep.SizeY != 4 || ep.SizeZ != 1 {
		t.Fatalf("expected workgroup size 4x4x1, got %d,%d,%d", ep.SizeX, ep.SizeY, ep.SizeZ)
	}
}

func TestApplyOrderMattersForLaterOverride(t *testing.T) {
	arena := types.NewArena()
	view := data.NewManager(0).Global()
	v := data.NewVariable(value.NewUint(arena, 32, 0), data.StorageInput)
	view.Define(1, data.OfVariable(v))

	var q Queue
	q.Enqueue(Entry{Op: OpName, Target: 1, Name: "first"})
	q.Enqueue(Entry{Op: OpName, Target: 1, Name: "second"})
	if err := q.Apply(view, arena); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Name != "second" {
		t.Fatalf("expected later entry to win, got %q", v.Name)
	}
}

func TestApplyMemberNameSetsStructFieldName(t *testing.T) {
	arena := types.NewArena()
	floatT := arena.Primitive(types.Float, 32)
	structT := arena.Struct([]types.TypeID{floatT, floatT}, []string{"", ""})
	view := data.NewManager(0).Global()
	view.Define(5, data.OfType(structT))

	var q Queue
	q.Enqueue(Entry{Op: OpMemberName, Target: 5, Member: 1, Name: "y"})
	if err := q.Apply(view, arena); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ty, _ := arena.Lookup(structT)
	if ty.FieldNames[1] != "y" {
		t.Fatalf("expected member 1 renamed to y, got %q", ty.FieldNames[1])
	}
}
