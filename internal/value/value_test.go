package value

import (
	"testing"

	"spirvm/internal/types"
)

func TestPrimitiveUintWidensToFloat(t *testing.T) {
	a := types.NewArena()
	u := NewUint(a, 32, 7)
	f := NewFloat(a, 32, 0)
	if err := f.CopyFrom(a, u); err != nil {
		t.Fatalf("uint->float copy should succeed: %v", err)
	}
	if got := f.AsFloat(a); got != 7 {
		t.Fatalf("expected 7.0, got %v", got)
	}
}

func TestPrimitiveFloatToUintRejected(t *testing.T) {
	a := types.NewArena()
	fl := NewFloat(a, 32, 1.5)
	u := NewUint(a, 32, 0)
	if err := u.CopyFrom(a, fl); err == nil {
		t.Fatalf("float -> uint copy should be rejected")
	}
}

func TestPrimitiveIntToUintRejected(t *testing.T) {
	a := types.NewArena()
	i := NewInt(a, 32, -1)
	u := NewUint(a, 32, 0)
	if err := u.CopyFrom(a, i); err == nil {
		t.Fatalf("int -> uint copy should be rejected")
	}
}

func TestPrimitiveBoolFromUintNonzero(t *testing.T) {
	a := types.NewArena()
	u := NewUint(a, 32, 5)
	b := NewBool(a, false)
	if err := b.CopyFrom(a, u); err != nil {
		t.Fatalf("uint->bool copy should succeed: %v", err)
	}
	if !b.AsBool() {
		t.Fatalf("nonzero uint should convert to true")
	}
}

func TestPrimitiveEqualsFloatTolerance(t *testing.T) {
	a := types.NewArena()
	x := NewFloat(a, 32, 1.0000001)
	y := NewFloat(a, 32, 1.0000002)
	if !x.Equals(a, y) {
		t.Fatalf("floats within 6 decimal digits should compare equal")
	}
}

func TestPrimitiveWidthTruncation(t *testing.T) {
	a := types.NewArena()
	wide := NewUint(a, 32, 0x1FF)
	narrow := NewUint(a, 8, 0)
	if err := narrow.CopyFrom(a, wide); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if narrow.AsUint() != 0xFF {
		t.Fatalf("expected truncation to 8 bits, got %#x", narrow.AsUint())
	}
}

func TestArrayCopyRequiresMatchingLength(t *testing.T) {
	a := types.NewArena()
	f32 := a.Primitive(types.Float, 32)
	arrT := a.Array(f32, 2)
	dst := NewArray(arrT, []Value{NewFloat(a, 32, 0), NewFloat(a, 32, 0)})
	src := NewArray(arrT, []Value{NewFloat(a, 32, 1)})
	if err := dst.CopyFrom(a, src); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestArrayEqualsElementwise(t *testing.T) {
	a := types.NewArena()
	f32 := a.Primitive(types.Float, 32)
	arrT := a.Array(f32, 2)
	x := NewArray(arrT, []Value{NewFloat(a, 32, 1), NewFloat(a, 32, 2)})
	y := NewArray(arrT, []Value{NewFloat(a, 32, 1), NewFloat(a, 32, 2)})
	if !x.Equals(a, y) {
		t.Fatalf("arrays with equal elements should be equal")
	}
}

func TestArrayPrintFlatWhenNoNesting(t *testing.T) {
	a := types.NewArena()
	f32 := a.Primitive(types.Float, 32)
	arrT := a.Array(f32, 2)
	arr := NewArray(arrT, []Value{NewFloat(a, 32, 1), NewFloat(a, 32, 2)})
	got := arr.Print(a, 0)
	want := "[ 1, 2 ]"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStructFieldNamesRenderedInPrint(t *testing.T) {
	a := types.NewArena()
	f32 := a.Primitive(types.Float, 32)
	structT := a.Struct([]types.TypeID{f32, f32}, []string{"x", "y"})
	s := NewStruct(structT, []Value{NewFloat(a, 32, 1), NewFloat(a, 32, 2)})
	got := s.Print(a, 0)
	want := "{ x = 1, y = 2 }"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStructAcceptsAccelStructTypedCopy(t *testing.T) {
	a := types.NewArena()
	f32 := a.Primitive(types.Float, 32)
	structT := a.Struct([]types.TypeID{f32}, []string{"hitT"})
	if !a.Equal(structT, a.AccelStructType()) {
		t.Skip("struct/accelstruct compatibility not established by arena for this shape")
	}
}

func TestCoopMatrixSliceCoversAllElements(t *testing.T) {
	const total = uint32(37)
	const invocations = uint32(8)
	seen := make([]bool, total)
	for i := uint32(0); i < invocations; i++ {
		start, end := Slice(i, invocations, total)
		for j := start; j < end; j++ {
			if seen[j] {
				t.Fatalf("element %d claimed by more than one invocation", j)
			}
			seen[j] = true
		}
	}
	for i, s := range seen {
		if !s {
			t.Fatalf("element %d not covered by any invocation slice", i)
		}
	}
}

func TestImageComponentDecoding(t *testing.T) {
	// RGBA in natural order: r=1,g=2,b=3,a=4 -> digits 1234
	comps := decodeComponents(1234)
	want := []uint32{1, 2, 3, 4}
	if len(comps) != len(want) {
		t.Fatalf("expected %d components, got %d", len(want), len(comps))
	}
	for i := range want {
		if comps[i] != want[i] {
			t.Fatalf("component %d: got %d want %d", i, comps[i], want[i])
		}
	}
}

func TestImageEqualsComparesTexelsIgnoringRef(t *testing.T) {
	a := types.NewArena()
	id := a.ImageType(2, 1234)
	x := NewImage(a, id)
	x.Ref = "a.png"
	x.Dims = []uint32{2, 2}
	x.Data = []uint32{1, 2, 3, 4}
	y := NewImage(a, id)
	y.Ref = "different.png"
	y.Dims = []uint32{2, 2}
	y.Data = []uint32{1, 2, 3, 4}
	if !x.Equals(a, y) {
		t.Fatalf("images with identical texel data but different refs should be equal")
	}
}

func TestPointerCopyFromUnsupported(t *testing.T) {
	a := types.NewArena()
	f32 := a.Primitive(types.Float, 32)
	ptrT := a.Pointer(f32)
	p := NewPointer(ptrT, 0, nil)
	q := NewPointer(ptrT, 1, []uint32{2})
	if err := p.CopyFrom(a, q); err == nil {
		t.Fatalf("pointer values should not be copy-assignable")
	}
}
