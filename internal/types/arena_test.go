package types

import "testing"

func TestInternDeduplicatesDescriptors(t *testing.T) {
	a := NewArena()
	f1 := a.Primitive(Float, 32)
	arr1 := a.Array(f1, 4)
	arr2 := a.Array(f1, 4)
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
}

func TestArrayCountAffectsIdentity(t *testing.T) {
	a := NewArena()
	f1 := a.Primitive(Float, 32)
	arr3 := a.Array(f1, 3)
	arr4 := a.Array(f1, 4)
	if arr3 == arr4 {
		t.Fatalf("arrays with different counts must differ")
	}
}

func TestStructFieldNamesIgnoredForEquality(t *testing.T) {
	a := NewArena()
	f32 := a.Primitive(Float, 32)
	s1 := a.Struct([]TypeID{f32, f32}, []string{"x", "y"})
	s2 := a.Struct([]TypeID{f32, f32}, []string{"a", "b"})
	if !a.Equal(s1, s2) {
		t.Fatalf("structs with same field types but different names must be equal")
	}
}

func TestStructAccelStructCompatibility(t *testing.T) {
	a := NewArena()
	f32 := a.Primitive(Float, 32)
	s := a.Struct([]TypeID{f32}, []string{"hitT"})
	as := a.AccelStructType()
	if !a.Equal(s, as) {
		t.Fatalf("plain struct should be copy-compatible with AccelStruct")
	}
}

func TestUnifyUintWidensToAnyNumeric(t *testing.T) {
	a := NewArena()
	u := a.Primitive(Uint, 32)
	f := a.Primitive(Float, 32)
	got, ok := a.Unify(u, f)
	if !ok || got != f {
		t.Fatalf("expected uint to widen to float")
	}
}

func TestUnifyPicksNarrowerWidth(t *testing.T) {
	a := NewArena()
	i16 := a.Primitive(Int, 16)
	i32 := a.Primitive(Int, 32)
	got, ok := a.Unify(i16, i32)
	if !ok || got != i16 {
		t.Fatalf("expected narrower int16 to win")
	}
}

func TestUnifyArraysRequireMatchingSize(t *testing.T) {
	a := NewArena()
	f32 := a.Primitive(Float, 32)
	arr3 := a.Array(f32, 3)
	arr4 := a.Array(f32, 4)
	if _, ok := a.Unify(arr3, arr4); ok {
		t.Fatalf("arrays of different sizes should not unify")
	}
}

func TestInvariantRejectsBadWidth(t *testing.T) {
	a := NewArena()
	id := a.Intern(Type{Base: Int, SubSize: 12})
	if err := a.CheckInvariants(id); err == nil {
		t.Fatalf("expected invariant violation for width 12")
	}
}

func TestInvariantRejectsFieldNameMismatch(t *testing.T) {
	a := NewArena()
	f32 := a.Primitive(Float, 32)
	id := a.Intern(Type{Base: Struct, Fields: []TypeID{f32, f32}, FieldNames: []string{"only-one"}})
	if err := a.CheckInvariants(id); err == nil {
		t.Fatalf("expected invariant violation for mismatched field/name count")
	}
}

func TestImageSubSizeRoundTrip(t *testing.T) {
	a := NewArena()
	id := a.ImageType(2, 2341) // ARGB, 2-D
	tt, _ := a.Lookup(id)
	dims, digits := DecodeImageSubSize(tt.SubSize)
	if dims != 2 || digits != 2341 {
		t.Fatalf("image subsize round-trip failed: dims=%d digits=%d", dims, digits)
	}
}
