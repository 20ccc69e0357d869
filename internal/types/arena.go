package types

import "fmt"

// Arena owns every Type reachable from a parsed module. Types are interned by
// structural key so that two requests for "uint32" always yield the same
// TypeID, and equality between TypeIDs that share a key is O(1).
//
// Grounded on the teacher's types.Interner (surge/internal/types/interner.go):
// same "reserve slot 0 as invalid sentinel, intern by structural key" shape,
// adapted from the compiler's nominal/generic type system to SPIR-V's much
// flatter primitive/array/struct/pointer/image/sampler/accel/coopmatrix set.
type Arena struct {
	types []Type
	index map[key]TypeID
}

type key struct {
	base       Base
	subSize    uint32
	subElement TypeID
	fieldKey   string // joined field type ids, ignoring names (structural equality ignores names)
}

// NewArena returns an empty arena with slot 0 reserved for NoTypeID.
func NewArena() *Arena {
	a := &Arena{
		index: make(map[key]TypeID, 64),
	}
	a.types = append(a.types, Type{Base: Invalid})
	return a
}

func keyOf(t Type) key {
	k := key{base: t.Base, subSize: t.SubSize, subElement: t.SubElement}
	if len(t.Fields) > 0 || len(t.ParamTypes) > 0 {
		buf := make([]byte, 0, (len(t.Fields)+len(t.ParamTypes))*5)
		for _, f := range t.Fields {
			buf = appendU32(buf, uint32(f))
		}
		buf = append(buf, '|')
		for _, f := range t.ParamTypes {
			buf = appendU32(buf, uint32(f))
		}
		k.fieldKey = string(buf)
	}
	return k
}

func appendU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24), ',')
}

// Intern ensures t has a stable TypeID, reusing an existing one if t is
// structurally identical (field names excluded, per spec §3.1 Equality) to an
// already-interned type.
func (a *Arena) Intern(t Type) TypeID {
	k := keyOf(t)
	if id, ok := a.index[k]; ok {
		return id
	}
	id := TypeID(MustU32(len(a.types)))
	a.types = append(a.types, t)
	a.index[k] = id
	return id
}

// Lookup returns the descriptor for id, or false if id is invalid.
func (a *Arena) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(a.types) {
		return Type{}, false
	}
	return a.types[id], true
}

// MustLookup panics if id is invalid. Used where the caller has already
// established validity (e.g. id came from another Type's SubElement).
func (a *Arena) MustLookup(id TypeID) Type {
	t, ok := a.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return t
}

// Primitive interns and returns a primitive numeric/bool/void type.
func (a *Arena) Primitive(base Base, width uint32) TypeID {
	switch base {
	case Bool, Void:
		width = 0
	}
	return a.Intern(Type{Base: base, SubSize: width})
}

// Array interns an array type. count == 0 denotes a runtime array.
func (a *Arena) Array(elem TypeID, count uint32) TypeID {
	return a.Intern(Type{Base: Array, SubElement: elem, SubSize: count})
}

// Pointer interns a pointer-to-elem type. elem must not be NoTypeID.
func (a *Arena) Pointer(elem TypeID) TypeID {
	if elem == NoTypeID {
		panic("types: pointer to NoTypeID")
	}
	return a.Intern(Type{Base: Pointer, SubElement: elem})
}

// Struct interns a struct (or struct-like) type with the given field types
// and names. len(fields) must equal len(names).
func (a *Arena) Struct(fields []TypeID, names []string) TypeID {
	if len(fields) != len(names) {
		panic("types: struct field/name length mismatch")
	}
	t := Type{Base: Struct, Fields: append([]TypeID(nil), fields...), FieldNames: append([]string(nil), names...)}
	return a.Intern(t)
}

// SetFieldName overwrites the display name of one struct field in place.
// Safe to call after interning because structural equality (keyOf) ignores
// FieldNames entirely — renaming a field can never collide an id with, or
// split it from, another structurally-identical type.
func (a *Arena) SetFieldName(id TypeID, index int, name string) {
	t := &a.types[id]
	if index < 0 || index >= len(t.FieldNames) {
		return
	}
	t.FieldNames[index] = name
}

// Function interns a function signature type.
func (a *Arena) Function(ret TypeID, params []TypeID) TypeID {
	return a.Intern(Type{Base: Function, SubElement: ret, ParamTypes: append([]TypeID(nil), params...)})
}

// AccelStructType interns the (singleton, but still arena-owned) acceleration
// structure type.
func (a *Arena) AccelStructType() TypeID {
	return a.Intern(Type{Base: AccelStruct})
}

// RayQueryType interns the ray-query handle type.
func (a *Arena) RayQueryType() TypeID {
	return a.Intern(Type{Base: RayQuery})
}

// StringType interns the string type.
func (a *Arena) StringType() TypeID {
	return a.Intern(Type{Base: String})
}

// ImageType interns an image type. digits is the 4-digit component-order
// encoding described in spec §3.2 (e.g. 2341 = ARGB); dims selects 1/2/3-D
// via SubSize's upper encoding (see EncodeImageSubSize).
func (a *Arena) ImageType(dims uint32, digits uint32) TypeID {
	return a.Intern(Type{Base: Image, SubSize: EncodeImageSubSize(dims, digits)})
}

// SamplerType interns a sampler over the given image type.
func (a *Arena) SamplerType(image TypeID) TypeID {
	return a.Intern(Type{Base: Sampler, SubElement: image})
}

// CoopMatrixType interns a cooperative-matrix type: rows x cols of component
// type comp.
func (a *Arena) CoopMatrixType(comp TypeID, rows, cols uint32) TypeID {
	return a.Intern(Type{Base: CoopMatrix, SubElement: comp, SubSize: rows, Fields: []TypeID{TypeID(cols)}})
}

// EncodeImageSubSize packs the image's dimensionality (1..3) and its 4-digit
// component-order descriptor into one SubSize word: dims occupies the low
// nibble, the 4-digit descriptor the rest. Kept as simple arithmetic rather
// than bitfield structs, matching spec §3.1's "subSize has base-dependent
// meaning" framing.
func EncodeImageSubSize(dims, digits uint32) uint32 {
	return dims | (digits << 4)
}

// DecodeImageSubSize is the inverse of EncodeImageSubSize.
func DecodeImageSubSize(subSize uint32) (dims, digits uint32) {
	return subSize & 0xF, subSize >> 4
}
