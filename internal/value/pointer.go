package value

import (
	"fmt"

	"spirvm/internal/types"
)

// Pointer names a location inside the data manager: Head identifies the
// root variable/value slot, Indices is the path of composite-extraction
// steps applied after it (recursively indexing into Array/Struct values).
//
// Grounded in original_source/src/values/pointer.cxx's Pointer. Dereferencing
// the path is the data manager's job (internal/data), not this type's — the
// original's dereference() walks a live Aggregate tree the same way our data
// package will walk a DataView.
type Pointer struct {
	id      types.TypeID
	Head    uint32
	Indices []uint32
}

func NewPointer(id types.TypeID, head uint32, indices []uint32) *Pointer {
	return &Pointer{id: id, Head: head, Indices: indices}
}

func (p *Pointer) TypeID() types.TypeID { return p.id }
func (p *Pointer) IsNested() bool       { return false }

func (p *Pointer) Clone() Value {
	idx := make([]uint32, len(p.Indices))
	copy(idx, p.Indices)
	return &Pointer{id: p.id, Head: p.Head, Indices: idx}
}

// CopyFrom is unsupported: a pointer's identity is assigned at OpVariable /
// access-chain construction time, never reassigned by value copy, matching
// the original's "Unimplemented function!" for Pointer::copyFrom.
func (p *Pointer) CopyFrom(arena *types.Arena, other Value) error {
	return fmt.Errorf("%w: pointer values are not copy-assignable", ErrTypeMismatch)
}

// CopyReinterp lets a pointer be reinterpreted from another pointer's raw
// identity, used when ray-tracing substages hand off opaque pointer payloads.
func (p *Pointer) CopyReinterp(arena *types.Arena, other Value) error {
	op, ok := other.(*Pointer)
	if !ok {
		return ErrTypeMismatch
	}
	p.Head = op.Head
	idx := make([]uint32, len(op.Indices))
	copy(idx, op.Indices)
	p.Indices = idx
	return nil
}

func (p *Pointer) Equals(arena *types.Arena, other Value) bool {
	op, ok := other.(*Pointer)
	if !ok || !arena.Equal(p.id, op.id) {
		return false
	}
	if p.Head != op.Head || len(p.Indices) != len(op.Indices) {
		return false
	}
	for i := range p.Indices {
		if p.Indices[i] != op.Indices[i] {
			return false
		}
	}
	return true
}

func (p *Pointer) Print(arena *types.Arena, indent int) string {
	return fmt.Sprintf("*%%%d%v", p.Head, p.Indices)
}
