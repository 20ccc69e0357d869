package data

import (
	"fmt"

	"spirvm/internal/types"
	"spirvm/internal/value"
)

// Kind tags what a Data slot currently holds.
type Kind int

const (
	KindUndefined Kind = iota
	KindType
	KindVariable
	KindFunction
	KindEntryPoint
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	case KindEntryPoint:
		return "entry-point"
	case KindValue:
		return "value"
	default:
		return "undefined"
	}
}

// Data is the polymorphic slot a DataView maps an SSA id to: a type, a
// variable, a function, an entry point, or a bare value (spec §3.3).
//
// Grounded in original_source/src/spv/data/data.hpp's Data: a tagged raw
// pointer there becomes a tagged `any` here, with typed accessors replacing
// the macro-generated GET_X casts. Owns records whether this view is
// responsible for tearing the slot's contents down when the view itself is
// torn down (spec §3.3's "owns flag").
type Data struct {
	kind Kind
	raw  any
	Owns bool
}

func Undefined() Data { return Data{kind: KindUndefined} }

func OfType(id types.TypeID) Data { return Data{kind: KindType, raw: id, Owns: true} }

func OfVariable(v *Variable) Data { return Data{kind: KindVariable, raw: v, Owns: true} }

func OfFunction(f *Function) Data { return Data{kind: KindFunction, raw: f, Owns: true} }

func OfEntryPoint(e *EntryPoint) Data { return Data{kind: KindEntryPoint, raw: e, Owns: true} }

func OfValue(v value.Value) Data { return Data{kind: KindValue, raw: v, Owns: true} }

func (d Data) Kind() Kind { return d.kind }

func (d Data) Type() (types.TypeID, bool) {
	if d.kind != KindType {
		return types.NoTypeID, false
	}
	return d.raw.(types.TypeID), true
}

func (d Data) Variable() (*Variable, bool) {
	if d.kind != KindVariable {
		return nil, false
	}
	return d.raw.(*Variable), true
}

func (d Data) Function() (*Function, bool) {
	if d.kind != KindFunction {
		return nil, false
	}
	return d.raw.(*Function), true
}

func (d Data) EntryPoint() (*EntryPoint, bool) {
	if d.kind != KindEntryPoint {
		return nil, false
	}
	return d.raw.(*EntryPoint), true
}

// Value fetches a value.Value from this slot. A Variable slot yields one
// only if it is a spec constant — spec constants are simultaneously program
// inputs and ordinary values (data.cxx's Data::getValue).
func (d Data) Value() (value.Value, bool) {
	switch d.kind {
	case KindValue:
		return d.raw.(value.Value), true
	case KindVariable:
		v := d.raw.(*Variable)
		if v.SpecConst {
			return v.Val, true
		}
	}
	return nil, false
}

func (d Data) String() string {
	if d.kind == KindUndefined {
		return "<undefined>"
	}
	return fmt.Sprintf("%s(%v)", d.kind, d.raw)
}
