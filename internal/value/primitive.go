package value

import (
	"fmt"
	"math"

	"spirvm/internal/types"
)

// Primitive is a scalar slot interpreted as float/uint/int/bool according to
// its type (spec §3.2). Bits holds the raw value zero-extended into 64 bits;
// the active width and base come from the TypeID.
//
// Grounded in original_source/src/values/primitive.cxx's Primitive, widened
// from a 32-bit union to a 64-bit Bits field so the same variant serves the
// 8/16/32/64 width ladder internal/types supports.
type Primitive struct {
	id   types.TypeID
	Bits uint64
}

func NewFloat(arena *types.Arena, width uint32, v float64) *Primitive {
	id := arena.Primitive(types.Float, width)
	return &Primitive{id: id, Bits: floatBits(width, v)}
}

func NewUint(arena *types.Arena, width uint32, v uint64) *Primitive {
	id := arena.Primitive(types.Uint, width)
	return &Primitive{id: id, Bits: v & widthMask(width)}
}

func NewInt(arena *types.Arena, width uint32, v int64) *Primitive {
	id := arena.Primitive(types.Int, width)
	return &Primitive{id: id, Bits: uint64(v) & widthMask(width)}
}

func NewBool(arena *types.Arena, v bool) *Primitive {
	id := arena.Primitive(types.Bool, 32)
	bits := uint64(0)
	if v {
		bits = 1
	}
	return &Primitive{id: id, Bits: bits}
}

// Blank creates a zero-valued primitive of the given (already-interned) type.
func Blank(id types.TypeID) *Primitive {
	return &Primitive{id: id}
}

func (p *Primitive) TypeID() types.TypeID { return p.id }
func (p *Primitive) IsNested() bool       { return false }

func (p *Primitive) Clone() Value {
	return &Primitive{id: p.id, Bits: p.Bits}
}

func widthMask(width uint32) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << width) - 1
}

func floatBits(width uint32, v float64) uint64 {
	if width == 32 {
		return uint64(math.Float32bits(float32(v)))
	}
	return math.Float64bits(v)
}

func (p *Primitive) AsFloat(arena *types.Arena) float64 {
	t, _ := arena.Lookup(p.id)
	if t.SubSize == 32 {
		return float64(math.Float32frombits(uint32(p.Bits)))
	}
	return math.Float64frombits(p.Bits)
}

func (p *Primitive) AsUint() uint64 { return p.Bits }

func (p *Primitive) AsInt(arena *types.Arena) int64 {
	t, _ := arena.Lookup(p.id)
	switch t.SubSize {
	case 8:
		return int64(int8(p.Bits))
	case 16:
		return int64(int16(p.Bits))
	case 32:
		return int64(int32(p.Bits))
	default:
		return int64(p.Bits)
	}
}

func (p *Primitive) AsBool() bool { return p.Bits != 0 }

// CopyFrom follows original_source/src/values/primitive.cxx's conversion
// table: same-base copies always succeed (with truncation/extension across
// widths); Uint may widen into Float, Int or Bool, and Int into Float; no
// other cross-base copy is permitted (a negative Int or fractional Float has no safe Uint landing,
// mirroring the original's refusal of int/float -> uint).
func (p *Primitive) CopyFrom(arena *types.Arena, other Value) error {
	op, ok := other.(*Primitive)
	if !ok {
		return ErrTypeMismatch
	}
	toT, _ := arena.Lookup(p.id)
	fromT, _ := arena.Lookup(op.id)

	switch toT.Base {
	case types.Float:
		switch fromT.Base {
		case types.Float:
			p.Bits = floatBits(toT.SubSize, op.AsFloat(arena))
		case types.Uint:
			p.Bits = floatBits(toT.SubSize, float64(op.AsUint()))
		case types.Int:
			p.Bits = floatBits(toT.SubSize, float64(op.AsInt(arena)))
		default:
			return ErrTypeMismatch
		}
	case types.Uint:
		if fromT.Base != types.Uint {
			return ErrTypeMismatch
		}
		p.Bits = op.Bits & widthMask(toT.SubSize)
	case types.Int:
		switch fromT.Base {
		case types.Uint, types.Int:
			p.Bits = op.Bits & widthMask(toT.SubSize)
		default:
			return ErrTypeMismatch
		}
	case types.Bool:
		switch fromT.Base {
		case types.Bool:
			p.Bits = op.Bits
		case types.Uint:
			p.Bits = 0
			if op.AsUint() != 0 {
				p.Bits = 1
			}
		default:
			return ErrTypeMismatch
		}
	default:
		return ErrTypeMismatch
	}
	return nil
}

// CopyReinterp copies the raw bit pattern across without any numeric
// conversion, used for ray-tracing payload packing (spec §3.2).
func (p *Primitive) CopyReinterp(arena *types.Arena, other Value) error {
	op, ok := other.(*Primitive)
	if !ok {
		return ErrTypeMismatch
	}
	toT, _ := arena.Lookup(p.id)
	p.Bits = op.Bits & widthMask(toT.SubSize)
	return nil
}

func (p *Primitive) Equals(arena *types.Arena, other Value) bool {
	op, ok := other.(*Primitive)
	if !ok {
		return false
	}
	if !arena.Equal(p.id, op.id) {
		return false
	}
	t, _ := arena.Lookup(p.id)
	switch t.Base {
	case types.Float:
		return floatEqual(p.AsFloat(arena), op.AsFloat(arena))
	case types.Void:
		return true
	default:
		return p.Bits == op.Bits
	}
}

func (p *Primitive) Print(arena *types.Arena, indent int) string {
	t, _ := arena.Lookup(p.id)
	switch t.Base {
	case types.Float:
		return fmt.Sprintf("%v", p.AsFloat(arena))
	case types.Uint:
		return fmt.Sprintf("%d", p.AsUint())
	case types.Int:
		return fmt.Sprintf("%d", p.AsInt(arena))
	case types.Bool:
		if p.AsBool() {
			return "true"
		}
		return "false"
	default:
		return "<void>"
	}
}
