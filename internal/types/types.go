// Package types implements the runtime type descriptors of the interpreter's
// data model (spec §3.1). A Type is a value descriptor, not a value: it never
// owns data, only describes its shape. Child types are never held by raw
// reference — every Type refers to its sub-elements by TypeID, a handle into
// a per-module arena, so the graph can never form an ownership cycle.
package types

import (
	"fmt"

	"fortio.org/safecast"
)

// TypeID is a stable handle into an Arena. The zero value, NoTypeID, never
// denotes a real type.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Base is the tag discriminating the kinds of type a Type can describe.
type Base uint8

const (
	Invalid Base = iota
	Float
	Uint
	Int
	Bool
	Struct
	Array
	String
	Void
	Function
	Pointer
	AccelStruct
	RayQuery
	Image
	Sampler
	CoopMatrix
)

func (b Base) String() string {
	switch b {
	case Invalid:
		return "invalid"
	case Float:
		return "float"
	case Uint:
		return "uint"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Struct:
		return "struct"
	case Array:
		return "array"
	case String:
		return "string"
	case Void:
		return "void"
	case Function:
		return "function"
	case Pointer:
		return "pointer"
	case AccelStruct:
		return "accelStruct"
	case RayQuery:
		return "rayQuery"
	case Image:
		return "image"
	case Sampler:
		return "sampler"
	case CoopMatrix:
		return "coopMatrix"
	default:
		return fmt.Sprintf("Base(%d)", b)
	}
}

// Type is a compact, structural descriptor of a runtime value's shape.
//
//   - SubSize is base-dependent: bit width for numerics (8/16/32/64), element
//     count for arrays (0 means a runtime array), matrix row count for
//     CoopMatrix, and the 4-digit component-order digit encoding for Image.
//   - SubElement borrows another type by handle: array element, pointer
//     pointee, function return, sampler's image type, matrix component type.
//   - Fields/FieldNames describe Struct (and struct-compatible AccelStruct)
//     members; their lengths must always agree.
type Type struct {
	Base        Base
	SubSize     uint32
	SubElement  TypeID
	Fields      []TypeID
	FieldNames  []string
	ParamTypes  []TypeID // Function: parameter types
}

// IsPrimitiveWidth reports whether w is one of the widths primitive numeric
// types are allowed to carry.
func IsPrimitiveWidth(w uint32) bool {
	switch w {
	case 8, 16, 32, 64:
		return true
	default:
		return false
	}
}

// MustU32 converts n to uint32, panicking on overflow. Used pervasively for
// arena indices and operand counts, which are never expected to overflow in
// practice but must never wrap silently.
func MustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("types: index overflow: %w", err))
	}
	return v
}
