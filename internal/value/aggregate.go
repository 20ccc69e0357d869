package value

import (
	"strings"

	"spirvm/internal/types"
)

// Array is a fixed-length, homogeneously-typed aggregate.
//
// Grounded in original_source/src/values/aggregate.cxx's Array/Aggregate:
// elements are owned outright (no handle indirection needed, see value.go's
// package doc), copy requires matching length, print groups flat when no
// element is itself nested and breaks onto separate lines otherwise.
type Array struct {
	id       types.TypeID
	Elements []Value
}

func NewArray(id types.TypeID, elements []Value) *Array {
	return &Array{id: id, Elements: elements}
}

func (a *Array) TypeID() types.TypeID { return a.id }
func (a *Array) IsNested() bool       { return true }

func (a *Array) Clone() Value {
	els := make([]Value, len(a.Elements))
	for i, e := range a.Elements {
		els[i] = e.Clone()
	}
	return &Array{id: a.id, Elements: els}
}

func (a *Array) CopyFrom(arena *types.Arena, other Value) error {
	op, ok := other.(*Array)
	if !ok {
		return ErrTypeMismatch
	}
	if len(op.Elements) != len(a.Elements) {
		return ErrTypeMismatch
	}
	for i := range a.Elements {
		if err := a.Elements[i].CopyFrom(arena, op.Elements[i]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Array) Equals(arena *types.Arena, other Value) bool {
	op, ok := other.(*Array)
	if !ok || !arena.Equal(a.id, op.id) {
		return false
	}
	for i := range a.Elements {
		if !a.Elements[i].Equals(arena, op.Elements[i]) {
			return false
		}
	}
	return true
}

func (a *Array) Print(arena *types.Arena, indent int) string {
	noNested := true
	for _, e := range a.Elements {
		if e.IsNested() {
			noNested = false
			break
		}
	}

	if noNested {
		parts := make([]string, len(a.Elements))
		for i, e := range a.Elements {
			parts[i] = e.Print(arena, indent+1)
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	}

	var b strings.Builder
	b.WriteByte('[')
	for _, e := range a.Elements {
		b.WriteByte('\n')
		b.WriteString(indentStr(indent + 1))
		b.WriteString(e.Print(arena, indent+1))
		b.WriteByte(',')
	}
	b.WriteByte('\n')
	b.WriteString(indentStr(indent))
	b.WriteByte(']')
	return b.String()
}

// Struct is a fixed set of named, heterogeneously-typed fields.
//
// Grounded in original_source/src/values/aggregate.cxx's Struct: field names
// come from the interned Type (types.Arena.FieldIndex), not stored per-value.
type Struct struct {
	id     types.TypeID
	Fields []Value
}

func NewStruct(id types.TypeID, fields []Value) *Struct {
	return &Struct{id: id, Fields: fields}
}

func (s *Struct) TypeID() types.TypeID { return s.id }
func (s *Struct) IsNested() bool       { return true }

func (s *Struct) Clone() Value {
	fields := make([]Value, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = f.Clone()
	}
	return &Struct{id: s.id, Fields: fields}
}

// CopyFrom copies field by field from another Struct with the same field
// count. Any other variant, an acceleration-structure value included, is
// rejected with ErrTypeMismatch, although types.Arena.Equal treats Struct
// and AccelStruct types as compatible (internal/types/equal.go's
// structAccelCompatible).
func (s *Struct) CopyFrom(arena *types.Arena, other Value) error {
	op, ok := other.(*Struct)
	if !ok {
		return ErrTypeMismatch
	}
	if len(op.Fields) != len(s.Fields) {
		return ErrTypeMismatch
	}
	for i := range s.Fields {
		if err := s.Fields[i].CopyFrom(arena, op.Fields[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Struct) Equals(arena *types.Arena, other Value) bool {
	op, ok := other.(*Struct)
	if !ok || !arena.Equal(s.id, op.id) {
		return false
	}
	for i := range s.Fields {
		if !s.Fields[i].Equals(arena, op.Fields[i]) {
			return false
		}
	}
	return true
}

func (s *Struct) Print(arena *types.Arena, indent int) string {
	t, _ := arena.Lookup(s.id)
	names := t.FieldNames

	noNested := true
	for _, f := range s.Fields {
		if f.IsNested() {
			noNested = false
			break
		}
	}

	fieldStr := func(i int, indent int) string {
		name := ""
		if i < len(names) && names[i] != "" {
			name = names[i] + " = "
		}
		return name + s.Fields[i].Print(arena, indent)
	}

	if noNested {
		parts := make([]string, len(s.Fields))
		for i := range s.Fields {
			parts[i] = fieldStr(i, indent+1)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}

	var b strings.Builder
	b.WriteByte('{')
	for i := range s.Fields {
		b.WriteByte('\n')
		b.WriteString(indentStr(indent + 1))
		b.WriteString(fieldStr(i, indent+1))
		b.WriteByte(',')
	}
	b.WriteByte('\n')
	b.WriteString(indentStr(indent))
	b.WriteByte('}')
	return b.String()
}
