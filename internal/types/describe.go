package types

import (
	"fmt"
	"strings"
)

// FieldIndex returns the index of name within a struct's field names, or -1.
func (a *Arena) FieldIndex(structID TypeID, name string) int {
	t, ok := a.Lookup(structID)
	if !ok {
		return -1
	}
	for i, n := range t.FieldNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Describe renders a human-readable type name, used by verbose trace output
// and panic messages.
func (a *Arena) Describe(id TypeID) string {
	t, ok := a.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch t.Base {
	case Float, Uint, Int:
		return fmt.Sprintf("%s%d", t.Base, t.SubSize)
	case Bool, Void, String, AccelStruct, RayQuery:
		return t.Base.String()
	case Array:
		if t.SubSize == 0 {
			return fmt.Sprintf("%s[]", a.Describe(t.SubElement))
		}
		return fmt.Sprintf("%s[%d]", a.Describe(t.SubElement), t.SubSize)
	case Pointer:
		return fmt.Sprintf("*%s", a.Describe(t.SubElement))
	case Struct:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = fmt.Sprintf("%s: %s", t.FieldNames[i], a.Describe(f))
		}
		return fmt.Sprintf("struct{%s}", strings.Join(parts, ", "))
	case Function:
		parts := make([]string, len(t.ParamTypes))
		for i, p := range t.ParamTypes {
			parts[i] = a.Describe(p)
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), a.Describe(t.SubElement))
	case Image:
		dims, digits := DecodeImageSubSize(t.SubSize)
		return fmt.Sprintf("image%dD[%04d]", dims, digits)
	case Sampler:
		return fmt.Sprintf("sampler<%s>", a.Describe(t.SubElement))
	case CoopMatrix:
		cols := TypeID(0)
		if len(t.Fields) > 0 {
			cols = t.Fields[0]
		}
		return fmt.Sprintf("coopmatrix<%s, %dx%d>", a.Describe(t.SubElement), t.SubSize, cols)
	default:
		return "<invalid>"
	}
}
