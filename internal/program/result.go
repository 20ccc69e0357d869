package program

import (
	"fmt"

	"spirvm/internal/ioformat"
	"spirvm/internal/types"
	"spirvm/internal/value"
)

// Outputs reads every DirOutput interface variable's final value back into
// a ValueMap, keyed the same way BindInputs matches them (name, falling
// back to the synthetic @locationN/@bindingN form).
func Outputs(arena *types.Arena, ifaces []InterfaceVar) (ioformat.ValueMap, error) {
	vm := make(ioformat.ValueMap)
	for _, iv := range ifaces {
		if iv.Dir != DirOutput {
			continue
		}
		lit, err := literalFromValue(arena, iv.Var.Val)
		if err != nil {
			return nil, fmt.Errorf("program: reading %s: %w", bindingName(iv), err)
		}
		vm[outputKey(iv)] = lit
	}
	return vm, nil
}

func outputKey(iv InterfaceVar) string {
	if iv.Var.Name != "" {
		return iv.Var.Name
	}
	if syn := iv.SynName(); syn != "" {
		return syn
	}
	return fmt.Sprintf("@id%d", iv.ID)
}

// literalFromValue is valueFromLiteral's inverse: it walks a runtime value
// back into ioformat's format-agnostic Literal tree. Opaque runtime
// objects this interpreter has no textual wire format for (acceleration
// structures, images, samplers, ray queries, pointers) report their
// Print() string instead of failing the whole output write.
func literalFromValue(arena *types.Arena, v value.Value) (ioformat.Literal, error) {
	switch vv := v.(type) {
	case *value.Primitive:
		ty, ok := arena.Lookup(vv.TypeID())
		if !ok {
			return ioformat.Literal{}, fmt.Errorf("undefined type %%%d", vv.TypeID())
		}
		switch ty.Base {
		case types.Float:
			f := vv.AsFloat(arena)
			return ioformat.Literal{Float: &f}, nil
		case types.Bool:
			b := vv.AsBool()
			return ioformat.Literal{Bool: &b}, nil
		case types.Int:
			i := vv.AsInt(arena)
			return ioformat.Literal{Int: &i}, nil
		default:
			u := int64(vv.AsUint())
			return ioformat.Literal{Int: &u}, nil
		}
	case *value.Array:
		seq := make([]ioformat.Literal, len(vv.Elements))
		for i, e := range vv.Elements {
			l, err := literalFromValue(arena, e)
			if err != nil {
				return ioformat.Literal{}, fmt.Errorf("element %d: %w", i, err)
			}
			seq[i] = l
		}
		return ioformat.Literal{Sequence: seq}, nil
	case *value.Struct:
		ty, ok := arena.Lookup(vv.TypeID())
		if !ok {
			return ioformat.Literal{}, fmt.Errorf("undefined type %%%d", vv.TypeID())
		}
		m := make(map[string]ioformat.Literal, len(vv.Fields))
		for i, f := range vv.Fields {
			l, err := literalFromValue(arena, f)
			if err != nil {
				name := fmt.Sprintf("field%d", i)
				if i < len(ty.FieldNames) && ty.FieldNames[i] != "" {
					name = ty.FieldNames[i]
				}
				return ioformat.Literal{}, fmt.Errorf("field %q: %w", name, err)
			}
			name := fmt.Sprintf("field%d", i)
			if i < len(ty.FieldNames) && ty.FieldNames[i] != "" {
				name = ty.FieldNames[i]
			}
			m[name] = l
		}
		return ioformat.Literal{Mapping: m}, nil
	case *value.String:
		s := vv.S
		return ioformat.Literal{Str: &s}, nil
	default:
		s := v.Print(arena, 0)
		return ioformat.Literal{Str: &s}, nil
	}
}

// Template builds the stub InterfaceVar list ioformat.Template needs to
// emit an input file covering every bindable variable (spec §6.2/§6.3's
// --template/--default flags).
func Template(arena *types.Arena, ifaces []InterfaceVar) []ioformat.InterfaceVar {
	var out []ioformat.InterfaceVar
	for _, iv := range ifaces {
		if iv.Dir == DirOutput {
			continue
		}
		lit, err := literalFromValue(arena, iv.Var.Val)
		if err != nil {
			continue
		}
		out = append(out, ioformat.InterfaceVar{
			Name:    iv.Var.Name,
			SynName: iv.SynName(),
			Default: lit,
		})
	}
	return out
}
