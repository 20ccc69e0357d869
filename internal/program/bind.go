package program

import (
	"fmt"

	"spirvm/internal/accel"
	"spirvm/internal/ifail"
	"spirvm/internal/ioformat"
	"spirvm/internal/types"
	"spirvm/internal/value"
)

func synLocation(loc uint32) string { return fmt.Sprintf("@location%d", loc) }
func synBinding(binding uint32) string { return fmt.Sprintf("@binding%d", binding) }

// lookupLiteral finds vm's entry for iv, trying its OpName first (spec
// §6.2's "string equality with the variable's name"), then its synthetic
// @locationN/@bindingN fallback. Doubling a leading "@" to escape a literal
// name starting with "@" is ioformat.Decode's job, not this lookup's.
func lookupLiteral(vm ioformat.ValueMap, iv InterfaceVar) (ioformat.Literal, bool) {
	if iv.Var.Name != "" {
		if l, ok := vm[iv.Var.Name]; ok {
			return l, true
		}
	}
	if syn := iv.SynName(); syn != "" {
		if l, ok := vm[syn]; ok {
			return l, true
		}
	}
	return ioformat.Literal{}, false
}

// BindInputs resolves every Input/UniformConstant/spec-constant interface
// variable against vm, converting each matched Literal into a typed
// value.Value and storing it on the Variable (spec §4.3). A variable with
// no match keeps its static-pass default (zero value, or its OpVariable
// initializer) when lenient is true; otherwise missing a required input is
// a MissingInterfaceInput failure (spec §7's "unknown inputs ignored,
// missing inputs default" applies only in lenient-check mode).
func BindInputs(arena *types.Arena, ifaces []InterfaceVar, vm ioformat.ValueMap, lenient bool) error {
	for _, iv := range ifaces {
		if iv.Dir == DirOutput {
			continue
		}
		lit, ok := lookupLiteral(vm, iv)
		if !ok {
			if lenient {
				continue
			}
			return ifail.New(ifail.MissingInterfaceInput, "no input bound for %s", bindingName(iv))
		}
		val, err := valueFromLiteral(arena, iv.Var.Val.TypeID(), lit)
		if err != nil {
			return ifail.Wrap(ifail.InputShapeMismatch, err, "binding %s", bindingName(iv))
		}
		iv.Var.Val = val
	}
	return nil
}

func bindingName(iv InterfaceVar) string {
	if iv.Var.Name != "" {
		return iv.Var.Name
	}
	if syn := iv.SynName(); syn != "" {
		return syn
	}
	return fmt.Sprintf("%%%d", iv.ID)
}

// valueFromLiteral converts a decoded YAML/JSON literal into a typed
// runtime value of tid, following the same Base switch zeroValue (spec
// §4.2's default-initializer path) already establishes for this type
// model: primitives read their matching scalar field, arrays/vectors read
// a Sequence element-by-element, structs read a Mapping field-by-field.
// AccelerationStructureKHR is special-cased since its wire format (a flat
// box/instance/triangle/procedural node listing, spec §3.4) has no
// primitive-composition counterpart.
func valueFromLiteral(arena *types.Arena, tid types.TypeID, lit ioformat.Literal) (value.Value, error) {
	ty, ok := arena.Lookup(tid)
	if !ok {
		return nil, fmt.Errorf("program: undefined type %%%d", tid)
	}
	switch ty.Base {
	case types.Float:
		f, err := literalFloat(lit)
		if err != nil {
			return nil, err
		}
		return value.NewFloat(arena, ty.SubSize, f), nil
	case types.Uint:
		u, err := literalUint(lit)
		if err != nil {
			return nil, err
		}
		return value.NewUint(arena, ty.SubSize, u), nil
	case types.Int:
		i, err := literalInt(lit)
		if err != nil {
			return nil, err
		}
		return value.NewInt(arena, ty.SubSize, i), nil
	case types.Bool:
		if lit.Bool == nil {
			return nil, fmt.Errorf("program: expected a bool")
		}
		return value.NewBool(arena, *lit.Bool), nil
	case types.String:
		if lit.Str == nil {
			return nil, fmt.Errorf("program: expected a string")
		}
		return value.NewString(arena, *lit.Str), nil
	case types.Array:
		if lit.Sequence == nil {
			return nil, fmt.Errorf("program: expected a sequence")
		}
		count := int(ty.SubSize)
		if count != 0 && len(lit.Sequence) != count {
			return nil, fmt.Errorf("program: expected %d elements, got %d", count, len(lit.Sequence))
		}
		elems := make([]value.Value, len(lit.Sequence))
		for i, e := range lit.Sequence {
			v, err := valueFromLiteral(arena, ty.SubElement, e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return value.NewArray(tid, elems), nil
	case types.Struct:
		if lit.Mapping == nil {
			return nil, fmt.Errorf("program: expected a mapping")
		}
		elems := make([]value.Value, len(ty.Fields))
		for i, f := range ty.Fields {
			name := ty.FieldNames[i]
			fl, ok := lit.Mapping[name]
			if !ok {
				fl, ok = lit.Mapping[fmt.Sprintf("field%d", i)]
			}
			if !ok {
				return nil, fmt.Errorf("program: missing struct field %q", name)
			}
			v, err := valueFromLiteral(arena, f, fl)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			elems[i] = v
		}
		return value.NewStruct(tid, elems), nil
	case types.AccelStruct:
		bvh, err := buildBVH(lit)
		if err != nil {
			return nil, err
		}
		as := accel.NewAccelStruct(tid)
		as.BVH = bvh
		return as, nil
	default:
		return nil, fmt.Errorf("program: %s inputs are not supported from a value file", ty.Base)
	}
}

func literalFloat(lit ioformat.Literal) (float64, error) {
	switch {
	case lit.Float != nil:
		return *lit.Float, nil
	case lit.Int != nil:
		return float64(*lit.Int), nil
	default:
		return 0, fmt.Errorf("program: expected a number")
	}
}

func literalUint(lit ioformat.Literal) (uint64, error) {
	switch {
	case lit.Int != nil:
		return uint64(*lit.Int), nil
	case lit.Bool != nil:
		if *lit.Bool {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("program: expected an integer")
	}
}

func literalInt(lit ioformat.Literal) (int64, error) {
	if lit.Int == nil {
		return 0, fmt.Errorf("program: expected an integer")
	}
	return *lit.Int, nil
}

// buildBVH reads the acceleration-structure input shape: a mapping with up
// to four sequence fields, one per node partition, matching spec §3.4's flat
// [box|instance|triangle|procedural] layout. References between nodes are
// {major, minor} mappings, resolved once via BVH.ResolveAll after every
// node is loaded.
func buildBVH(lit ioformat.Literal) (*accel.BVH, error) {
	if lit.Mapping == nil {
		return nil, fmt.Errorf("program: acceleration structure input must be a mapping")
	}
	bvh := &accel.BVH{}

	for _, box := range lit.Mapping["box"].Sequence {
		n := accel.Node{Kind: accel.KindBox}
		n.MinBounds = vec3(box.Mapping["min"])
		n.MaxBounds = vec3(box.Mapping["max"])
		for _, c := range box.Mapping["children"].Sequence {
			n.Children = append(n.Children, ref(c))
		}
		bvh.Nodes = append(bvh.Nodes, n)
		bvh.BoxCount++
	}
	for _, inst := range lit.Mapping["instance"].Sequence {
		n := accel.Node{Kind: accel.KindInstance}
		n.Child = ref(inst.Mapping["child"])
		n.Transform = transform(inst.Mapping["transform"])
		n.InstanceID = uintField(inst.Mapping["instanceId"])
		n.CustomIndex = uintField(inst.Mapping["customIndex"])
		n.Mask = uintField(inst.Mapping["mask"])
		n.SBTRecordOffset = uintField(inst.Mapping["sbtRecordOffset"])
		bvh.Nodes = append(bvh.Nodes, n)
	}
	for _, tri := range lit.Mapping["triangle"].Sequence {
		n := accel.Node{Kind: accel.KindTriangle}
		verts := tri.Mapping["vertices"].Sequence
		for i := 0; i < len(verts) && i < 3; i++ {
			n.Vertices[i] = vec3(verts[i])
		}
		n.Opaque = boolField(tri.Mapping["opaque"])
		n.GeomIndex = uintField(tri.Mapping["geomIndex"])
		n.PrimIndex = uintField(tri.Mapping["primIndex"])
		bvh.Nodes = append(bvh.Nodes, n)
		bvh.GeometryCount++
	}
	for _, proc := range lit.Mapping["procedural"].Sequence {
		n := accel.Node{Kind: accel.KindProcedural}
		n.MinBounds = vec3(proc.Mapping["min"])
		n.MaxBounds = vec3(proc.Mapping["max"])
		n.Opaque = boolField(proc.Mapping["opaque"])
		n.GeomIndex = uintField(proc.Mapping["geomIndex"])
		n.PrimIndex = uintField(proc.Mapping["primIndex"])
		bvh.Nodes = append(bvh.Nodes, n)
		bvh.GeometryCount++
	}
	bvh.InstanceCount = len(bvh.Nodes) - bvh.BoxCount - bvh.GeometryCount
	bvh.ResolveAll()
	return bvh, nil
}

func vec3(lit ioformat.Literal) accel.Vec3 {
	var v accel.Vec3
	for i := 0; i < len(lit.Sequence) && i < 3; i++ {
		f, _ := literalFloat(lit.Sequence[i])
		v[i] = float32(f)
	}
	return v
}

func ref(lit ioformat.Literal) accel.Ref {
	if lit.Mapping == nil {
		return accel.Ref{}
	}
	return accel.Ref{
		Major: uint32(uintField(lit.Mapping["major"])),
		Minor: uint32(uintField(lit.Mapping["minor"])),
	}
}

func transform(lit ioformat.Literal) [4]accel.Vec3 {
	var t [4]accel.Vec3
	flat := lit.Sequence
	if len(flat) == 12 {
		for col := 0; col < 4; col++ {
			for row := 0; row < 3; row++ {
				f, _ := literalFloat(flat[col*3+row])
				t[col][row] = float32(f)
			}
		}
		return t
	}
	for i := 0; i < len(flat) && i < 4; i++ {
		t[i] = vec3(flat[i])
	}
	return t
}

func uintField(lit ioformat.Literal) uint32 {
	u, err := literalUint(lit)
	if err != nil {
		return 0
	}
	return uint32(u)
}

func boolField(lit ioformat.Literal) bool {
	return lit.Bool != nil && *lit.Bool
}
