package instruction

// Package-level extended-instruction-set dispatch (spec §4.5): OpExtInstImport
// names one of a handful of recognised sets by a literal string; OpExtInst
// then selects an operation within that set by a small integer. Grounded in
// the teacher's internal/vm dispatch-by-closed-enum idiom (see opcode.go's
// doc comment), generalized here to a two-level (set, instruction) lookup
// instead of a flat opcode space, since that's what the extended-instruction
// mechanism actually is.

import (
	"fmt"
	"math"
	"strings"

	"spirvm/internal/config"
	"spirvm/internal/data"
	"spirvm/internal/ifail"
	"spirvm/internal/token"
	"spirvm/internal/types"
	"spirvm/internal/value"
)

// ExtSet identifies which extended-instruction-set an OpExtInstImport result
// id names, resolved from its literal set name.
type ExtSet int

const (
	ExtUnknown ExtSet = iota
	ExtGLSLStd450
	ExtDebugPrintf
	ExtDebugInfo
)

func extSetFromName(name string) ExtSet {
	switch name {
	case "GLSL.std.450":
		return ExtGLSLStd450
	case "NonSemantic.DebugPrintf":
		return ExtDebugPrintf
	case "NonSemantic.Shader.DebugInfo100", "NonSemantic.DebugInfo":
		return ExtDebugInfo
	default:
		return ExtUnknown
	}
}

// makeExtInstImport materialises an OpExtInstImport result as an ordinary
// value.String holding the set's literal name, so OpExtInst can resolve it
// through the same view lookup as every other operand (spec §4.2, §4.5).
func (s *Static) makeExtInstImport(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	name, err := r.String()
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfValue(value.NewString(s.Arena, name.S)))
	return nil
}

// GLSL.std.450 extended instruction numbers, per the Khronos GLSL.std.450
// extended instruction set specification. Only the subset the spec's
// feature groups (config.GLSLFeature) name is implemented; anything else
// reports UnsupportedOpcode rather than silently misbehaving.
const (
	glslRound       = 1
	glslTrunc       = 3
	glslFAbs        = 4
	glslSAbs        = 5
	glslFSign       = 6
	glslSSign       = 7
	glslFloor       = 8
	glslCeil        = 9
	glslFract       = 10
	glslRadians     = 11
	glslDegrees     = 12
	glslSin         = 13
	glslCos         = 14
	glslTan         = 15
	glslAsin        = 16
	glslAcos        = 17
	glslAtan        = 18
	glslSinh        = 19
	glslCosh        = 20
	glslTanh        = 21
	glslAtan2       = 25
	glslPow         = 26
	glslExp         = 27
	glslLog         = 28
	glslExp2        = 29
	glslLog2        = 30
	glslSqrt        = 31
	glslInverseSqrt = 32
	glslFMin        = 37
	glslUMin        = 38
	glslSMin        = 39
	glslFMax        = 40
	glslUMax        = 41
	glslSMax        = 42
	glslFClamp      = 43
	glslUClamp      = 44
	glslSClamp      = 45
	glslFMix        = 46
	glslStep        = 48
	glslSmoothStep  = 49
	glslFma         = 50
	glslLength      = 66
	glslDistance    = 67
	glslCross       = 68
	glslNormalize   = 69
	glslReflect     = 71
)

func glslFeatureFor(opNum uint32) config.GLSLFeature {
	switch opNum {
	case glslRadians, glslDegrees, glslSin, glslCos, glslTan, glslAsin, glslAcos, glslAtan,
		glslSinh, glslCosh, glslTanh, glslAtan2:
		return config.FeatureTrig
	case glslPow, glslExp, glslLog, glslExp2, glslLog2, glslSqrt, glslInverseSqrt:
		return config.FeatureExponent
	case glslLength, glslDistance, glslCross, glslNormalize, glslReflect:
		return config.FeatureGeometric
	case glslFMix, glslStep, glslSmoothStep:
		return config.FeatureInterpolate
	default:
		return config.FeatureCommon
	}
}

// featureEnabled reports whether opNum's feature group is allowed under cfg.
// An unconfigured (zero-value) Config has a nil GLSLFeatures map, which is
// treated as "no restriction" rather than "everything disabled" so Dynamic
// values built without an explicit config.Config keep working.
func featureEnabled(cfg config.Config, opNum uint32) bool {
	if cfg.GLSLFeatures == nil {
		return true
	}
	enabled, known := cfg.GLSLFeatures[glslFeatureFor(opNum)]
	return !known || enabled
}

func (d *Dynamic) execExtInst(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rt, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	setRef, err := r.Ref()
	if err != nil {
		return err
	}
	setVal, err := tmp.lookupValue(setRef.Ref)
	if err != nil {
		return err
	}
	setStr, ok := setVal.(*value.String)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "OpExtInst set %%%d is not an extended-instruction-set import", setRef.Ref)
	}
	opNum, err := r.Uint()
	if err != nil {
		return err
	}

	switch extSetFromName(setStr.S) {
	case ExtGLSLStd450:
		if !featureEnabled(d.Config, opNum.U) {
			return ifail.New(ifail.UnsupportedOpcode, "GLSL.std.450 instruction %d disabled by configuration", opNum.U)
		}
		return d.execGLSLStd450(view, rt, id, opNum.U, r)
	case ExtDebugPrintf:
		return d.execDebugPrintf(view, id, r)
	case ExtDebugInfo:
		// Non-semantic debug info carries no runtime effect (spec §4.5).
		view.Define(id, data.OfValue(value.NewUint(d.Arena, 32, 0)))
		return nil
	default:
		return ifail.New(ifail.UnsupportedOpcode, "unrecognised extended instruction set %q", setStr.S)
	}
}

func (d *Dynamic) execGLSLStd450(view *data.View, resultType, id uint32, opNum uint32, r *token.Reader) error {
	tmp := &Static{Arena: d.Arena, View: view}
	tid, err := tmp.lookupType(resultType)
	if err != nil {
		return err
	}

	var args []value.Value
	for !r.Done() {
		ref, err := r.Ref()
		if err != nil {
			return err
		}
		v, err := tmp.lookupValue(ref.Ref)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	result, err := evalGLSLStd450(d.Arena, tid, opNum, args)
	if err != nil {
		return err
	}
	view.Define(id, data.OfValue(result))
	return nil
}

func evalGLSLStd450(arena *types.Arena, tid types.TypeID, opNum uint32, args []value.Value) (value.Value, error) {
	need := func(n int) error {
		if len(args) != n {
			return ifail.New(ifail.MalformedOperands, "GLSL.std.450 instruction %d expects %d operand(s), got %d", opNum, n, len(args))
		}
		return nil
	}

	switch opNum {
	case glslRound:
		return mapUnary(arena, tid, args[0], math.Round, nil, nil)
	case glslTrunc:
		return mapUnary(arena, tid, args[0], math.Trunc, nil, nil)
	case glslFAbs:
		return mapUnary(arena, tid, args[0], math.Abs, nil, nil)
	case glslSAbs:
		return mapUnary(arena, tid, args[0], nil, func(x int64) int64 {
			if x < 0 {
				return -x
			}
			return x
		}, nil)
	case glslFSign:
		return mapUnary(arena, tid, args[0], func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			default:
				return 0
			}
		}, nil, nil)
	case glslSSign:
		return mapUnary(arena, tid, args[0], nil, func(x int64) int64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			default:
				return 0
			}
		}, nil)
	case glslFloor:
		return mapUnary(arena, tid, args[0], math.Floor, nil, nil)
	case glslCeil:
		return mapUnary(arena, tid, args[0], math.Ceil, nil, nil)
	case glslFract:
		return mapUnary(arena, tid, args[0], func(x float64) float64 { return x - math.Floor(x) }, nil, nil)
	case glslRadians:
		return mapUnary(arena, tid, args[0], func(x float64) float64 { return x * math.Pi / 180 }, nil, nil)
	case glslDegrees:
		return mapUnary(arena, tid, args[0], func(x float64) float64 { return x * 180 / math.Pi }, nil, nil)
	case glslSin:
		return mapUnary(arena, tid, args[0], math.Sin, nil, nil)
	case glslCos:
		return mapUnary(arena, tid, args[0], math.Cos, nil, nil)
	case glslTan:
		return mapUnary(arena, tid, args[0], math.Tan, nil, nil)
	case glslAsin:
		return mapUnary(arena, tid, args[0], math.Asin, nil, nil)
	case glslAcos:
		return mapUnary(arena, tid, args[0], math.Acos, nil, nil)
	case glslAtan:
		return mapUnary(arena, tid, args[0], math.Atan, nil, nil)
	case glslSinh:
		return mapUnary(arena, tid, args[0], math.Sinh, nil, nil)
	case glslCosh:
		return mapUnary(arena, tid, args[0], math.Cosh, nil, nil)
	case glslTanh:
		return mapUnary(arena, tid, args[0], math.Tanh, nil, nil)
	case glslSqrt:
		return mapUnary(arena, tid, args[0], math.Sqrt, nil, nil)
	case glslInverseSqrt:
		return mapUnary(arena, tid, args[0], func(x float64) float64 { return 1 / math.Sqrt(x) }, nil, nil)
	case glslExp:
		return mapUnary(arena, tid, args[0], math.Exp, nil, nil)
	case glslLog:
		return mapUnary(arena, tid, args[0], math.Log, nil, nil)
	case glslExp2:
		return mapUnary(arena, tid, args[0], math.Exp2, nil, nil)
	case glslLog2:
		return mapUnary(arena, tid, args[0], math.Log2, nil, nil)

	case glslAtan2:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], math.Atan2, nil, nil)
	case glslPow:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], math.Pow, nil, nil)
	case glslFMin:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], math.Min, nil, nil)
	case glslUMin:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], nil, nil, minU)
	case glslSMin:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], nil, minI, nil)
	case glslFMax:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], math.Max, nil, nil)
	case glslUMax:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], nil, nil, maxU)
	case glslSMax:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], nil, maxI, nil)
	case glslStep:
		if err := need(2); err != nil {
			return nil, err
		}
		return mapBinary(arena, tid, args[0], args[1], func(edge, x float64) float64 {
			if x < edge {
				return 0
			}
			return 1
		}, nil, nil)
	case glslDistance:
		if err := need(2); err != nil {
			return nil, err
		}
		return glslDistanceFn(arena, tid, args[0], args[1])
	case glslCross:
		if err := need(2); err != nil {
			return nil, err
		}
		return glslCrossFn(arena, tid, args[0], args[1])

	case glslFClamp:
		if err := need(3); err != nil {
			return nil, err
		}
		return mapTernary(arena, tid, args[0], args[1], args[2], clampF, nil, nil)
	case glslUClamp:
		if err := need(3); err != nil {
			return nil, err
		}
		return mapTernary(arena, tid, args[0], args[1], args[2], nil, nil, clampU)
	case glslSClamp:
		if err := need(3); err != nil {
			return nil, err
		}
		return mapTernary(arena, tid, args[0], args[1], args[2], nil, clampI, nil)
	case glslFMix:
		if err := need(3); err != nil {
			return nil, err
		}
		return mapTernary(arena, tid, args[0], args[1], args[2], func(x, y, a float64) float64 {
			return x*(1-a) + y*a
		}, nil, nil)
	case glslFma:
		if err := need(3); err != nil {
			return nil, err
		}
		return mapTernary(arena, tid, args[0], args[1], args[2], func(a, b, c float64) float64 {
			return a*b + c
		}, nil, nil)
	case glslSmoothStep:
		if err := need(3); err != nil {
			return nil, err
		}
		return mapTernary(arena, tid, args[0], args[1], args[2], func(edge0, edge1, x float64) float64 {
			t := clampF(0, 1, (x-edge0)/(edge1-edge0))
			return t * t * (3 - 2*t)
		}, nil, nil)

	case glslLength:
		if err := need(1); err != nil {
			return nil, err
		}
		return glslLengthFn(arena, tid, args[0])
	case glslNormalize:
		if err := need(1); err != nil {
			return nil, err
		}
		return glslNormalizeFn(arena, tid, args[0])
	case glslReflect:
		if err := need(2); err != nil {
			return nil, err
		}
		return glslReflectFn(arena, tid, args[0], args[1])

	default:
		return nil, ifail.New(ifail.UnsupportedOpcode, "GLSL.std.450 instruction %d is not implemented", opNum)
	}
}

func clampF(lo, hi, x float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
func clampI(lo, hi, x int64) int64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
func clampU(lo, hi, x uint64) uint64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
func minI(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
func maxI(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
func minU(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
func maxU(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// mapUnary applies exactly one of ff/fi/fu (selected by the operand's base
// type) component-wise, recursing into Array operands the way every
// GLSL.std.450 vector-or-scalar instruction is defined to (spec §4.5).
func mapUnary(arena *types.Arena, tid types.TypeID, a value.Value, ff func(float64) float64, fi func(int64) int64, fu func(uint64) uint64) (value.Value, error) {
	if arr, ok := a.(*value.Array); ok {
		t, _ := arena.Lookup(tid)
		out := make([]value.Value, len(arr.Elements))
		for i, e := range arr.Elements {
			v, err := mapUnary(arena, t.SubElement, e, ff, fi, fu)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return value.NewArray(tid, out), nil
	}
	prim, ok := a.(*value.Primitive)
	if !ok {
		return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 operand is not numeric")
	}
	t, _ := arena.Lookup(tid)
	switch t.Base {
	case types.Float:
		if ff == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for float operands")
		}
		return value.NewFloat(arena, t.SubSize, ff(prim.AsFloat(arena))), nil
	case types.Int:
		if fi == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for signed-int operands")
		}
		return value.NewInt(arena, t.SubSize, fi(prim.AsInt(arena))), nil
	case types.Uint:
		if fu == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for unsigned-int operands")
		}
		return value.NewUint(arena, t.SubSize, fu(prim.AsUint())), nil
	default:
		return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 operand has unsupported base %s", t.Base)
	}
}

func mapBinary(arena *types.Arena, tid types.TypeID, a, b value.Value, ff func(x, y float64) float64, fi func(x, y int64) int64, fu func(x, y uint64) uint64) (value.Value, error) {
	if arrA, ok := a.(*value.Array); ok {
		arrB, ok := b.(*value.Array)
		if !ok || len(arrA.Elements) != len(arrB.Elements) {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 vector operands have mismatched shape")
		}
		t, _ := arena.Lookup(tid)
		out := make([]value.Value, len(arrA.Elements))
		for i := range arrA.Elements {
			v, err := mapBinary(arena, t.SubElement, arrA.Elements[i], arrB.Elements[i], ff, fi, fu)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return value.NewArray(tid, out), nil
	}
	pa, ok := a.(*value.Primitive)
	pb, ok2 := b.(*value.Primitive)
	if !ok || !ok2 {
		return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 operand is not numeric")
	}
	t, _ := arena.Lookup(tid)
	switch t.Base {
	case types.Float:
		if ff == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for float operands")
		}
		return value.NewFloat(arena, t.SubSize, ff(pa.AsFloat(arena), pb.AsFloat(arena))), nil
	case types.Int:
		if fi == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for signed-int operands")
		}
		return value.NewInt(arena, t.SubSize, fi(pa.AsInt(arena), pb.AsInt(arena))), nil
	case types.Uint:
		if fu == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for unsigned-int operands")
		}
		return value.NewUint(arena, t.SubSize, fu(pa.AsUint(), pb.AsUint())), nil
	default:
		return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 operand has unsupported base %s", t.Base)
	}
}

func mapTernary(arena *types.Arena, tid types.TypeID, a, b, c value.Value, ff func(x, y, z float64) float64, fi func(x, y, z int64) int64, fu func(x, y, z uint64) uint64) (value.Value, error) {
	if arrA, ok := a.(*value.Array); ok {
		arrB, okB := b.(*value.Array)
		arrC, okC := c.(*value.Array)
		if !okB || !okC || len(arrA.Elements) != len(arrB.Elements) || len(arrA.Elements) != len(arrC.Elements) {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 vector operands have mismatched shape")
		}
		t, _ := arena.Lookup(tid)
		out := make([]value.Value, len(arrA.Elements))
		for i := range arrA.Elements {
			v, err := mapTernary(arena, t.SubElement, arrA.Elements[i], arrB.Elements[i], arrC.Elements[i], ff, fi, fu)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return value.NewArray(tid, out), nil
	}
	pa, ok := a.(*value.Primitive)
	pb, ok2 := b.(*value.Primitive)
	pc, ok3 := c.(*value.Primitive)
	if !ok || !ok2 || !ok3 {
		return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 operand is not numeric")
	}
	t, _ := arena.Lookup(tid)
	switch t.Base {
	case types.Float:
		if ff == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for float operands")
		}
		return value.NewFloat(arena, t.SubSize, ff(pa.AsFloat(arena), pb.AsFloat(arena), pc.AsFloat(arena))), nil
	case types.Int:
		if fi == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for signed-int operands")
		}
		return value.NewInt(arena, t.SubSize, fi(pa.AsInt(arena), pb.AsInt(arena), pc.AsInt(arena))), nil
	case types.Uint:
		if fu == nil {
			return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 instruction is not defined for unsigned-int operands")
		}
		return value.NewUint(arena, t.SubSize, fu(pa.AsUint(), pb.AsUint(), pc.AsUint())), nil
	default:
		return nil, ifail.New(ifail.TypeMismatch, "GLSL.std.450 operand has unsupported base %s", t.Base)
	}
}

// components flattens a (possibly vector) numeric value into float64s for
// the geometric instructions, which always operate on the whole vector at
// once rather than component-wise.
func components(arena *types.Arena, v value.Value) ([]float64, error) {
	if arr, ok := v.(*value.Array); ok {
		out := make([]float64, len(arr.Elements))
		for i, e := range arr.Elements {
			prim, ok := e.(*value.Primitive)
			if !ok {
				return nil, ifail.New(ifail.TypeMismatch, "vector element is not a scalar")
			}
			out[i] = prim.AsFloat(arena)
		}
		return out, nil
	}
	prim, ok := v.(*value.Primitive)
	if !ok {
		return nil, ifail.New(ifail.TypeMismatch, "operand is not numeric")
	}
	return []float64{prim.AsFloat(arena)}, nil
}

func glslLengthFn(arena *types.Arena, tid types.TypeID, v value.Value) (value.Value, error) {
	cs, err := components(arena, v)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, c := range cs {
		sum += c * c
	}
	t, _ := arena.Lookup(tid)
	return value.NewFloat(arena, t.SubSize, math.Sqrt(sum)), nil
}

func glslDistanceFn(arena *types.Arena, tid types.TypeID, a, b value.Value) (value.Value, error) {
	ca, err := components(arena, a)
	if err != nil {
		return nil, err
	}
	cb, err := components(arena, b)
	if err != nil {
		return nil, err
	}
	if len(ca) != len(cb) {
		return nil, ifail.New(ifail.TypeMismatch, "distance operands have mismatched shape")
	}
	sum := 0.0
	for i := range ca {
		d := ca[i] - cb[i]
		sum += d * d
	}
	t, _ := arena.Lookup(tid)
	return value.NewFloat(arena, t.SubSize, math.Sqrt(sum)), nil
}

func glslCrossFn(arena *types.Arena, tid types.TypeID, a, b value.Value) (value.Value, error) {
	ca, err := components(arena, a)
	if err != nil {
		return nil, err
	}
	cb, err := components(arena, b)
	if err != nil {
		return nil, err
	}
	if len(ca) != 3 || len(cb) != 3 {
		return nil, ifail.New(ifail.InputShapeMismatch, "cross requires two 3-vectors")
	}
	r := [3]float64{
		ca[1]*cb[2] - ca[2]*cb[1],
		ca[2]*cb[0] - ca[0]*cb[2],
		ca[0]*cb[1] - ca[1]*cb[0],
	}
	t, _ := arena.Lookup(tid)
	elemT, _ := arena.Lookup(t.SubElement)
	elems := make([]value.Value, 3)
	for i, c := range r {
		elems[i] = value.NewFloat(arena, elemT.SubSize, c)
	}
	return value.NewArray(tid, elems), nil
}

func glslNormalizeFn(arena *types.Arena, tid types.TypeID, v value.Value) (value.Value, error) {
	cs, err := components(arena, v)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, c := range cs {
		sum += c * c
	}
	length := math.Sqrt(sum)
	if arr, ok := v.(*value.Array); ok {
		t, _ := arena.Lookup(tid)
		elemT, _ := arena.Lookup(t.SubElement)
		elems := make([]value.Value, len(arr.Elements))
		for i, c := range cs {
			n := 0.0
			if length != 0 {
				n = c / length
			}
			elems[i] = value.NewFloat(arena, elemT.SubSize, n)
		}
		return value.NewArray(tid, elems), nil
	}
	t, _ := arena.Lookup(tid)
	n := 0.0
	if length != 0 {
		n = cs[0] / length
	}
	return value.NewFloat(arena, t.SubSize, n), nil
}

func glslReflectFn(arena *types.Arena, tid types.TypeID, i, n value.Value) (value.Value, error) {
	ci, err := components(arena, i)
	if err != nil {
		return nil, err
	}
	cn, err := components(arena, n)
	if err != nil {
		return nil, err
	}
	if len(ci) != len(cn) {
		return nil, ifail.New(ifail.TypeMismatch, "reflect operands have mismatched shape")
	}
	dot := 0.0
	for k := range ci {
		dot += ci[k] * cn[k]
	}
	t, _ := arena.Lookup(tid)
	elemT, _ := arena.Lookup(t.SubElement)
	elems := make([]value.Value, len(ci))
	for k := range ci {
		elems[k] = value.NewFloat(arena, elemT.SubSize, ci[k]-2*dot*cn[k])
	}
	return value.NewArray(tid, elems), nil
}

// execDebugPrintf implements NonSemantic.DebugPrintf: a literal format
// string id followed by zero or more value operands substituted for each
// "%..." conversion left to right, written to d.DebugOut (spec §4.5's "must
// be supported for correctness" — shaders commonly gate logic on whether a
// printf fired, so the call must at least be dispatchable even though the
// interpreter has no real console attached to a GPU invocation).
func (d *Dynamic) execDebugPrintf(view *data.View, id uint32, r *token.Reader) error {
	tmp := &Static{Arena: d.Arena, View: view}
	fmtRef, err := r.Ref()
	if err != nil {
		return err
	}
	fmtVal, err := tmp.lookupValue(fmtRef.Ref)
	if err != nil {
		return err
	}
	fmtStr, ok := fmtVal.(*value.String)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "DebugPrintf format %%%d is not a string", fmtRef.Ref)
	}

	var args []value.Value
	for !r.Done() {
		ref, err := r.Ref()
		if err != nil {
			return err
		}
		v, err := tmp.lookupValue(ref.Ref)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	if d.DebugOut != nil {
		fmt.Fprintln(d.DebugOut, renderDebugPrintf(d.Arena, fmtStr.S, args))
	}
	view.Define(id, data.OfValue(value.NewUint(d.Arena, 32, 0)))
	return nil
}

// renderDebugPrintf substitutes each "%..." conversion in format, left to
// right, with args[i].Print — a close approximation of the C-printf
// semantics NonSemantic.DebugPrintf borrows, without reproducing printf's
// full width/precision grammar (spec Non-goals exclude exact GPU debug
// tooling fidelity).
func renderDebugPrintf(arena *types.Arena, format string, args []value.Value) string {
	var b strings.Builder
	argi := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(format) && strings.IndexByte("0123456789.+- ", format[j]) >= 0 {
			j++
		}
		if j >= len(format) {
			b.WriteByte(c)
			continue
		}
		verb := format[j]
		if verb == '%' {
			b.WriteByte('%')
			i = j
			continue
		}
		if argi < len(args) {
			b.WriteString(args[argi].Print(arena, 0))
			argi++
		}
		i = j
	}
	return b.String()
}
