package instruction

import (
	"math"

	"spirvm/internal/data"
	"spirvm/internal/ifail"
	"spirvm/internal/token"
	"spirvm/internal/types"
	"spirvm/internal/value"
)

// IsPure reports whether op behaves identically regardless of when it runs:
// arithmetic, comparisons, conversions, and composite shape operations only
// ever read already-resolved operand values and produce a fresh result, so
// makeResult can compute them during the static pass when every operand
// happens to already be a constant, and the dynamic executor can compute the
// very same thing at runtime by falling through to the same code (spec
// §4.4: "Unhandled opcodes fall back to the makeResult static implementation
// ... share one definition").
func IsPure(op Op) bool {
	switch op {
	case OpSNegate, OpFNegate, OpIAdd, OpFAdd, OpISub, OpFSub, OpIMul, OpFMul,
		OpUDiv, OpSDiv, OpFDiv, OpUMod, OpSRem, OpSMod, OpFRem, OpFMod,
		OpLogicalEqual, OpLogicalNotEqual, OpLogicalOr, OpLogicalAnd, OpLogicalNot, OpSelect,
		OpIEqual, OpINotEqual, OpUGreaterThan, OpSGreaterThan, OpUGreaterThanEqual, OpSGreaterThanEqual,
		OpULessThan, OpSLessThan, OpULessThanEqual, OpSLessThanEqual,
		OpFOrdEqual, OpFUnordEqual, OpFOrdNotEqual, OpFUnordNotEqual,
		OpFOrdLessThan, OpFUnordLessThan, OpFOrdGreaterThan, OpFUnordGreaterThan,
		OpFOrdLessThanEqual, OpFUnordLessThanEqual, OpFOrdGreaterThanEqual, OpFUnordGreaterThanEqual,
		OpConvertFToU, OpConvertFToS, OpConvertSToF, OpConvertUToF, OpUConvert, OpSConvert, OpFConvert, OpBitcast,
		OpCompositeConstruct, OpCompositeExtract, OpCompositeInsert, OpCopyObject, OpTranspose, OpUndef:
		return true
	default:
		return false
	}
}

// computePure evaluates one of the opcodes IsPure recognizes, reading its
// operand values from s.View and defining its result there.
func computePure(s *Static, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	switch Op(instr.Opcode) {
	case OpUndef:
		rt, err := r.Ref()
		if err != nil {
			return err
		}
		id, err := r.Ref()
		if err != nil {
			return err
		}
		tid, err := s.lookupType(rt.Ref)
		if err != nil {
			return err
		}
		s.View.Define(id.Ref, data.OfValue(zeroValue(s.Arena, tid)))
		return nil
	case OpCopyObject:
		return s.copyResult(r, func(operands []value.Value) (value.Value, error) {
			return operands[0].Clone(), nil
		})
	case OpSNegate:
		return s.arith1(r, func(t types.Type, a *value.Primitive) (*value.Primitive, error) {
			return value.NewInt(s.Arena, t.SubSize, -a.AsInt(s.Arena)), nil
		})
	case OpFNegate:
		return s.arith1(r, func(t types.Type, a *value.Primitive) (*value.Primitive, error) {
			return value.NewFloat(s.Arena, t.SubSize, -a.AsFloat(s.Arena)), nil
		})
	case OpIAdd:
		return s.arith2Int(r, func(a, b uint64) uint64 { return a + b })
	case OpISub:
		return s.arith2Int(r, func(a, b uint64) uint64 { return a - b })
	case OpIMul:
		return s.arith2Int(r, func(a, b uint64) uint64 { return a * b })
	case OpUDiv:
		return s.arith2IntErr(r, func(a, b uint64) (uint64, error) {
			if b == 0 {
				return 0, ifail.New(ifail.Arithmetic, "division by zero")
			}
			return a / b, nil
		})
	case OpUMod:
		return s.arith2IntErr(r, func(a, b uint64) (uint64, error) {
			if b == 0 {
				return 0, ifail.New(ifail.Arithmetic, "modulo by zero")
			}
			return a % b, nil
		})
	case OpSDiv:
		return s.arith2SignedErr(r, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, ifail.New(ifail.Arithmetic, "division by zero")
			}
			return a / b, nil
		})
	case OpSRem:
		return s.arith2SignedErr(r, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, ifail.New(ifail.Arithmetic, "remainder by zero")
			}
			return a % b, nil
		})
	case OpSMod:
		return s.arith2SignedErr(r, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, ifail.New(ifail.Arithmetic, "modulo by zero")
			}
			m := a % b
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m, nil
		})
	case OpFAdd:
		return s.arith2Float(r, func(a, b float64) float64 { return a + b })
	case OpFSub:
		return s.arith2Float(r, func(a, b float64) float64 { return a - b })
	case OpFMul:
		return s.arith2Float(r, func(a, b float64) float64 { return a * b })
	case OpFDiv:
		return s.arith2Float(r, func(a, b float64) float64 { return a / b })
	case OpFRem:
		return s.arith2Float(r, math.Remainder)
	case OpFMod:
		return s.arith2Float(r, func(a, b float64) float64 {
			m := math.Mod(a, b)
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m
		})
	case OpLogicalAnd:
		return s.logic2(r, func(a, b bool) bool { return a && b })
	case OpLogicalOr:
		return s.logic2(r, func(a, b bool) bool { return a || b })
	case OpLogicalEqual:
		return s.logic2(r, func(a, b bool) bool { return a == b })
	case OpLogicalNotEqual:
		return s.logic2(r, func(a, b bool) bool { return a != b })
	case OpLogicalNot:
		return s.logic1(r, func(a bool) bool { return !a })
	case OpSelect:
		return s.selectOp(r)
	case OpIEqual:
		return s.cmpInt(r, func(a, b uint64) bool { return a == b })
	case OpINotEqual:
		return s.cmpInt(r, func(a, b uint64) bool { return a != b })
	case OpUGreaterThan:
		return s.cmpInt(r, func(a, b uint64) bool { return a > b })
	case OpUGreaterThanEqual:
		return s.cmpInt(r, func(a, b uint64) bool { return a >= b })
	case OpULessThan:
		return s.cmpInt(r, func(a, b uint64) bool { return a < b })
	case OpULessThanEqual:
		return s.cmpInt(r, func(a, b uint64) bool { return a <= b })
	case OpSGreaterThan:
		return s.cmpSigned(r, func(a, b int64) bool { return a > b })
	case OpSGreaterThanEqual:
		return s.cmpSigned(r, func(a, b int64) bool { return a >= b })
	case OpSLessThan:
		return s.cmpSigned(r, func(a, b int64) bool { return a < b })
	case OpSLessThanEqual:
		return s.cmpSigned(r, func(a, b int64) bool { return a <= b })
	case OpFOrdEqual, OpFUnordEqual:
		return s.cmpFloat(r, func(a, b float64) bool { return a == b })
	case OpFOrdNotEqual, OpFUnordNotEqual:
		return s.cmpFloat(r, func(a, b float64) bool { return a != b })
	case OpFOrdLessThan, OpFUnordLessThan:
		return s.cmpFloat(r, func(a, b float64) bool { return a < b })
	case OpFOrdGreaterThan, OpFUnordGreaterThan:
		return s.cmpFloat(r, func(a, b float64) bool { return a > b })
	case OpFOrdLessThanEqual, OpFUnordLessThanEqual:
		return s.cmpFloat(r, func(a, b float64) bool { return a <= b })
	case OpFOrdGreaterThanEqual, OpFUnordGreaterThanEqual:
		return s.cmpFloat(r, func(a, b float64) bool { return a >= b })
	case OpConvertUToF:
		return s.convert(r, func(t types.Type, a *value.Primitive) *value.Primitive {
			return value.NewFloat(s.Arena, t.SubSize, float64(a.AsUint()))
		})
	case OpConvertSToF:
		return s.convert(r, func(t types.Type, a *value.Primitive) *value.Primitive {
			return value.NewFloat(s.Arena, t.SubSize, float64(a.AsInt(s.Arena)))
		})
	case OpConvertFToU:
		return s.convert(r, func(t types.Type, a *value.Primitive) *value.Primitive {
			return value.NewUint(s.Arena, t.SubSize, uint64(a.AsFloat(s.Arena)))
		})
	case OpConvertFToS:
		return s.convert(r, func(t types.Type, a *value.Primitive) *value.Primitive {
			return value.NewInt(s.Arena, t.SubSize, int64(a.AsFloat(s.Arena)))
		})
	case OpUConvert:
		return s.convert(r, func(t types.Type, a *value.Primitive) *value.Primitive {
			return value.NewUint(s.Arena, t.SubSize, a.AsUint())
		})
	case OpSConvert:
		return s.convert(r, func(t types.Type, a *value.Primitive) *value.Primitive {
			return value.NewInt(s.Arena, t.SubSize, a.AsInt(s.Arena))
		})
	case OpFConvert:
		return s.convert(r, func(t types.Type, a *value.Primitive) *value.Primitive {
			return value.NewFloat(s.Arena, t.SubSize, a.AsFloat(s.Arena))
		})
	case OpBitcast:
		return s.bitcast(r)
	case OpCompositeConstruct:
		return s.compositeConstruct(r)
	case OpCompositeExtract:
		return s.compositeExtract(r)
	case OpCompositeInsert:
		return s.compositeInsert(r)
	case OpTranspose:
		return s.transpose(r)
	default:
		return ifail.New(ifail.UnsupportedOpcode, "opcode %d is not a pure operation", instr.Opcode)
	}
}

func (s *Static) resultAndOperands(r *token.Reader, n int) (resultTID types.TypeID, resultID uint32, operands []value.Value, err error) {
	rt, id, err := s.resultTypeAndID(r)
	if err != nil {
		return 0, 0, nil, err
	}
	resultTID, err = s.lookupType(rt)
	if err != nil {
		return 0, 0, nil, err
	}
	operands = make([]value.Value, n)
	for i := 0; i < n; i++ {
		ref, err := r.Ref()
		if err != nil {
			return 0, 0, nil, err
		}
		v, err := s.lookupValue(ref.Ref)
		if err != nil {
			return 0, 0, nil, err
		}
		operands[i] = v
	}
	return resultTID, id, operands, nil
}

func (s *Static) copyResult(r *token.Reader, build func([]value.Value) (value.Value, error)) error {
	_, id, ops, err := s.resultAndOperands(r, 1)
	if err != nil {
		return err
	}
	v, err := build(ops)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(v))
	return nil
}

func (s *Static) arith1(r *token.Reader, f func(types.Type, *value.Primitive) (*value.Primitive, error)) error {
	tid, id, ops, err := s.resultAndOperands(r, 1)
	if err != nil {
		return err
	}
	a, ok := ops[0].(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "expected scalar operand")
	}
	t, _ := s.Arena.Lookup(tid)
	res, err := f(t, a)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(res))
	return nil
}

func (s *Static) arith2Values(r *token.Reader) (types.Type, *value.Primitive, *value.Primitive, uint32, error) {
	tid, id, ops, err := s.resultAndOperands(r, 2)
	if err != nil {
		return types.Type{}, nil, nil, 0, err
	}
	a, ok := ops[0].(*value.Primitive)
	b, ok2 := ops[1].(*value.Primitive)
	if !ok || !ok2 {
		return types.Type{}, nil, nil, 0, ifail.New(ifail.TypeMismatch, "expected scalar operands")
	}
	t, _ := s.Arena.Lookup(tid)
	return t, a, b, id, nil
}

func (s *Static) arith2Int(r *token.Reader, f func(a, b uint64) uint64) error {
	t, a, b, id, err := s.arith2Values(r)
	if err != nil {
		return err
	}
	res := f(a.AsUint(), b.AsUint())
	s.View.Define(id, data.OfValue(value.NewUint(s.Arena, t.SubSize, res)))
	return nil
}

func (s *Static) arith2IntErr(r *token.Reader, f func(a, b uint64) (uint64, error)) error {
	t, a, b, id, err := s.arith2Values(r)
	if err != nil {
		return err
	}
	res, err := f(a.AsUint(), b.AsUint())
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(value.NewUint(s.Arena, t.SubSize, res)))
	return nil
}

func (s *Static) arith2SignedErr(r *token.Reader, f func(a, b int64) (int64, error)) error {
	t, a, b, id, err := s.arith2Values(r)
	if err != nil {
		return err
	}
	res, err := f(a.AsInt(s.Arena), b.AsInt(s.Arena))
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(value.NewInt(s.Arena, t.SubSize, res)))
	return nil
}

func (s *Static) arith2Float(r *token.Reader, f func(a, b float64) float64) error {
	t, a, b, id, err := s.arith2Values(r)
	if err != nil {
		return err
	}
	res := f(a.AsFloat(s.Arena), b.AsFloat(s.Arena))
	s.View.Define(id, data.OfValue(value.NewFloat(s.Arena, t.SubSize, res)))
	return nil
}

func (s *Static) logic1(r *token.Reader, f func(a bool) bool) error {
	_, id, ops, err := s.resultAndOperands(r, 1)
	if err != nil {
		return err
	}
	a, ok := ops[0].(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "expected bool operand")
	}
	s.View.Define(id, data.OfValue(value.NewBool(s.Arena, f(a.AsBool()))))
	return nil
}

func (s *Static) logic2(r *token.Reader, f func(a, b bool) bool) error {
	_, id, ops, err := s.resultAndOperands(r, 2)
	if err != nil {
		return err
	}
	a, ok := ops[0].(*value.Primitive)
	b, ok2 := ops[1].(*value.Primitive)
	if !ok || !ok2 {
		return ifail.New(ifail.TypeMismatch, "expected bool operands")
	}
	s.View.Define(id, data.OfValue(value.NewBool(s.Arena, f(a.AsBool(), b.AsBool()))))
	return nil
}

func (s *Static) selectOp(r *token.Reader) error {
	_, id, ops, err := s.resultAndOperands(r, 3)
	if err != nil {
		return err
	}
	cond, ok := ops[0].(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "OpSelect condition must be scalar bool")
	}
	if cond.AsBool() {
		s.View.Define(id, data.OfValue(ops[1].Clone()))
	} else {
		s.View.Define(id, data.OfValue(ops[2].Clone()))
	}
	return nil
}

func (s *Static) cmpInt(r *token.Reader, f func(a, b uint64) bool) error {
	_, a, b, id, err := s.arith2Values(r)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(value.NewBool(s.Arena, f(a.AsUint(), b.AsUint()))))
	return nil
}

func (s *Static) cmpSigned(r *token.Reader, f func(a, b int64) bool) error {
	_, a, b, id, err := s.arith2Values(r)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(value.NewBool(s.Arena, f(a.AsInt(s.Arena), b.AsInt(s.Arena)))))
	return nil
}

func (s *Static) cmpFloat(r *token.Reader, f func(a, b float64) bool) error {
	_, a, b, id, err := s.arith2Values(r)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(value.NewBool(s.Arena, f(a.AsFloat(s.Arena), b.AsFloat(s.Arena)))))
	return nil
}

func (s *Static) convert(r *token.Reader, f func(types.Type, *value.Primitive) *value.Primitive) error {
	tid, id, ops, err := s.resultAndOperands(r, 1)
	if err != nil {
		return err
	}
	a, ok := ops[0].(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "expected scalar operand")
	}
	t, _ := s.Arena.Lookup(tid)
	s.View.Define(id, data.OfValue(f(t, a)))
	return nil
}

// bitcast reinterprets the operand's raw bit pattern as the result type,
// rather than performing a numeric conversion.
func (s *Static) bitcast(r *token.Reader) error {
	tid, id, ops, err := s.resultAndOperands(r, 1)
	if err != nil {
		return err
	}
	a, ok := ops[0].(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "OpBitcast only supports scalar operands")
	}
	dst := value.Blank(tid)
	if err := dst.CopyReinterp(s.Arena, a); err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(dst))
	return nil
}

func (s *Static) compositeConstruct(r *token.Reader) error {
	rt, err := r.Ref()
	if err != nil {
		return err
	}
	id, err := r.Ref()
	if err != nil {
		return err
	}
	tid, err := s.lookupType(rt.Ref)
	if err != nil {
		return err
	}
	var elems []value.Value
	for !r.Done() {
		ref, err := r.Ref()
		if err != nil {
			return err
		}
		v, err := s.lookupValue(ref.Ref)
		if err != nil {
			return err
		}
		elems = append(elems, v.Clone())
	}
	ty, _ := s.Arena.Lookup(tid)
	var result value.Value
	if ty.Base == types.Struct {
		result = value.NewStruct(tid, elems)
	} else {
		result = value.NewArray(tid, elems)
	}
	s.View.Define(id.Ref, data.OfValue(result))
	return nil
}

func (s *Static) compositeExtract(r *token.Reader) error {
	rt, err := r.Ref()
	if err != nil {
		return err
	}
	id, err := r.Ref()
	if err != nil {
		return err
	}
	composite, err := r.Ref()
	if err != nil {
		return err
	}
	if _, err := s.lookupType(rt.Ref); err != nil {
		return err
	}
	v, err := s.lookupValue(composite.Ref)
	if err != nil {
		return err
	}
	for !r.Done() {
		idx, err := r.Uint()
		if err != nil {
			return err
		}
		v, err = indexInto(v, idx.U)
		if err != nil {
			return err
		}
	}
	s.View.Define(id.Ref, data.OfValue(v.Clone()))
	return nil
}

func indexInto(v value.Value, idx uint32) (value.Value, error) {
	switch c := v.(type) {
	case *value.Array:
		if int(idx) >= len(c.Elements) {
			return nil, ifail.New(ifail.IndexOutOfBounds, "array index %d out of range", idx)
		}
		return c.Elements[idx], nil
	case *value.Struct:
		if int(idx) >= len(c.Fields) {
			return nil, ifail.New(ifail.IndexOutOfBounds, "struct field index %d out of range", idx)
		}
		return c.Fields[idx], nil
	default:
		return nil, ifail.New(ifail.TypeMismatch, "cannot index into a non-composite value")
	}
}

func (s *Static) compositeInsert(r *token.Reader) error {
	rt, err := r.Ref()
	if err != nil {
		return err
	}
	id, err := r.Ref()
	if err != nil {
		return err
	}
	object, err := r.Ref()
	if err != nil {
		return err
	}
	composite, err := r.Ref()
	if err != nil {
		return err
	}
	if _, err := s.lookupType(rt.Ref); err != nil {
		return err
	}
	obj, err := s.lookupValue(object.Ref)
	if err != nil {
		return err
	}
	base, err := s.lookupValue(composite.Ref)
	if err != nil {
		return err
	}
	result := base.Clone()
	var indices []uint32
	for !r.Done() {
		idx, err := r.Uint()
		if err != nil {
			return err
		}
		indices = append(indices, idx.U)
	}
	if err := insertInto(s.Arena, result, indices, obj); err != nil {
		return err
	}
	s.View.Define(id.Ref, data.OfValue(result))
	return nil
}

func insertInto(arena *types.Arena, v value.Value, indices []uint32, obj value.Value) error {
	if len(indices) == 0 {
		return ifail.New(ifail.MalformedOperands, "OpCompositeInsert requires at least one index")
	}
	idx := indices[0]
	switch c := v.(type) {
	case *value.Array:
		if int(idx) >= len(c.Elements) {
			return ifail.New(ifail.IndexOutOfBounds, "array index %d out of range", idx)
		}
		if len(indices) == 1 {
			return c.Elements[idx].CopyFrom(arena, obj)
		}
		return insertInto(arena, c.Elements[idx], indices[1:], obj)
	case *value.Struct:
		if int(idx) >= len(c.Fields) {
			return ifail.New(ifail.IndexOutOfBounds, "struct field index %d out of range", idx)
		}
		if len(indices) == 1 {
			return c.Fields[idx].CopyFrom(arena, obj)
		}
		return insertInto(arena, c.Fields[idx], indices[1:], obj)
	default:
		return ifail.New(ifail.TypeMismatch, "cannot insert into a non-composite value")
	}
}

func (s *Static) transpose(r *token.Reader) error {
	rt, err := r.Ref()
	if err != nil {
		return err
	}
	id, err := r.Ref()
	if err != nil {
		return err
	}
	mat, err := r.Ref()
	if err != nil {
		return err
	}
	tid, err := s.lookupType(rt.Ref)
	if err != nil {
		return err
	}
	v, err := s.lookupValue(mat.Ref)
	if err != nil {
		return err
	}
	src, ok := v.(*value.Array)
	if !ok || len(src.Elements) == 0 {
		return ifail.New(ifail.TypeMismatch, "OpTranspose requires a non-empty matrix operand")
	}
	cols := len(src.Elements)
	rowsCol, ok := src.Elements[0].(*value.Array)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "OpTranspose operand is not column-major")
	}
	rows := len(rowsCol.Elements)

	ty, _ := s.Arena.Lookup(tid)
	resultCols := make([]value.Value, rows)
	for rIdx := 0; rIdx < rows; rIdx++ {
		row := make([]value.Value, cols)
		for cIdx := 0; cIdx < cols; cIdx++ {
			col := src.Elements[cIdx].(*value.Array)
			row[cIdx] = col.Elements[rIdx].Clone()
		}
		resultCols[rIdx] = value.NewArray(ty.SubElement, row)
	}
	s.View.Define(id.Ref, data.OfValue(value.NewArray(tid, resultCols)))
	return nil
}
