package instruction

import (
	"fmt"

	"spirvm/internal/data"
	"spirvm/internal/decoration"
	"spirvm/internal/ifail"
	"spirvm/internal/token"
	"spirvm/internal/types"
	"spirvm/internal/value"
)

// Static carries the state the static pass threads across instructions: the
// type arena, the global view results install into, and the decoration
// queue instructions append to as they're encountered (spec §4.2).
type Static struct {
	Arena *types.Arena
	View  *data.View
	Queue *decoration.Queue

	labelType types.TypeID // lazily interned uint32 used for label Primitives
}

func NewStatic(arena *types.Arena, view *data.View) *Static {
	return &Static{Arena: arena, View: view, Queue: &decoration.Queue{}}
}

// RunStaticPass walks instrs once, queueing decorations and materialising
// every statically-dependent result (spec §4.2). Decorations are applied
// only once the whole list has been walked, since a target id may not exist
// yet when its decoration is encountered.
func RunStaticPass(s *Static, instrs []token.Instruction) error {
	for _, instr := range instrs {
		op := Op(instr.Opcode)
		if IsDecorationInstruction(op) {
			if err := enqueueDecoration(s, instr); err != nil {
				return err
			}
		}
		if IsStaticDependent(op) {
			if err := MakeResult(s, instr); err != nil {
				return fmt.Errorf("instruction %d (opcode %d): %w", instr.Index, instr.Opcode, err)
			}
		}
	}
	return s.Queue.Apply(s.View, s.Arena)
}

func enqueueDecoration(s *Static, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	switch Op(instr.Opcode) {
	case OpName:
		target, err := r.Ref()
		if err != nil {
			return err
		}
		name, err := r.String()
		if err != nil {
			return err
		}
		s.Queue.Enqueue(decoration.Entry{Op: decoration.OpName, Target: target.Ref, Name: name.S})
	case OpMemberName:
		target, err := r.Ref()
		if err != nil {
			return err
		}
		member, err := r.Uint()
		if err != nil {
			return err
		}
		name, err := r.String()
		if err != nil {
			return err
		}
		s.Queue.Enqueue(decoration.Entry{Op: decoration.OpMemberName, Target: target.Ref, Member: member.U, Name: name.S})
	case OpEntryPoint:
		if _, err := r.Uint(); err != nil { // execution model, unused for naming
			return err
		}
		target, err := r.Ref()
		if err != nil {
			return err
		}
		name, err := r.String()
		if err != nil {
			return err
		}
		s.Queue.Enqueue(decoration.Entry{Op: decoration.OpEntryPointDecl, Target: target.Ref, Name: name.S, Operands: r.RestAsRefs()})
	case OpExecutionMode, OpExecutionModeId:
		target, err := r.Ref()
		if err != nil {
			return err
		}
		mode, err := r.Uint()
		if err != nil {
			return err
		}
		rest := make([]uint32, 0, r.Remaining())
		for !r.Done() {
			v, _ := r.Uint()
			rest = append(rest, v.U)
		}
		s.Queue.Enqueue(decoration.Entry{Op: decoration.OpExecutionMode, Target: target.Ref, Decor: executionModeName(mode.U), Operands: rest})
	case OpDecorate:
		target, err := r.Ref()
		if err != nil {
			return err
		}
		decor, err := r.Uint()
		if err != nil {
			return err
		}
		rest := make([]uint32, 0, r.Remaining())
		for !r.Done() {
			v, _ := r.Uint()
			rest = append(rest, v.U)
		}
		s.Queue.Enqueue(decoration.Entry{Op: decoration.OpDecorate, Target: target.Ref, Decor: decorationName(decor.U), Operands: rest})
	case OpMemberDecorate:
		target, err := r.Ref()
		if err != nil {
			return err
		}
		member, err := r.Uint()
		if err != nil {
			return err
		}
		decor, err := r.Uint()
		if err != nil {
			return err
		}
		rest := make([]uint32, 0, r.Remaining())
		for !r.Done() {
			v, _ := r.Uint()
			rest = append(rest, v.U)
		}
		s.Queue.Enqueue(decoration.Entry{Op: decoration.OpMemberDecorate, Target: target.Ref, Member: member.U, Decor: decorationName(decor.U), Operands: rest})
	}
	return nil
}

func executionModeName(code uint32) string {
	switch code {
	case 17:
		return "LocalSize"
	default:
		return fmt.Sprintf("ExecutionMode(%d)", code)
	}
}

func decorationName(code uint32) string {
	switch code {
	case 30:
		return "Location"
	case 33:
		return "Binding"
	case 34:
		return "DescriptorSet"
	case 24:
		return "NonWritable"
	case 11:
		return "BuiltIn"
	default:
		return fmt.Sprintf("Decoration(%d)", code)
	}
}

// MakeResult materialises the statically-knowable result of instr into the
// static pass's view, per spec §4.2.
func MakeResult(s *Static, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	switch Op(instr.Opcode) {
	case OpTypeVoid:
		return defineType(s, r, func() (types.TypeID, error) { return s.Arena.Primitive(types.Void, 0), nil })
	case OpTypeBool:
		return defineType(s, r, func() (types.TypeID, error) { return s.Arena.Primitive(types.Bool, 0), nil })
	case OpTypeInt:
		return s.makeTypeInt(r)
	case OpTypeFloat:
		return s.makeTypeFloat(r)
	case OpTypeVector:
		return s.makeTypeVector(r)
	case OpTypeMatrix:
		return s.makeTypeMatrix(r)
	case OpTypeArray:
		return s.makeTypeArray(r)
	case OpTypeRuntimeArray:
		return s.makeTypeRuntimeArray(r)
	case OpTypeStruct:
		return s.makeTypeStruct(instr, r)
	case OpTypePointer:
		return s.makeTypePointer(r)
	case OpTypeFunction:
		return s.makeTypeFunction(instr, r)
	case OpTypeImage:
		return s.makeTypeImage(r)
	case OpTypeSampler:
		return defineType(s, r, func() (types.TypeID, error) { return s.Arena.SamplerType(types.NoTypeID), nil })
	case OpTypeSampledImage:
		return s.makeTypeSampledImage(r)
	case OpTypeAccelerationStructureKHR:
		return defineType(s, r, func() (types.TypeID, error) { return s.Arena.AccelStructType(), nil })
	case OpTypeRayQueryKHR:
		return defineType(s, r, func() (types.TypeID, error) { return s.Arena.RayQueryType(), nil })
	case OpTypeCooperativeMatrixKHR:
		return s.makeTypeCoopMatrix(r)
	case OpTypeOpaque:
		_, err := r.Ref()
		return err
	case OpConstantTrue:
		return s.makeConstantBool(r, true)
	case OpConstantFalse:
		return s.makeConstantBool(r, false)
	case OpConstant:
		return s.makeConstant(instr, r)
	case OpConstantComposite:
		return s.makeConstantComposite(instr, r)
	case OpConstantNull:
		return s.makeConstantNull(r)
	case OpSpecConstantTrue:
		return s.makeSpecConstantBool(r, true)
	case OpSpecConstantFalse:
		return s.makeSpecConstantBool(r, false)
	case OpSpecConstant:
		return s.makeSpecConstant(instr, r)
	case OpVariable:
		return s.makeVariable(instr, r)
	case OpLabel:
		return s.makeLabel(instr, r)
	case OpFunction:
		return s.makeFunction(instr, r)
	case OpExtInstImport:
		return s.makeExtInstImport(r)
	default:
		if IsPure(Op(instr.Opcode)) {
			return computePure(s, instr)
		}
		return ifail.New(ifail.UnsupportedOpcode, "opcode %d has no static result", instr.Opcode)
	}
}

func defineType(s *Static, r *token.Reader, build func() (types.TypeID, error)) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	id, err := build()
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfType(id))
	return nil
}

func (s *Static) resultTypeAndID(r *token.Reader) (uint32, uint32, error) {
	rt, err := r.Ref()
	if err != nil {
		return 0, 0, err
	}
	id, err := r.Ref()
	if err != nil {
		return 0, 0, err
	}
	return rt.Ref, id.Ref, nil
}

func (s *Static) lookupType(id uint32) (types.TypeID, error) {
	d, ok := s.View.At(id)
	if !ok {
		return types.NoTypeID, ifail.New(ifail.ReferenceOutOfRange, "id %%%d is undefined", id)
	}
	tid, ok := d.Type()
	if !ok {
		return types.NoTypeID, ifail.New(ifail.TypeMismatch, "id %%%d is not a type", id)
	}
	return tid, nil
}

func (s *Static) lookupValue(id uint32) (value.Value, error) {
	d, ok := s.View.At(id)
	if !ok {
		return nil, ifail.New(ifail.ReferenceOutOfRange, "id %%%d is undefined", id)
	}
	v, ok := d.Value()
	if !ok {
		return nil, ifail.New(ifail.TypeMismatch, "id %%%d is not a value", id)
	}
	return v, nil
}

func (s *Static) makeTypeInt(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	width, err := r.Uint()
	if err != nil {
		return err
	}
	signed, err := r.Uint()
	if err != nil {
		return err
	}
	base := types.Uint
	if signed.U != 0 {
		base = types.Int
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Primitive(base, width.U)))
	return nil
}

func (s *Static) makeTypeFloat(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	width, err := r.Uint()
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Primitive(types.Float, width.U)))
	return nil
}

func (s *Static) makeTypeVector(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	comp, err := r.Ref()
	if err != nil {
		return err
	}
	count, err := r.Uint()
	if err != nil {
		return err
	}
	compID, err := s.lookupType(comp.Ref)
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Array(compID, count.U)))
	return nil
}

func (s *Static) makeTypeMatrix(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	col, err := r.Ref()
	if err != nil {
		return err
	}
	count, err := r.Uint()
	if err != nil {
		return err
	}
	colID, err := s.lookupType(col.Ref)
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Array(colID, count.U)))
	return nil
}

func (s *Static) makeTypeArray(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	elem, err := r.Ref()
	if err != nil {
		return err
	}
	lengthID, err := r.Ref()
	if err != nil {
		return err
	}
	elemID, err := s.lookupType(elem.Ref)
	if err != nil {
		return err
	}
	lengthVal, err := s.lookupValue(lengthID.Ref)
	if err != nil {
		return err
	}
	prim, ok := lengthVal.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.MalformedOperands, "array length %%%d is not a scalar constant", lengthID.Ref)
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Array(elemID, uint32(prim.AsUint()))))
	return nil
}

// makeTypeCoopMatrix materialises OpTypeCooperativeMatrixKHR's Component
// Type, Scope, Rows, Columns, Use operands. Scope and Use describe how the
// matrix is shared/intended (subgroup vs workgroup, A/B/Accumulator) — spec
// §3.2 only needs the component type and shape, so those two are read and
// discarded like makeTypeImage does for its unused depth/MS/sampled bits.
func (s *Static) makeTypeCoopMatrix(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	comp, err := r.Ref()
	if err != nil {
		return err
	}
	scopeRef, err := r.Ref()
	if err != nil {
		return err
	}
	rowsRef, err := r.Ref()
	if err != nil {
		return err
	}
	colsRef, err := r.Ref()
	if err != nil {
		return err
	}
	useRef, err := r.Ref()
	if err != nil {
		return err
	}
	_ = scopeRef
	_ = useRef

	compID, err := s.lookupType(comp.Ref)
	if err != nil {
		return err
	}
	rowsVal, err := s.lookupValue(rowsRef.Ref)
	if err != nil {
		return err
	}
	colsVal, err := s.lookupValue(colsRef.Ref)
	if err != nil {
		return err
	}
	rowsPrim, ok := rowsVal.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.MalformedOperands, "cooperative matrix row count %%%d is not a scalar constant", rowsRef.Ref)
	}
	colsPrim, ok := colsVal.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.MalformedOperands, "cooperative matrix column count %%%d is not a scalar constant", colsRef.Ref)
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.CoopMatrixType(compID, uint32(rowsPrim.AsUint()), uint32(colsPrim.AsUint()))))
	return nil
}

func (s *Static) makeTypeRuntimeArray(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	elem, err := r.Ref()
	if err != nil {
		return err
	}
	elemID, err := s.lookupType(elem.Ref)
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Array(elemID, 0)))
	return nil
}

func (s *Static) makeTypeStruct(instr token.Instruction, r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	var fields []types.TypeID
	var names []string
	for !r.Done() {
		member, err := r.Ref()
		if err != nil {
			return err
		}
		memberID, err := s.lookupType(member.Ref)
		if err != nil {
			return err
		}
		fields = append(fields, memberID)
		names = append(names, "")
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Struct(fields, names)))
	return nil
}

func (s *Static) makeTypePointer(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	if _, err := r.Uint(); err != nil { // storage class, not needed for the pointer type shape
		return err
	}
	pointee, err := r.Ref()
	if err != nil {
		return err
	}
	pointeeID, err := s.lookupType(pointee.Ref)
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Pointer(pointeeID)))
	return nil
}

func (s *Static) makeTypeFunction(instr token.Instruction, r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	ret, err := r.Ref()
	if err != nil {
		return err
	}
	retID, err := s.lookupType(ret.Ref)
	if err != nil {
		return err
	}
	var params []types.TypeID
	for !r.Done() {
		p, err := r.Ref()
		if err != nil {
			return err
		}
		pid, err := s.lookupType(p.Ref)
		if err != nil {
			return err
		}
		params = append(params, pid)
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.Function(retID, params)))
	return nil
}

func (s *Static) makeTypeImage(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	if _, err := r.Ref(); err != nil { // sampled type, not modeled separately
		return err
	}
	dim, err := r.Uint()
	if err != nil {
		return err
	}
	// Skip depth/arrayed/ms/sampled (format and later operands are never
	// read) — the interpreter's Image value only needs dimensionality and a
	// default full-RGBA component order; the
	// actual component order used at runtime comes from the bound Image
	// value's own construction, not the declared type.
	for i := 0; i < 4 && !r.Done(); i++ {
		if _, err := r.Uint(); err != nil {
			return err
		}
	}
	dims := uint32(3)
	switch dim.U {
	case 0:
		dims = 1
	case 1:
		dims = 2
	case 2:
		dims = 3
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.ImageType(dims, 1234)))
	return nil
}

func (s *Static) makeTypeSampledImage(r *token.Reader) error {
	result, err := r.Ref()
	if err != nil {
		return err
	}
	img, err := r.Ref()
	if err != nil {
		return err
	}
	imgID, err := s.lookupType(img.Ref)
	if err != nil {
		return err
	}
	s.View.Define(result.Ref, data.OfType(s.Arena.SamplerType(imgID)))
	return nil
}

func (s *Static) makeConstantBool(r *token.Reader, v bool) error {
	_, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(value.NewBool(s.Arena, v)))
	return nil
}

func (s *Static) makeSpecConstantBool(r *token.Reader, v bool) error {
	_, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfVariable(data.NewSpecConst(value.NewBool(s.Arena, v))))
	return nil
}

func (s *Static) makeConstant(instr token.Instruction, r *token.Reader) error {
	rt, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	v, err := s.decodeLiteralConstant(rt, r)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(v))
	return nil
}

func (s *Static) makeSpecConstant(instr token.Instruction, r *token.Reader) error {
	rt, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	v, err := s.decodeLiteralConstant(rt, r)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfVariable(data.NewSpecConst(v)))
	return nil
}

func (s *Static) decodeLiteralConstant(resultType uint32, r *token.Reader) (value.Value, error) {
	tid, err := s.lookupType(resultType)
	if err != nil {
		return nil, err
	}
	ty, ok := s.Arena.Lookup(tid)
	if !ok {
		return nil, ifail.New(ifail.TypeMismatch, "unresolvable result type")
	}
	words := ty.SubSize / 32
	if words < 1 {
		words = 1
	}
	var lo uint32
	var hi uint32
	w, err := r.Uint()
	if err != nil {
		return nil, err
	}
	lo = w.U
	if words > 1 {
		w2, err := r.Uint()
		if err != nil {
			return nil, err
		}
		hi = w2.U
	}
	raw := uint64(lo) | uint64(hi)<<32

	switch ty.Base {
	case types.Float:
		if ty.SubSize == 64 {
			return &value.Primitive{}, ifail.New(ifail.UnsupportedOpcode, "64-bit float constants are not supported")
		}
		return value.NewFloat(s.Arena, ty.SubSize, float64(int32bitsToFloat32(lo))), nil
	case types.Uint:
		return value.NewUint(s.Arena, ty.SubSize, raw), nil
	case types.Int:
		return value.NewInt(s.Arena, ty.SubSize, int64(int32(lo))), nil
	default:
		return nil, ifail.New(ifail.TypeMismatch, "constant literal on unsupported base %s", ty.Base)
	}
}

func int32bitsToFloat32(bits uint32) float32 {
	v, _ := token.NewReader([]uint32{bits}).Float()
	return v.F
}

func (s *Static) makeConstantComposite(instr token.Instruction, r *token.Reader) error {
	rt, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	tid, err := s.lookupType(rt)
	if err != nil {
		return err
	}
	ty, _ := s.Arena.Lookup(tid)

	var elements []value.Value
	for !r.Done() {
		ref, err := r.Ref()
		if err != nil {
			return err
		}
		v, err := s.lookupValue(ref.Ref)
		if err != nil {
			return err
		}
		elements = append(elements, v)
	}

	var result value.Value
	switch ty.Base {
	case types.Struct:
		result = value.NewStruct(tid, elements)
	default:
		result = value.NewArray(tid, elements)
	}
	s.View.Define(id, data.OfValue(result))
	return nil
}

func (s *Static) makeConstantNull(r *token.Reader) error {
	rt, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	tid, err := s.lookupType(rt)
	if err != nil {
		return err
	}
	s.View.Define(id, data.OfValue(zeroValue(s.Arena, tid)))
	return nil
}

// zeroValue builds a default-constructed Value for tid, used by
// OpConstantNull and by OpVariable's uninitialized-storage default.
func zeroValue(arena *types.Arena, tid types.TypeID) value.Value {
	ty, ok := arena.Lookup(tid)
	if !ok {
		return value.Blank(tid)
	}
	switch ty.Base {
	case types.Float:
		return value.NewFloat(arena, ty.SubSize, 0)
	case types.Uint:
		return value.NewUint(arena, ty.SubSize, 0)
	case types.Int:
		return value.NewInt(arena, ty.SubSize, 0)
	case types.Bool:
		return value.NewBool(arena, false)
	case types.String:
		return value.NewString(arena, "")
	case types.Array:
		count := int(ty.SubSize)
		elems := make([]value.Value, count)
		for i := range elems {
			elems[i] = zeroValue(arena, ty.SubElement)
		}
		return value.NewArray(tid, elems)
	case types.Struct:
		elems := make([]value.Value, len(ty.Fields))
		for i, f := range ty.Fields {
			elems[i] = zeroValue(arena, f)
		}
		return value.NewStruct(tid, elems)
	case types.Pointer:
		return value.NewPointer(tid, 0, nil)
	default:
		return value.Blank(tid)
	}
}

func (s *Static) makeVariable(instr token.Instruction, r *token.Reader) error {
	rt, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	storageCode, err := r.Uint()
	if err != nil {
		return err
	}
	ptrID, err := s.lookupType(rt)
	if err != nil {
		return err
	}
	ptrTy, ok := s.Arena.Lookup(ptrID)
	if !ok || ptrTy.Base != types.Pointer {
		return ifail.New(ifail.TypeMismatch, "OpVariable result type %%%d is not a pointer", rt)
	}

	var val value.Value
	if !r.Done() {
		initRef, err := r.Ref()
		if err != nil {
			return err
		}
		init, err := s.lookupValue(initRef.Ref)
		if err != nil {
			return err
		}
		val = init.Clone()
	} else {
		val = zeroValue(s.Arena, ptrTy.SubElement)
	}

	v := data.NewVariable(val, storageClassFromSPIRV(storageCode.U))
	s.View.Define(id, data.OfVariable(v))
	return nil
}

func (s *Static) makeLabel(instr token.Instruction, r *token.Reader) error {
	id, err := r.Ref()
	if err != nil {
		return err
	}
	if s.labelType == types.NoTypeID {
		s.labelType = s.Arena.Primitive(types.Uint, 32)
	}
	s.View.Define(id.Ref, data.OfValue(value.NewUint(s.Arena, 32, uint64(instr.Index))))
	return nil
}

func (s *Static) makeFunction(instr token.Instruction, r *token.Reader) error {
	_, id, err := s.resultTypeAndID(r)
	if err != nil {
		return err
	}
	if _, err := r.Uint(); err != nil { // function control mask
		return err
	}
	fnTypeRef, err := r.Ref()
	if err != nil {
		return err
	}
	fnTypeID, err := s.lookupType(fnTypeRef.Ref)
	if err != nil {
		return err
	}
	fn := &data.Function{TypeID: fnTypeID, Location: uint32(instr.Index)}
	s.View.Define(id, data.OfFunction(fn))
	return nil
}

func storageClassFromSPIRV(code uint32) data.StorageClass {
	switch code {
	case 0:
		return data.StorageUniformConstant
	case 1:
		return data.StorageInput
	case 2:
		return data.StorageUniform
	case 3:
		return data.StorageOutput
	case 4:
		return data.StorageWorkgroup
	case 5:
		return data.StorageCrossWorkgroup
	case 6:
		return data.StoragePrivate
	case 7:
		return data.StorageFunction
	case 8:
		return data.StorageGeneric
	case 9:
		return data.StoragePushConstant
	case 10:
		return data.StorageAtomicCounter
	case 11:
		return data.StorageImage
	case 12:
		return data.StorageStorageBuffer
	case 5328:
		return data.StorageCallableDataKHR
	case 5329:
		return data.StorageIncomingCallableDataKHR
	case 5338:
		return data.StorageRayPayloadKHR
	case 5339:
		return data.StorageHitAttributeKHR
	case 5342:
		return data.StorageIncomingRayPayloadKHR
	case 5343:
		return data.StorageShaderRecordBufferKHR
	case 5349:
		return data.StoragePhysicalStorageBuffer
	default:
		return data.StorageUnknown
	}
}
