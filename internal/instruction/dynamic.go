package instruction

import (
	"io"

	"spirvm/internal/accel"
	"spirvm/internal/config"
	"spirvm/internal/data"
	"spirvm/internal/frame"
	"spirvm/internal/ifail"
	"spirvm/internal/token"
	"spirvm/internal/types"
	"spirvm/internal/value"
)

// Dynamic carries the state shared across every runtime instruction
// execution: the type arena (shared with the static pass) and the data
// manager, which owns fresh per-call views (spec §3.3, §4.4).
//
// The remaining fields exist only for the instructions that need more than
// "the current frame and its view" to make sense: GLSL.std.450's feature
// gating, NonSemantic.DebugPrintf's sink, cooperative-matrix's need to see
// a peer invocation's slice of the same logical matrix, and ray tracing's
// acceleration structures and shader binding table. internal/program's
// driver keeps one Dynamic per invocation for the whole run, refreshes
// Peers before every dispatched instruction, and leaves DebugOut and SBT
// nil.
type Dynamic struct {
	Arena   *types.Arena
	Manager *data.Manager
	Config  config.Config

	// Instructions is the flat, pc-indexed instruction stream internal/program
	// (the program orchestrator) decoded. Execute itself is handed one
	// instruction at a time by its caller, but a ray-tracing substage has to
	// run an entire shader to completion as part of a single outer
	// instruction (spec §4.6's substage protocol), so its own nested driver
	// loop (runSubstage) needs the whole stream to walk.
	Instructions []token.Instruction

	// DebugOut receives NonSemantic.DebugPrintf output. Nil silences it.
	DebugOut io.Writer

	// Invocation/NumInvocations/Peers support cooperative-matrix ops, whose
	// operands are logically sliced across every invocation in the current
	// subgroup (spec §4.4's CoopMatrix component). Peers holds the current
	// top-frame view of every invocation in the group, indexed by
	// invocation number; Peers[Invocation] is this invocation's own view.
	Invocation     int
	NumInvocations int
	Peers          []*data.View

	// SBT optionally supplies shader binding table groups for OpTraceRayKHR
	// and OpExecuteCallableKHR; when nil, traces resolve to the no-SBT
	// default payload behavior described in spec §4.6's "without SBT" note.
	// An AccelerationStructureKHR operand always resolves directly to an
	// *accel.StructValue through the current view, so no separate registry
	// is needed here.
	SBT *ShaderBindingTable

	// rayQueryRays/rayQueryCurrent are side tables keyed by the RayQuery
	// value itself, since accel.State carries no ray origin/direction and no
	// "candidate the shader is currently inspecting" index of its own (spec
	// §5's ray-query ops are driven explicitly, one call at a time, so that
	// index has to persist across calls somewhere).
	rayQueryRays    map[*accel.RayQueryValue]accel.Ray
	rayQueryCurrent map[*accel.RayQueryValue]int

	// rayQueryResolved marks, per ray query, which of its Trace.Candidates
	// indices are already-settled leaf outcomes rather than not-yet-tested
	// box/instance reference placeholders (see runTraceNoSBT's doc comment);
	// OpRayQueryProceedKHR is called repeatedly across the shader's own
	// loop, so this has to persist across calls exactly like rayQueryRays.
	rayQueryResolved map[*accel.RayQueryValue]map[int]bool
}

// SignalKind tells the invocation driver (internal/program)
// what Execute just did to the frame stack, so it knows whether to advance
// the current frame's PC itself or leave that to the instruction already
// having done it.
type SignalKind int

const (
	// SigNext: ordinary instruction, caller should IncPC.
	SigNext SignalKind = iota
	// SigJump: a branch already set the frame's PC; don't IncPC.
	SigJump
	// SigCall: a new frame was pushed; begin executing it, don't IncPC the
	// caller until the call returns.
	SigCall
	// SigReturn: the top frame was popped; resume the new top (if any).
	SigReturn
	// SigKill: every frame for this invocation was popped (OpKill /
	// OpTerminateInvocation).
	SigKill
	// SigBlocked: a control barrier; the invocation must wait for its
	// workgroup peers before continuing (spec §5).
	SigBlocked
)

type Signal struct {
	Kind SignalKind
}

// Execute performs the runtime effect of one instruction against the
// current top frame of stack (spec §4.4). Pure, side-effect-free opcodes
// (arithmetic, conversions, composite shape ops) are delegated to the same
// computePure the static pass uses, matching "behaves same at build-time and
// run-time... share one definition".
func Execute(d *Dynamic, stack *frame.Stack, instr token.Instruction) (Signal, error) {
	f, ok := stack.Top()
	if !ok {
		return Signal{}, ifail.New(ifail.SubstageContract, "execute called with no active frame")
	}
	view := f.View
	op := Op(instr.Opcode)

	switch op {
	case OpLabel:
		r := token.NewReader(instr.Operands)
		id, err := r.Ref()
		if err != nil {
			return Signal{}, err
		}
		f.SetLabel(id.Ref)
		return Signal{Kind: SigNext}, nil

	case OpFunctionParameter:
		if err := d.execFunctionParameter(f, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpVariable:
		if err := d.execVariable(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpLoad:
		if err := d.execLoad(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpStore:
		if err := d.execStore(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpAccessChain:
		if err := d.execAccessChain(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpPhi:
		if err := d.execPhi(f, view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpBranch:
		r := token.NewReader(instr.Operands)
		target, err := r.Ref()
		if err != nil {
			return Signal{}, err
		}
		if err := jumpToLabel(f, view, target.Ref); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigJump}, nil

	case OpBranchConditional:
		if err := d.execBranchConditional(f, view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigJump}, nil

	case OpSwitch:
		if err := d.execSwitch(f, view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigJump}, nil

	case OpFunctionCall:
		if err := d.execFunctionCall(stack, view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigCall}, nil

	case OpReturn:
		if err := d.execReturn(stack); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigReturn}, nil

	case OpReturnValue:
		if err := d.execReturnValue(stack, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigReturn}, nil

	case OpKill, OpTerminateInvocation:
		for !stack.Empty() {
			_, _ = stack.Pop()
		}
		return Signal{Kind: SigKill}, nil

	case OpUnreachable:
		return Signal{}, ifail.New(ifail.InvalidBinary, "OpUnreachable executed")

	case OpControlBarrier, OpMemoryBarrier:
		return Signal{Kind: SigBlocked}, nil

	case OpLoopMerge, OpSelectionMerge, OpLine, OpNop:
		return Signal{Kind: SigNext}, nil

	case OpExtInst:
		if err := d.execExtInst(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpTraceRayKHR:
		return d.execTraceRay(stack, f, view, instr)

	case OpExecuteCallableKHR:
		return d.execExecuteCallable(stack, f, view, instr)

	case OpReportIntersectionKHR:
		if err := d.execReportIntersection(f, view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpIgnoreIntersectionKHR:
		return d.execIgnoreOrTerminate(stack, f, substageIgnore)

	case OpTerminateRayKHR:
		return d.execIgnoreOrTerminate(stack, f, substageTerminate)

	case OpRayQueryInitializeKHR:
		if err := d.execRayQueryInitialize(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpRayQueryProceedKHR:
		if err := d.execRayQueryProceed(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpRayQueryConfirmIntersectionKHR:
		if err := d.execRayQueryConfirmIntersection(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpRayQueryGenerateIntersectionKHR:
		if err := d.execRayQueryGenerateIntersection(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpRayQueryTerminateKHR:
		if err := d.execRayQueryTerminate(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpRayQueryGetIntersectionTKHR:
		if err := d.execRayQueryGetIntersectionT(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpCooperativeMatrixLoadKHR:
		if err := d.execCoopMatrixLoad(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpCooperativeMatrixStoreKHR:
		if err := d.execCoopMatrixStore(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpCooperativeMatrixMulAddKHR:
		if err := d.execCoopMatrixMulAdd(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	case OpCooperativeMatrixLengthKHR:
		if err := d.execCoopMatrixLength(view, instr); err != nil {
			return Signal{}, err
		}
		return Signal{Kind: SigNext}, nil

	default:
		if IsPure(op) {
			tmp := &Static{Arena: d.Arena, View: view}
			if err := computePure(tmp, instr); err != nil {
				return Signal{}, err
			}
			return Signal{Kind: SigNext}, nil
		}
		return Signal{}, ifail.New(ifail.UnsupportedOpcode, "opcode %d has no dynamic execution", instr.Opcode)
	}
}

// jumpToLabel sets pc to the instruction index stored in target's label
// Primitive (materialised by the static pass's makeLabel). Updating
// curLabel/lastLabel is OpLabel's job, once execution actually lands there —
// doing it here too would shift lastLabel twice for the same transition.
func jumpToLabel(f *frame.Frame, view *data.View, target uint32) error {
	dd, ok := view.At(target)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "branch target %%%d is undefined", target)
	}
	v, ok := dd.Value()
	if !ok {
		return ifail.New(ifail.TypeMismatch, "branch target %%%d is not a label", target)
	}
	prim, ok := v.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "branch target %%%d is not a label", target)
	}
	return f.SetPC(int(prim.AsUint()))
}

func (d *Dynamic) execBranchConditional(f *frame.Frame, view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	condRef, err := r.Ref()
	if err != nil {
		return err
	}
	trueLabel, err := r.Ref()
	if err != nil {
		return err
	}
	falseLabel, err := r.Ref()
	if err != nil {
		return err
	}
	dd, ok := view.At(condRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "branch condition %%%d is undefined", condRef.Ref)
	}
	v, ok := dd.Value()
	prim, ok2 := v.(*value.Primitive)
	if !ok || !ok2 {
		return ifail.New(ifail.TypeMismatch, "branch condition %%%d is not a bool", condRef.Ref)
	}
	if prim.AsBool() {
		return jumpToLabel(f, view, trueLabel.Ref)
	}
	return jumpToLabel(f, view, falseLabel.Ref)
}

func (d *Dynamic) execSwitch(f *frame.Frame, view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	selRef, err := r.Ref()
	if err != nil {
		return err
	}
	defaultLabel, err := r.Ref()
	if err != nil {
		return err
	}
	dd, ok := view.At(selRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "switch selector %%%d is undefined", selRef.Ref)
	}
	v, ok := dd.Value()
	prim, ok2 := v.(*value.Primitive)
	if !ok || !ok2 {
		return ifail.New(ifail.TypeMismatch, "switch selector %%%d is not a scalar", selRef.Ref)
	}
	selector := prim.AsUint()

	for !r.Done() {
		literal, err := r.Uint()
		if err != nil {
			return err
		}
		label, err := r.Ref()
		if err != nil {
			return err
		}
		if uint64(literal.U) == selector {
			return jumpToLabel(f, view, label.Ref)
		}
	}
	return jumpToLabel(f, view, defaultLabel.Ref)
}

func (d *Dynamic) execPhi(f *frame.Frame, view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	_, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	last := f.LastLabel()
	var chosen value.Value
	for !r.Done() {
		valRef, err := r.Ref()
		if err != nil {
			return err
		}
		labelRef, err := r.Ref()
		if err != nil {
			return err
		}
		if labelRef.Ref != last {
			continue
		}
		dd, ok := view.At(valRef.Ref)
		if !ok {
			return ifail.New(ifail.ReferenceOutOfRange, "OpPhi operand %%%d is undefined", valRef.Ref)
		}
		v, ok := dd.Value()
		if !ok {
			return ifail.New(ifail.TypeMismatch, "OpPhi operand %%%d is not a value", valRef.Ref)
		}
		chosen = v
	}
	if chosen == nil {
		return ifail.New(ifail.SubstageContract, "OpPhi has no operand for predecessor label %%%d", last)
	}
	view.Define(id, data.OfValue(chosen.Clone()))
	return nil
}

func (d *Dynamic) execFunctionParameter(f *frame.Frame, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	if _, err := r.Ref(); err != nil { // result type, already known from the callee's function type
		return err
	}
	id, err := r.Ref()
	if err != nil {
		return err
	}
	arg, err := f.NextArg()
	if err != nil {
		return err
	}
	f.View.Define(id.Ref, arg)
	return nil
}

// execVariable handles an OpVariable instruction reached during execution
// (as opposed to the module-level OpVariable instances the static pass
// already materialised). Private/Function storage gets a fresh thread-local
// slot in the current view per invocation; every other storage class keeps
// sharing the pre-materialised global slot (spec §4.4).
func (d *Dynamic) execVariable(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rt, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	storageCode, err := r.Uint()
	if err != nil {
		return err
	}
	storage := storageClassFromSPIRV(storageCode.U)
	if probe := data.NewVariable(nil, storage); !probe.IsThreaded() {
		return nil
	}
	ptrID, err := tmp.lookupType(rt)
	if err != nil {
		return err
	}
	ptrTy, ok := d.Arena.Lookup(ptrID)
	if !ok || ptrTy.Base != types.Pointer {
		return ifail.New(ifail.TypeMismatch, "OpVariable result type %%%d is not a pointer", rt)
	}

	var val value.Value
	if !r.Done() {
		initRef, err := r.Ref()
		if err != nil {
			return err
		}
		init, err := tmp.lookupValue(initRef.Ref)
		if err != nil {
			return err
		}
		val = init.Clone()
	} else {
		val = zeroValue(d.Arena, ptrTy.SubElement)
	}
	view.Define(id, data.OfVariable(data.NewVariable(val, storage)))
	return nil
}

func (d *Dynamic) execLoad(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	_, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	ptrRef, err := r.Ref()
	if err != nil {
		return err
	}
	src, err := resolveLoadSource(view, ptrRef.Ref)
	if err != nil {
		return err
	}
	view.Define(id, data.OfValue(src.Clone()))
	return nil
}

func (d *Dynamic) execStore(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	ptrRef, err := r.Ref()
	if err != nil {
		return err
	}
	objRef, err := r.Ref()
	if err != nil {
		return err
	}
	dd, ok := view.At(ptrRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "store target %%%d is undefined", ptrRef.Ref)
	}
	var dst value.Value
	if v, ok := dd.Variable(); ok {
		if v.NonWritable {
			return ifail.New(ifail.TypeMismatch, "store target %%%d is declared non-writable", ptrRef.Ref)
		}
		dst = v.Val
	} else if val, ok := dd.Value(); ok {
		ptr, ok := val.(*value.Pointer)
		if !ok {
			return ifail.New(ifail.TypeMismatch, "store target %%%d is not a pointer", ptrRef.Ref)
		}
		dst, err = dereferencePointer(view, ptr)
		if err != nil {
			return err
		}
	} else {
		return ifail.New(ifail.TypeMismatch, "store target %%%d is not storable", ptrRef.Ref)
	}

	objD, ok := view.At(objRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "store source %%%d is undefined", objRef.Ref)
	}
	obj, ok := objD.Value()
	if !ok {
		return ifail.New(ifail.TypeMismatch, "store source %%%d is not a value", objRef.Ref)
	}
	return dst.CopyFrom(d.Arena, obj)
}

func resolveLoadSource(view *data.View, ptrID uint32) (value.Value, error) {
	dd, ok := view.At(ptrID)
	if !ok {
		return nil, ifail.New(ifail.ReferenceOutOfRange, "load source %%%d is undefined", ptrID)
	}
	if v, ok := dd.Variable(); ok {
		return v.Val, nil
	}
	if val, ok := dd.Value(); ok {
		if ptr, ok := val.(*value.Pointer); ok {
			return dereferencePointer(view, ptr)
		}
		return nil, ifail.New(ifail.TypeMismatch, "load source %%%d is not a pointer", ptrID)
	}
	return nil, ifail.New(ifail.TypeMismatch, "load source %%%d is not storable", ptrID)
}

// dereferencePointer walks a value.Pointer's index path from its root
// variable to the Value it ultimately names, reusing indexInto's
// array/struct descent (internal/instruction/pure.go's OpCompositeExtract
// helper — the same descent both operations need).
func dereferencePointer(view *data.View, ptr *value.Pointer) (value.Value, error) {
	dd, ok := view.At(ptr.Head)
	if !ok {
		return nil, ifail.New(ifail.ReferenceOutOfRange, "pointer head %%%d is undefined", ptr.Head)
	}
	v, ok := dd.Variable()
	if !ok {
		return nil, ifail.New(ifail.TypeMismatch, "pointer head %%%d is not a variable", ptr.Head)
	}
	cur := v.Val
	for _, idx := range ptr.Indices {
		next, err := indexInto(cur, idx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (d *Dynamic) execAccessChain(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rt, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	tid, err := tmp.lookupType(rt)
	if err != nil {
		return err
	}
	baseRef, err := r.Ref()
	if err != nil {
		return err
	}
	dd, ok := view.At(baseRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "access chain base %%%d is undefined", baseRef.Ref)
	}
	var head uint32
	var indices []uint32
	if _, ok := dd.Variable(); ok {
		head = baseRef.Ref
	} else if val, ok := dd.Value(); ok {
		base, ok := val.(*value.Pointer)
		if !ok {
			return ifail.New(ifail.TypeMismatch, "access chain base %%%d is not a pointer", baseRef.Ref)
		}
		head = base.Head
		indices = append(indices, base.Indices...)
	} else {
		return ifail.New(ifail.TypeMismatch, "access chain base %%%d is not a variable or pointer", baseRef.Ref)
	}

	for !r.Done() {
		idxRef, err := r.Ref()
		if err != nil {
			return err
		}
		idxD, ok := view.At(idxRef.Ref)
		if !ok {
			return ifail.New(ifail.ReferenceOutOfRange, "access chain index %%%d is undefined", idxRef.Ref)
		}
		idxVal, ok := idxD.Value()
		prim, ok2 := idxVal.(*value.Primitive)
		if !ok || !ok2 {
			return ifail.New(ifail.TypeMismatch, "access chain index %%%d is not a scalar constant", idxRef.Ref)
		}
		indices = append(indices, uint32(prim.AsUint()))
	}

	view.Define(id, data.OfValue(value.NewPointer(tid, head, indices)))
	return nil
}

func (d *Dynamic) execFunctionCall(stack *frame.Stack, callerView *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: callerView}
	_, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	fnRef, err := r.Ref()
	if err != nil {
		return err
	}
	dd, ok := callerView.At(fnRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "call target %%%d is undefined", fnRef.Ref)
	}
	fn, ok := dd.Function()
	if !ok {
		return ifail.New(ifail.TypeMismatch, "call target %%%d is not a function", fnRef.Ref)
	}

	var args []data.Data
	for !r.Done() {
		argRef, err := r.Ref()
		if err != nil {
			return err
		}
		argD, ok := callerView.At(argRef.Ref)
		if !ok {
			return ifail.New(ifail.ReferenceOutOfRange, "call argument %%%d is undefined", argRef.Ref)
		}
		v, ok := argD.Value()
		if !ok {
			return ifail.New(ifail.TypeMismatch, "call argument %%%d is not a value", argRef.Ref)
		}
		args = append(args, data.OfValue(v.Clone()))
	}

	retAt := uint32(0)
	fnTy, ok := d.Arena.Lookup(fn.TypeID)
	if ok {
		if retTy, ok := d.Arena.Lookup(fnTy.SubElement); ok && retTy.Base != types.Void {
			retAt = id
		}
	}

	newView := d.Manager.MakeView(callerView)
	stack.Push(frame.New(int(fn.Location)+1, args, retAt, newView))
	return nil
}

func (d *Dynamic) execReturn(stack *frame.Stack) error {
	_, err := stack.Pop()
	return err
}

func (d *Dynamic) execReturnValue(stack *frame.Stack, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	valRef, err := r.Ref()
	if err != nil {
		return err
	}
	f, ok := stack.Top()
	if !ok {
		return ifail.New(ifail.SubstageContract, "OpReturnValue with no active frame")
	}
	dd, ok := f.View.At(valRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "return value %%%d is undefined", valRef.Ref)
	}
	v, ok := dd.Value()
	if !ok {
		return ifail.New(ifail.TypeMismatch, "return value %%%d is not a value", valRef.Ref)
	}
	cloned := v.Clone()

	retAt, hasSlot := f.ReturnSlot()
	if _, err := stack.Pop(); err != nil {
		return err
	}
	if hasSlot {
		if caller, ok := stack.Top(); ok {
			caller.View.Define(retAt, data.OfValue(cloned))
		}
	}
	return nil
}
