package instruction

// Ray-tracing and cooperative-matrix dynamic execution (spec §4.6, §5's
// substage protocol and distributed-matrix model). Grounded in
// internal/accel's BVH/State traversal primitives and in the same
// resolveLoadSource/dereferencePointer idiom the rest of dynamic.go uses for
// every other operand.
//
// Substage shaders (any-hit, intersection, closest-hit, miss, callable) are
// run synchronously to completion as part of the triggering instruction,
// using runSubstage's small nested driver loop, rather than by re-entering
// OpTraceRayKHR itself on every substage return. Net shader-visible behavior
// (payload contents, frame.RTStage tagging, hit-attribute propagation) is
// the same either way; see DESIGN.md for the tradeoff.

import (
	"spirvm/internal/accel"
	"spirvm/internal/data"
	"spirvm/internal/frame"
	"spirvm/internal/ifail"
	"spirvm/internal/token"
	"spirvm/internal/types"
	"spirvm/internal/value"
)

// HitGroup names the substage entry points bound to one shader-binding-table
// record (spec §4.6, glossary's SBT entry). A zero Location means "no
// shader of that kind is bound".
type HitGroup struct {
	ClosestHit   uint32
	AnyHit       uint32
	Intersection uint32
}

// ShaderBindingTable is the program orchestrator's resolved mapping from SBT
// indices to entry-point instruction locations (spec §4.6's "SBT ... maps to
// hit-group shaders, and by miss_index to miss shaders"). A nil
// *ShaderBindingTable on Dynamic means every trace runs the no-SBT
// convenience path (spec §4.6 "without a shader binding table").
type ShaderBindingTable struct {
	HitGroups []HitGroup
	Miss      []uint32
	Callable  []uint32
}

func (sbt *ShaderBindingTable) hitGroup(i int) (HitGroup, bool) {
	if sbt == nil || i < 0 || i >= len(sbt.HitGroups) {
		return HitGroup{}, false
	}
	return sbt.HitGroups[i], true
}

func (sbt *ShaderBindingTable) miss(i uint32) (uint32, bool) {
	if sbt == nil || int(i) >= len(sbt.Miss) {
		return 0, false
	}
	loc := sbt.Miss[i]
	return loc, loc != 0
}

func (sbt *ShaderBindingTable) callable(i uint32) (uint32, bool) {
	if sbt == nil || int(i) >= len(sbt.Callable) {
		return 0, false
	}
	loc := sbt.Callable[i]
	return loc, loc != 0
}

// Ray flag bits, per the SPV_KHR_ray_tracing RayFlags enum. Only the subset
// that changes traversal behavior in this interpreter is decoded; face
// culling and the skip-triangle/skip-AABB flags are Non-goals here.
const (
	rayFlagOpaque              = 1 << 0
	rayFlagNoOpaque            = 1 << 1
	rayFlagTerminateOnFirstHit = 1 << 2
	rayFlagSkipClosestHit      = 1 << 3
	rayFlagCullOpaque          = 1 << 6
	rayFlagCullNoOpaque        = 1 << 7
)

func decodeRayFlags(s *accel.State, flags uint32) {
	s.TerminateOnFirstHit = flags&rayFlagTerminateOnFirstHit != 0
	s.SkipClosestHit = flags&rayFlagSkipClosestHit != 0
	s.CullOpaque = flags&rayFlagCullOpaque != 0 || flags&rayFlagNoOpaque != 0
	s.CullNonOpaque = flags&rayFlagCullNoOpaque != 0
	_ = flags & rayFlagOpaque // opaque-override is a per-geometry concern, not modeled
}

func vec3FromValue(arena *types.Arena, v value.Value) ([3]float32, error) {
	arr, ok := v.(*value.Array)
	if !ok || len(arr.Elements) != 3 {
		return [3]float32{}, ifail.New(ifail.InputShapeMismatch, "expected a 3-component vector")
	}
	var out [3]float32
	for i, e := range arr.Elements {
		prim, ok := e.(*value.Primitive)
		if !ok {
			return [3]float32{}, ifail.New(ifail.TypeMismatch, "vector component is not a scalar")
		}
		out[i] = float32(prim.AsFloat(arena))
	}
	return out, nil
}

func (d *Dynamic) execTraceRay(stack *frame.Stack, f *frame.Frame, view *data.View, instr token.Instruction) (Signal, error) {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}

	refs := make([]token.Value, 0, 11)
	for i := 0; i < 11; i++ {
		ref, err := r.Ref()
		if err != nil {
			return Signal{}, err
		}
		refs = append(refs, ref)
	}
	asRef, rayFlagsRef, cullMaskRef, sbtOffsetRef, sbtStrideRef, missIdxRef, originRef, tMinRef, dirRef, tMaxRef, payloadRef :=
		refs[0], refs[1], refs[2], refs[3], refs[4], refs[5], refs[6], refs[7], refs[8], refs[9], refs[10]

	asVal, err := tmp.lookupValue(asRef.Ref)
	if err != nil {
		return Signal{}, err
	}
	as, ok := asVal.(*accel.StructValue)
	if !ok || as.BVH == nil {
		return Signal{}, ifail.New(ifail.TypeMismatch, "OpTraceRayKHR acceleration structure %%%d is not a loaded AccelStruct", asRef.Ref)
	}

	u := func(ref token.Value) (uint32, error) {
		v, err := tmp.lookupValue(ref.Ref)
		if err != nil {
			return 0, err
		}
		prim, ok := v.(*value.Primitive)
		if !ok {
			return 0, ifail.New(ifail.TypeMismatch, "%%%d is not a scalar", ref.Ref)
		}
		return uint32(prim.AsUint()), nil
	}
	flt := func(ref token.Value) (float32, error) {
		v, err := tmp.lookupValue(ref.Ref)
		if err != nil {
			return 0, err
		}
		prim, ok := v.(*value.Primitive)
		if !ok {
			return 0, ifail.New(ifail.TypeMismatch, "%%%d is not a scalar", ref.Ref)
		}
		return float32(prim.AsFloat(d.Arena)), nil
	}

	rayFlags, err := u(rayFlagsRef)
	if err != nil {
		return Signal{}, err
	}
	cullMask, err := u(cullMaskRef)
	if err != nil {
		return Signal{}, err
	}
	sbtOffset, err := u(sbtOffsetRef)
	if err != nil {
		return Signal{}, err
	}
	sbtStride, err := u(sbtStrideRef)
	if err != nil {
		return Signal{}, err
	}
	missIndex, err := u(missIdxRef)
	if err != nil {
		return Signal{}, err
	}
	tMin, err := flt(tMinRef)
	if err != nil {
		return Signal{}, err
	}
	tMax, err := flt(tMaxRef)
	if err != nil {
		return Signal{}, err
	}
	originVal, err := tmp.lookupValue(originRef.Ref)
	if err != nil {
		return Signal{}, err
	}
	dirVal, err := tmp.lookupValue(dirRef.Ref)
	if err != nil {
		return Signal{}, err
	}
	origin, err := vec3FromValue(d.Arena, originVal)
	if err != nil {
		return Signal{}, err
	}
	dir, err := vec3FromValue(d.Arena, dirVal)
	if err != nil {
		return Signal{}, err
	}

	ray := accel.Ray{Origin: origin, Direction: dir}
	state := accel.NewState(as.BVH.Root(), tMin, tMax)
	state.CullMask = cullMask
	decodeRayFlags(state, rayFlags)
	state.UseSBT = d.SBT != nil
	state.OffsetSBT = sbtOffset
	state.StrideSBT = sbtStride
	state.MissIndex = missIndex
	as.Trace = state

	if state.UseSBT {
		if err := d.runTraceWithSubstages(stack, view, as, ray, state, payloadRef.Ref); err != nil {
			return Signal{}, err
		}
	} else {
		runTraceNoSBT(as.BVH, ray, state)
		if err := fillDefaultPayload(d.Arena, view, payloadRef.Ref, state); err != nil {
			return Signal{}, err
		}
	}
	return Signal{Kind: SigNext}, nil
}

// runTraceNoSBT is the "traceRay(skip_first)" convenience (spec §4.6):
// repeatedly steps and auto-commits every non-culled geometry hit, honoring
// terminate-on-first-hit, with no substage shaders invoked.
//
// BVH.Step tests whatever node a candidate's Instance names every time it is
// given that candidate, with no memory of having resolved it before — a
// leaf's own hit/pass result shares the same Instance as the reference that
// produced it, so stepping the result right back through Step would retest
// the same geometry forever. resolved tracks exactly the candidate indices
// that are themselves already-settled leaf outcomes (not further
// descendable reference placeholders), so the loop commits them once and
// advances past rather than reinvoking Step on them.
func runTraceNoSBT(bvh *accel.BVH, ray accel.Ray, state *accel.State) {
	resolved := make(map[int]bool)
	for !state.Done() {
		idx := state.Candidate
		cand, ok := state.CurrentCandidate()
		if !ok {
			return
		}
		if resolved[idx] {
			if !(state.CullOpaque && cand.IsOpaque) && !(state.CullNonOpaque && !cand.IsOpaque) {
				state.Commit(idx)
				if state.TerminateOnFirstHit {
					state.Candidate = len(state.Candidates)
					continue
				}
			}
			state.Advance()
			continue
		}

		node, _ := bvh.At(cand.Instance)
		isLeaf := node != nil && (node.Kind == accel.KindTriangle || node.Kind == accel.KindProcedural)
		before := len(state.Candidates)
		if err := bvh.Step(ray, state); err != nil {
			return
		}
		if isLeaf {
			for i := before; i < len(state.Candidates); i++ {
				resolved[i] = true
			}
		}
	}
}

// fillDefaultPayload writes the no-SBT default payload layout {hitT,
// geometryIndex, primitiveIndex, hitKind} (spec §4.6) into the variable
// payloadID names, converting each field to the destination struct's
// declared field types.
func fillDefaultPayload(arena *types.Arena, view *data.View, payloadID uint32, state *accel.State) error {
	dd, ok := view.At(payloadID)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "ray payload %%%d is undefined", payloadID)
	}
	variable, ok := dd.Variable()
	if !ok {
		return ifail.New(ifail.TypeMismatch, "ray payload %%%d is not a variable", payloadID)
	}
	agg, ok := variable.Val.(*value.Struct)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "ray payload %%%d is not a struct", payloadID)
	}

	var hitT float64 = float64(state.RayTMax)
	var geom, prim, kind uint64
	if it, ok := state.CommittedIntersection(); ok {
		hitT = float64(it.HitT)
		geom = uint64(it.GeometryIndex)
		prim = uint64(it.PrimitiveIndex)
		kind = uint64(it.HitKind)
	}
	fields := []float64{hitT, float64(geom), float64(prim), float64(kind)}
	for i := 0; i < len(agg.Fields) && i < len(fields); i++ {
		f, ok := agg.Fields[i].(*value.Primitive)
		if !ok {
			continue
		}
		if err := f.CopyFrom(arena, value.NewFloat(arena, 64, fields[i])); err != nil {
			return err
		}
	}
	return nil
}

// runTraceWithSubstages drives the trigger state machine described in spec
// §4.6: it steps the BVH, invoking any-hit/intersection substages as
// candidate geometry is discovered, then a closest-hit or miss substage once
// traversal settles. Each substage writes the payload itself, because its
// frame's view is chained off the caller's (so it resolves the same
// payload/hit-attribute variable), mirroring the existing function-call
// view-sharing in execFunctionCall.
func (d *Dynamic) runTraceWithSubstages(stack *frame.Stack, callerView *data.View, as *accel.StructValue, ray accel.Ray, state *accel.State, payloadID uint32) error {
	bvh := as.BVH
	resolved := make(map[int]bool)
	for !state.Done() {
		idx := state.Candidate
		cand, ok := state.CurrentCandidate()
		if !ok {
			break
		}

		if !resolved[idx] {
			node, _ := bvh.At(cand.Instance)
			isLeaf := node != nil && (node.Kind == accel.KindTriangle || node.Kind == accel.KindProcedural)
			before := len(state.Candidates)
			if err := bvh.Step(ray, state); err != nil {
				return err
			}
			if isLeaf {
				for i := before; i < len(state.Candidates); i++ {
					resolved[i] = true
				}
			}
			continue
		}

		node, _ := bvh.At(cand.Instance)
		switch {
		case node != nil && node.Kind == accel.KindTriangle:
			if state.CullOpaque && cand.IsOpaque || state.CullNonOpaque && !cand.IsOpaque {
				state.Advance()
				continue
			}
			group, _ := d.SBT.hitGroup(hitGroupIndex(node, state))
			accept := true
			if !cand.IsOpaque && group.AnyHit != 0 {
				verdict, err := d.runSubstage(stack, callerView, frame.RTAnyHit, group.AnyHit, uint32(idx), nil, state)
				if err != nil {
					return err
				}
				accept = verdict != substageIgnore
				if verdict == substageTerminate {
					state.Candidate = len(state.Candidates)
					continue
				}
			}
			if accept {
				state.Commit(idx)
				if state.TerminateOnFirstHit {
					state.Candidate = len(state.Candidates)
					continue
				}
			}
			state.Advance()
		case node != nil && node.Kind == accel.KindProcedural:
			group, _ := d.SBT.hitGroup(hitGroupIndex(node, state))
			if group.Intersection != 0 {
				if _, err := d.runSubstage(stack, callerView, frame.RTIntersection, group.Intersection, uint32(idx), nil, state); err != nil {
					return err
				}
			}
			state.Advance()
		default:
			state.Advance()
		}
	}

	if it, ok := state.CommittedIntersection(); ok {
		node, _ := bvh.At(it.Instance)
		group, _ := d.SBT.hitGroup(hitGroupIndex(node, state))
		if !state.SkipClosestHit && group.ClosestHit != 0 {
			_, err := d.runSubstage(stack, callerView, frame.RTClosestHit, group.ClosestHit, uint32(state.Committed), nil, state)
			if err != nil {
				return err
			}
			return nil
		}
		return fillDefaultPayload(d.Arena, callerView, payloadID, state)
	}

	if !state.SkipMiss {
		if loc, ok := d.SBT.miss(state.MissIndex); ok {
			_, err := d.runSubstage(stack, callerView, frame.RTMiss, loc, state.MissIndex, nil, state)
			return err
		}
	}
	return fillDefaultPayload(d.Arena, callerView, payloadID, state)
}

// hitGroupIndex computes the shader-binding-table hit-group index for a
// candidate's geometry, per the glossary's "instance_sbt_offset +
// geometry_index*stride + ray_offset" formula. Instance-level SBT record
// offsets are carried on the node itself (spec §3.4's flat node array);
// multi-level instancing beyond that is out of scope here.
func hitGroupIndex(node *accel.Node, state *accel.State) int {
	if node == nil {
		return 0
	}
	return int(node.SBTRecordOffset) + int(state.StrideSBT)*int(node.GeomIndex) + int(state.OffsetSBT)
}

// substageIgnore/substageTerminate/substageAccept record how an any-hit
// substage finished, read back from the popped frame's RT.Result.
type substageVerdict int

const (
	substageAccept substageVerdict = iota
	substageIgnore
	substageTerminate
)

// runSubstage pushes a fresh frame at entry (a function location, spec §4.6)
// tagged with the given RTStage trigger, and drives it to completion with a
// small nested loop — the same Execute/signal contract the top-level
// driver (internal/program) uses, scoped here to exactly one
// frame's lifetime. state, when non-nil, is stashed on the new frame's
// RT.Result so OpReportIntersectionKHR (run from inside an intersection
// substage) can reach the trace it belongs to.
func (d *Dynamic) runSubstage(stack *frame.Stack, callerView *data.View, stage frame.RTStage, entry uint32, index uint32, payload any, state *accel.State) (substageVerdict, error) {
	if entry == 0 {
		return substageAccept, nil
	}
	view := d.Manager.MakeView(callerView)
	sf := frame.New(int(entry), nil, 0, view)
	sf.TriggerRaytrace(stage, index, payload, nil, view)
	if state != nil {
		sf.RT.Result = state
	}
	stack.Push(sf)

	target := stack.Depth() - 1
	for stack.Depth() > target {
		issuer, ok := stack.Top()
		if !ok {
			return substageAccept, ifail.New(ifail.SubstageContract, "substage frame stack emptied unexpectedly")
		}
		pc := issuer.PC()
		if pc < 0 || pc >= len(d.Instructions) {
			return substageAccept, ifail.New(ifail.ReferenceOutOfRange, "substage program counter %d out of range", pc)
		}
		sig, err := Execute(d, stack, d.Instructions[pc])
		if err != nil {
			return substageAccept, err
		}
		switch sig.Kind {
		case SigNext, SigCall:
			if err := issuer.IncPC(); err != nil {
				return substageAccept, err
			}
		case SigKill:
			return substageAccept, ifail.New(ifail.SubstageContract, "substage invocation killed mid-shader")
		case SigBlocked:
			return substageAccept, ifail.New(ifail.SubstageContract, "substage shader issued a control barrier")
		}
	}

	if sf.RT.Result == nil {
		return substageAccept, nil
	}
	v, _ := sf.RT.Result.(substageVerdict)
	return v, nil
}

func (d *Dynamic) execExecuteCallable(stack *frame.Stack, f *frame.Frame, view *data.View, instr token.Instruction) (Signal, error) {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	idxRef, err := r.Ref()
	if err != nil {
		return Signal{}, err
	}
	dataRef, err := r.Ref()
	if err != nil {
		return Signal{}, err
	}
	idxVal, err := tmp.lookupValue(idxRef.Ref)
	if err != nil {
		return Signal{}, err
	}
	prim, ok := idxVal.(*value.Primitive)
	if !ok {
		return Signal{}, ifail.New(ifail.TypeMismatch, "callable shader index %%%d is not a scalar", idxRef.Ref)
	}
	loc, bound := d.SBT.callable(uint32(prim.AsUint()))
	if !bound {
		return Signal{Kind: SigNext}, nil
	}
	if _, err := d.runSubstage(stack, view, frame.RTCallable, loc, uint32(prim.AsUint()), dataRef.Ref, nil); err != nil {
		return Signal{}, err
	}
	return Signal{Kind: SigNext}, nil
}

// execReportIntersection implements OpReportIntersectionKHR, called from an
// intersection substage to propose a procedural hit. It always behaves as
// though accepted by any-hit (spec §4.6's any-hit-for-procedural-geometry
// path is not separately modeled here — see DESIGN.md), writing the bool
// acceptance result and, if accepted, committing the intersection.
func (d *Dynamic) execReportIntersection(f *frame.Frame, view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	_, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	hitRef, err := r.Ref()
	if err != nil {
		return err
	}
	kindRef, err := r.Ref()
	if err != nil {
		return err
	}
	hitVal, err := tmp.lookupValue(hitRef.Ref)
	if err != nil {
		return err
	}
	kindVal, err := tmp.lookupValue(kindRef.Ref)
	if err != nil {
		return err
	}
	hitPrim, ok := hitVal.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "hit parameter %%%d is not a scalar", hitRef.Ref)
	}
	kindPrim, ok := kindVal.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "hit kind %%%d is not a scalar", kindRef.Ref)
	}

	accepted := false
	if f.RT.Result != nil {
		if state, ok := f.RT.Result.(*accel.State); ok {
			if cand, ok := state.CurrentCandidate(); ok {
				cand.HitT = float32(hitPrim.AsFloat(d.Arena))
				cand.HitKind = uint32(kindPrim.AsUint())
				cand.Kind = accel.IntersectionGenerated
				state.Commit(state.Candidate)
				accepted = true
			}
		}
	}
	view.Define(id, data.OfValue(value.NewBool(d.Arena, accepted)))
	return nil
}

func (d *Dynamic) execIgnoreOrTerminate(stack *frame.Stack, f *frame.Frame, verdict substageVerdict) (Signal, error) {
	f.RT.Result = verdict
	f.DisableRaytrace()
	if _, err := stack.Pop(); err != nil {
		return Signal{}, err
	}
	return Signal{Kind: SigReturn}, nil
}

// --- Ray query ops (spec §5's explicitly-stepped mirror of OpTraceRayKHR) ---

func (d *Dynamic) execRayQueryInitialize(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rqRef, err := r.Ref()
	if err != nil {
		return err
	}
	asRef, err := r.Ref()
	if err != nil {
		return err
	}
	rayFlagsRef, err := r.Ref()
	if err != nil {
		return err
	}
	cullMaskRef, err := r.Ref()
	if err != nil {
		return err
	}
	originRef, err := r.Ref()
	if err != nil {
		return err
	}
	tMinRef, err := r.Ref()
	if err != nil {
		return err
	}
	dirRef, err := r.Ref()
	if err != nil {
		return err
	}
	tMaxRef, err := r.Ref()
	if err != nil {
		return err
	}

	rqDD, ok := view.At(rqRef.Ref)
	if !ok {
		return ifail.New(ifail.ReferenceOutOfRange, "ray query %%%d is undefined", rqRef.Ref)
	}
	rqVariable, ok := rqDD.Variable()
	if !ok {
		return ifail.New(ifail.TypeMismatch, "ray query %%%d is not a variable", rqRef.Ref)
	}
	rq, ok := rqVariable.Val.(*accel.RayQueryValue)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "ray query %%%d is not a RayQuery value", rqRef.Ref)
	}

	asVal, err := tmp.lookupValue(asRef.Ref)
	if err != nil {
		return err
	}
	as, ok := asVal.(*accel.StructValue)
	if !ok || as.BVH == nil {
		return ifail.New(ifail.TypeMismatch, "ray query acceleration structure %%%d is not loaded", asRef.Ref)
	}

	rayFlagsVal, err := tmp.lookupValue(rayFlagsRef.Ref)
	if err != nil {
		return err
	}
	cullMaskVal, err := tmp.lookupValue(cullMaskRef.Ref)
	if err != nil {
		return err
	}
	tMinVal, err := tmp.lookupValue(tMinRef.Ref)
	if err != nil {
		return err
	}
	tMaxVal, err := tmp.lookupValue(tMaxRef.Ref)
	if err != nil {
		return err
	}
	originVal, err := tmp.lookupValue(originRef.Ref)
	if err != nil {
		return err
	}
	dirVal, err := tmp.lookupValue(dirRef.Ref)
	if err != nil {
		return err
	}
	origin, err := vec3FromValue(d.Arena, originVal)
	if err != nil {
		return err
	}
	dir, err := vec3FromValue(d.Arena, dirVal)
	if err != nil {
		return err
	}

	rfPrim, _ := rayFlagsVal.(*value.Primitive)
	cmPrim, _ := cullMaskVal.(*value.Primitive)
	tMinPrim, _ := tMinVal.(*value.Primitive)
	tMaxPrim, _ := tMaxVal.(*value.Primitive)
	if rfPrim == nil || cmPrim == nil || tMinPrim == nil || tMaxPrim == nil {
		return ifail.New(ifail.TypeMismatch, "OpRayQueryInitializeKHR scalar operand is not a Primitive")
	}

	state := accel.NewState(as.BVH.Root(), float32(tMinPrim.AsFloat(d.Arena)), float32(tMaxPrim.AsFloat(d.Arena)))
	state.CullMask = uint32(cmPrim.AsUint())
	decodeRayFlags(state, uint32(rfPrim.AsUint()))
	rq.As = as
	rq.Trace = state
	if d.rayQueryRays == nil {
		d.rayQueryRays = make(map[*accel.RayQueryValue]accel.Ray)
	}
	d.rayQueryRays[rq] = accel.Ray{Origin: origin, Direction: dir}
	if d.rayQueryCurrent == nil {
		d.rayQueryCurrent = make(map[*accel.RayQueryValue]int)
	}
	delete(d.rayQueryCurrent, rq)
	delete(d.rayQueryResolved, rq)
	return nil
}

// rayQueryRay recovers the Ray an OpRayQueryInitializeKHR call stashed for
// rq, since accel.State carries no ray direction/origin fields of its own
// (spec §3.4 lists them separately from Trace state).
func (d *Dynamic) rayQueryRay(rq *accel.RayQueryValue) accel.Ray {
	if d.rayQueryRays == nil {
		return accel.Ray{}
	}
	return d.rayQueryRays[rq]
}

func lookupRayQuery(view *data.View, ref uint32) (*accel.RayQueryValue, error) {
	dd, ok := view.At(ref)
	if !ok {
		return nil, ifail.New(ifail.ReferenceOutOfRange, "ray query %%%d is undefined", ref)
	}
	var val value.Value
	if variable, ok := dd.Variable(); ok {
		val = variable.Val
	} else if v, ok := dd.Value(); ok {
		val = v
	} else {
		return nil, ifail.New(ifail.TypeMismatch, "ray query %%%d is not storable", ref)
	}
	rq, ok := val.(*accel.RayQueryValue)
	if !ok {
		return nil, ifail.New(ifail.TypeMismatch, "%%%d is not a RayQuery value", ref)
	}
	return rq, nil
}

func (d *Dynamic) execRayQueryProceed(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	_, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	rqRef, err := r.Ref()
	if err != nil {
		return err
	}
	rq, err := lookupRayQuery(view, rqRef.Ref)
	if err != nil {
		return err
	}
	if rq.Trace == nil {
		return ifail.New(ifail.RaytraceStateCorrupt, "OpRayQueryProceedKHR on an uninitialized ray query")
	}
	ray := d.rayQueryRay(rq)
	if d.rayQueryResolved == nil {
		d.rayQueryResolved = make(map[*accel.RayQueryValue]map[int]bool)
	}
	resolved := d.rayQueryResolved[rq]
	if resolved == nil {
		resolved = make(map[int]bool)
		d.rayQueryResolved[rq] = resolved
	}

	// A candidate already surfaced by a prior Proceed call has been seen by
	// the shader (and possibly confirmed/generated); this call means the
	// shader is done with it, so move past it before resuming the search.
	if prev, ok := d.rayQueryCurrent[rq]; ok {
		if rq.Trace.Candidate == prev {
			rq.Trace.Advance()
		}
		delete(d.rayQueryCurrent, rq)
	}

	proceeding := false
	for !rq.Trace.Done() {
		idx := rq.Trace.Candidate
		cand, ok := rq.Trace.CurrentCandidate()
		if !ok {
			break
		}
		if resolved[idx] {
			if d.rayQueryCurrent == nil {
				d.rayQueryCurrent = make(map[*accel.RayQueryValue]int)
			}
			d.rayQueryCurrent[rq] = idx
			proceeding = true
			break
		}

		node, _ := rq.As.BVH.At(cand.Instance)
		isLeaf := node != nil && (node.Kind == accel.KindTriangle || node.Kind == accel.KindProcedural)
		before := len(rq.Trace.Candidates)
		if err := rq.As.BVH.Step(ray, rq.Trace); err != nil {
			return err
		}
		if isLeaf {
			for i := before; i < len(rq.Trace.Candidates); i++ {
				resolved[i] = true
			}
		}
	}
	view.Define(id, data.OfValue(value.NewBool(d.Arena, proceeding)))
	return nil
}

// rayQueryCandidate returns the candidate index OpRayQueryProceedKHR most
// recently surfaced for rq, or -1 if none is pending.
func (d *Dynamic) rayQueryCandidate(rq *accel.RayQueryValue) int {
	if d.rayQueryCurrent == nil {
		return -1
	}
	if idx, ok := d.rayQueryCurrent[rq]; ok {
		return idx
	}
	return -1
}

func (d *Dynamic) execRayQueryConfirmIntersection(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	rqRef, err := r.Ref()
	if err != nil {
		return err
	}
	rq, err := lookupRayQuery(view, rqRef.Ref)
	if err != nil {
		return err
	}
	if rq.Trace == nil {
		return ifail.New(ifail.RaytraceStateCorrupt, "OpRayQueryConfirmIntersectionKHR on an uninitialized ray query")
	}
	idx := d.rayQueryCandidate(rq)
	if idx < 0 || idx >= len(rq.Trace.Candidates) {
		return ifail.New(ifail.IndexOutOfBounds, "no current candidate to confirm an intersection from")
	}
	rq.Trace.Commit(idx)
	return nil
}

func (d *Dynamic) execRayQueryGenerateIntersection(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rqRef, err := r.Ref()
	if err != nil {
		return err
	}
	hitRef, err := r.Ref()
	if err != nil {
		return err
	}
	rq, err := lookupRayQuery(view, rqRef.Ref)
	if err != nil {
		return err
	}
	hitVal, err := tmp.lookupValue(hitRef.Ref)
	if err != nil {
		return err
	}
	hitPrim, ok := hitVal.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "hit parameter %%%d is not a scalar", hitRef.Ref)
	}
	if rq.Trace == nil {
		return ifail.New(ifail.RaytraceStateCorrupt, "OpRayQueryGenerateIntersectionKHR on an uninitialized ray query")
	}
	idx := d.rayQueryCandidate(rq)
	if idx < 0 || idx >= len(rq.Trace.Candidates) {
		return ifail.New(ifail.IndexOutOfBounds, "no current candidate to generate an intersection from")
	}
	rq.Trace.Candidates[idx].Kind = accel.IntersectionGenerated
	rq.Trace.Candidates[idx].HitT = float32(hitPrim.AsFloat(d.Arena))
	rq.Trace.Commit(idx)
	return nil
}

func (d *Dynamic) execRayQueryTerminate(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	rqRef, err := r.Ref()
	if err != nil {
		return err
	}
	rq, err := lookupRayQuery(view, rqRef.Ref)
	if err != nil {
		return err
	}
	if rq.Trace != nil {
		rq.Trace.Candidate = len(rq.Trace.Candidates)
	}
	return nil
}

func (d *Dynamic) execRayQueryGetIntersectionT(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rt, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	rqRef, err := r.Ref()
	if err != nil {
		return err
	}
	selectorVal, err := r.Uint() // 0 = candidate (pending), 1 = committed
	if err != nil {
		return err
	}
	rq, err := lookupRayQuery(view, rqRef.Ref)
	if err != nil {
		return err
	}
	tid, err := tmp.lookupType(rt)
	if err != nil {
		return err
	}
	t, _ := d.Arena.Lookup(tid)
	var hitT float32
	if rq.Trace != nil {
		if selectorVal.U == 0 {
			if idx := d.rayQueryCandidate(rq); idx >= 0 && idx < len(rq.Trace.Candidates) {
				hitT = rq.Trace.Candidates[idx].HitT
			}
		} else if it, ok := rq.Trace.CommittedIntersection(); ok {
			hitT = it.HitT
		}
	}
	view.Define(id, data.OfValue(value.NewFloat(d.Arena, t.SubSize, float64(hitT))))
	return nil
}

// --- Cooperative matrix ops (spec §3.2, §4.4: elements distributed in
// contiguous per-invocation slices) ---

func (d *Dynamic) execCoopMatrixLoad(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rt, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	ptrRef, err := r.Ref()
	if err != nil {
		return err
	}
	layoutRef, err := r.Ref()
	if err != nil {
		return err
	}
	layout, err := tmp.lookupValue(layoutRef.Ref)
	if err != nil {
		return err
	}
	layoutPrim, ok := layout.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "memory layout operand %%%d is not a scalar", layoutRef.Ref)
	}
	colMajor := layoutPrim.AsUint() == 1

	tid, err := tmp.lookupType(rt)
	if err != nil {
		return err
	}
	mt, ok := d.Arena.Lookup(tid)
	if !ok || mt.Base != types.CoopMatrix {
		return ifail.New(ifail.TypeMismatch, "OpCooperativeMatrixLoadKHR result is not a cooperative matrix")
	}
	rows, cols := mt.SubSize, uint32(0)
	if len(mt.Fields) > 0 {
		cols = uint32(mt.Fields[0])
	}
	total := rows * cols

	src, err := resolveLoadSource(view, ptrRef.Ref)
	if err != nil {
		return err
	}
	arr, ok := src.(*value.Array)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "cooperative matrix memory operand %%%d is not array-shaped", ptrRef.Ref)
	}

	start, end := value.Slice(uint32(d.Invocation), uint32(maxInt(d.NumInvocations, 1)), total)
	elems := make([]value.Value, 0, end-start)
	for k := start; k < end; k++ {
		row, col := k/cols, k%cols
		srcIdx := row*cols + col
		if colMajor {
			srcIdx = col*rows + row
		}
		if int(srcIdx) >= len(arr.Elements) {
			return ifail.New(ifail.IndexOutOfBounds, "cooperative matrix load index %d out of range", srcIdx)
		}
		elems = append(elems, arr.Elements[srcIdx].Clone())
	}
	view.Define(id, data.OfValue(value.NewCoopMatrix(tid, rows, cols, elems)))
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (d *Dynamic) execCoopMatrixStore(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	ptrRef, err := r.Ref()
	if err != nil {
		return err
	}
	objRef, err := r.Ref()
	if err != nil {
		return err
	}
	layoutRef, err := r.Ref()
	if err != nil {
		return err
	}
	layout, err := tmp.lookupValue(layoutRef.Ref)
	if err != nil {
		return err
	}
	layoutPrim, ok := layout.(*value.Primitive)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "memory layout operand %%%d is not a scalar", layoutRef.Ref)
	}
	colMajor := layoutPrim.AsUint() == 1

	objVal, err := tmp.lookupValue(objRef.Ref)
	if err != nil {
		return err
	}
	mat, ok := objVal.(*value.CoopMatrix)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "store source %%%d is not a cooperative matrix", objRef.Ref)
	}

	dst, err := resolveLoadSource(view, ptrRef.Ref)
	if err != nil {
		return err
	}
	arr, ok := dst.(*value.Array)
	if !ok {
		return ifail.New(ifail.TypeMismatch, "cooperative matrix memory operand %%%d is not array-shaped", ptrRef.Ref)
	}

	total := mat.Rows * mat.Cols
	start, _ := value.Slice(uint32(d.Invocation), uint32(maxInt(d.NumInvocations, 1)), total)
	for i, e := range mat.Elements {
		k := start + uint32(i)
		row, col := k/mat.Cols, k%mat.Cols
		dstIdx := row*mat.Cols + col
		if colMajor {
			dstIdx = col*mat.Rows + row
		}
		if int(dstIdx) >= len(arr.Elements) {
			return ifail.New(ifail.IndexOutOfBounds, "cooperative matrix store index %d out of range", dstIdx)
		}
		if err := arr.Elements[dstIdx].CopyFrom(d.Arena, e); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dynamic) execCoopMatrixLength(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rt, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	typeRef, err := r.Ref()
	if err != nil {
		return err
	}
	tid, err := tmp.lookupType(typeRef.Ref)
	if err != nil {
		return err
	}
	mt, ok := d.Arena.Lookup(tid)
	if !ok || mt.Base != types.CoopMatrix {
		return ifail.New(ifail.TypeMismatch, "OpCooperativeMatrixLengthKHR operand is not a cooperative matrix type")
	}
	cols := uint32(0)
	if len(mt.Fields) > 0 {
		cols = uint32(mt.Fields[0])
	}
	total := mt.SubSize * cols
	start, end := value.Slice(uint32(d.Invocation), uint32(maxInt(d.NumInvocations, 1)), total)

	rtid, err := tmp.lookupType(rt)
	if err != nil {
		return err
	}
	rtTy, _ := d.Arena.Lookup(rtid)
	view.Define(id, data.OfValue(value.NewUint(d.Arena, rtTy.SubSize, uint64(end-start))))
	return nil
}

// gatherFullMatrix reassembles the full logical matrix for id by
// concatenating every peer invocation's slice, in invocation order (spec
// §3.2's contiguous-slice partitioning makes this a simple concatenation,
// not a scatter). With no peers configured, this invocation's own slice is
// the whole matrix (the single-invocation degenerate case).
func (d *Dynamic) gatherFullMatrix(view *data.View, id uint32) (*value.CoopMatrix, error) {
	if len(d.Peers) == 0 {
		dd, ok := view.At(id)
		if !ok {
			return nil, ifail.New(ifail.ReferenceOutOfRange, "cooperative matrix %%%d is undefined", id)
		}
		v, ok := dd.Value()
		if !ok {
			return nil, ifail.New(ifail.TypeMismatch, "%%%d is not a value", id)
		}
		mat, ok := v.(*value.CoopMatrix)
		if !ok {
			return nil, ifail.New(ifail.TypeMismatch, "%%%d is not a cooperative matrix", id)
		}
		return mat, nil
	}

	var all []value.Value
	var rows, cols uint32
	var tid types.TypeID
	for _, peer := range d.Peers {
		if peer == nil {
			return nil, ifail.New(ifail.RaytraceStateCorrupt, "cooperative matrix peer view missing")
		}
		dd, ok := peer.At(id)
		if !ok {
			return nil, ifail.New(ifail.ReferenceOutOfRange, "cooperative matrix %%%d is undefined in a peer invocation", id)
		}
		v, ok := dd.Value()
		if !ok {
			return nil, ifail.New(ifail.TypeMismatch, "%%%d is not a value in a peer invocation", id)
		}
		mat, ok := v.(*value.CoopMatrix)
		if !ok {
			return nil, ifail.New(ifail.TypeMismatch, "%%%d is not a cooperative matrix in a peer invocation", id)
		}
		rows, cols, tid = mat.Rows, mat.Cols, mat.TypeID()
		all = append(all, mat.Elements...)
	}
	return value.NewCoopMatrix(tid, rows, cols, all), nil
}

func (d *Dynamic) execCoopMatrixMulAdd(view *data.View, instr token.Instruction) error {
	r := token.NewReader(instr.Operands)
	tmp := &Static{Arena: d.Arena, View: view}
	rt, id, err := tmp.resultTypeAndID(r)
	if err != nil {
		return err
	}
	aRef, err := r.Ref()
	if err != nil {
		return err
	}
	bRef, err := r.Ref()
	if err != nil {
		return err
	}
	cRef, err := r.Ref()
	if err != nil {
		return err
	}

	a, err := d.gatherFullMatrix(view, aRef.Ref)
	if err != nil {
		return err
	}
	b, err := d.gatherFullMatrix(view, bRef.Ref)
	if err != nil {
		return err
	}
	c, err := d.gatherFullMatrix(view, cRef.Ref)
	if err != nil {
		return err
	}
	if a.Cols != b.Rows || a.Rows != c.Rows || b.Cols != c.Cols {
		return ifail.New(ifail.InputShapeMismatch, "cooperative matrix multiply-add operands have incompatible shapes")
	}

	toFloats := func(m *value.CoopMatrix) ([]float64, error) {
		out := make([]float64, len(m.Elements))
		for i, e := range m.Elements {
			prim, ok := e.(*value.Primitive)
			if !ok {
				return nil, ifail.New(ifail.TypeMismatch, "cooperative matrix multiply-add requires scalar elements")
			}
			out[i] = prim.AsFloat(d.Arena)
		}
		return out, nil
	}
	af, err := toFloats(a)
	if err != nil {
		return err
	}
	bf, err := toFloats(b)
	if err != nil {
		return err
	}
	cf, err := toFloats(c)
	if err != nil {
		return err
	}

	result := make([]float64, a.Rows*b.Cols)
	for i := uint32(0); i < a.Rows; i++ {
		for j := uint32(0); j < b.Cols; j++ {
			sum := cf[i*b.Cols+j]
			for k := uint32(0); k < a.Cols; k++ {
				sum += af[i*a.Cols+k] * bf[k*b.Cols+j]
			}
			result[i*b.Cols+j] = sum
		}
	}

	tid, err := tmp.lookupType(rt)
	if err != nil {
		return err
	}
	mt, ok := d.Arena.Lookup(tid)
	if !ok || mt.Base != types.CoopMatrix {
		return ifail.New(ifail.TypeMismatch, "OpCooperativeMatrixMulAddKHR result is not a cooperative matrix")
	}
	compTy, _ := d.Arena.Lookup(mt.SubElement)

	total := a.Rows * b.Cols
	start, end := value.Slice(uint32(d.Invocation), uint32(maxInt(d.NumInvocations, 1)), total)
	elems := make([]value.Value, 0, end-start)
	for k := start; k < end; k++ {
		elems = append(elems, value.NewFloat(d.Arena, compTy.SubSize, result[k]))
	}
	view.Define(id, data.OfValue(value.NewCoopMatrix(tid, a.Rows, b.Cols, elems)))
	return nil
}
