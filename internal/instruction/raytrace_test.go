package instruction

import (
	"math"
	"testing"

	"spirvm/internal/accel"
	"spirvm/internal/data"
	"spirvm/internal/frame"
	"spirvm/internal/token"
	"spirvm/internal/value"
)

// triangleBVH builds a one-box-root, one-triangle-child BVH matching
// internal/accel's own TestStepBoxNodeEnqueuesChildren fixture: a unit
// triangle at z=0, hit by a ray fired from z=-1 straight down +z.
func triangleBVH() *accel.BVH {
	bvh := &accel.BVH{
		Nodes: []accel.Node{
			{Kind: accel.KindBox, Children: []accel.Ref{{Major: 3, Minor: 0}}},
			{Kind: accel.KindTriangle, Vertices: [3]accel.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Opaque: true},
		},
		BoxCount: 1, InstanceCount: 0, GeometryCount: 1,
	}
	bvh.ResolveAll()
	return bvh
}

func TestExecTraceRayNoSBTFillsDefaultPayload(t *testing.T) {
	d, s, manager := newDynamic()

	f32bits := func(v float32) uint32 { return math.Float32bits(v) }
	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpTypeInt, 2, 32, 0),
		instr(2, OpTypeVector, 3, 1, 3),
		instr(3, OpTypeStruct, 4, 1, 1, 1, 1),
		instr(4, OpTypePointer, 5, 7, 4), // Function storage, pointee=4 (payload struct)
		instr(5, OpVariable, 5, 6, 7),    // payload variable

		instr(6, OpConstant, 2, 7, 0), // zero uint, reused for flags/cullmask/sbt*/missIndex
		instr(7, OpConstant, 1, 8, f32bits(0)),    // tMin
		instr(8, OpConstant, 1, 9, f32bits(1000)), // tMax
		instr(9, OpConstant, 1, 10, f32bits(0.25)),
		instr(10, OpConstant, 1, 11, f32bits(0.25)),
		instr(11, OpConstant, 1, 12, f32bits(-1)),
		instr(12, OpConstantComposite, 3, 13, 10, 11, 12), // origin
		instr(13, OpConstant, 1, 14, f32bits(0)),
		instr(14, OpConstant, 1, 15, f32bits(0)),
		instr(15, OpConstant, 1, 16, f32bits(1)),
		instr(16, OpConstantComposite, 3, 17, 14, 15, 16), // direction
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	as := accel.NewAccelStruct(0)
	as.BVH = triangleBVH()
	manager.Global().Define(100, data.OfValue(as))

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))

	traceInstr := instr(17, OpTraceRayKHR,
		100, // AS
		7,   // rayFlags
		7,   // cullMask
		7,   // sbtOffset
		7,   // sbtStride
		7,   // missIndex
		13,  // origin
		8,   // tMin
		17,  // direction
		9,   // tMax
		6,   // payload
	)
	if _, err := Execute(d, stack, traceInstr); err != nil {
		t.Fatalf("OpTraceRayKHR: %v", err)
	}

	dd, ok := manager.Global().At(6)
	if !ok {
		t.Fatalf("payload variable not found")
	}
	variable, ok := dd.Variable()
	if !ok {
		t.Fatalf("id 6 is not a variable")
	}
	if got := variable.Val.Print(d.Arena, 0); got != "{ 1, 0, 0, 0 }" {
		t.Fatalf("expected payload {1,0,0,0} (hitT=1 at the unit triangle), got %s", got)
	}
}

func TestExecRayQueryProceedAndConfirm(t *testing.T) {
	d, s, manager := newDynamic()
	f32bits := func(v float32) uint32 { return math.Float32bits(v) }

	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpTypeInt, 2, 32, 0),
		instr(2, OpTypeVector, 3, 1, 3),
		instr(3, OpTypeBool, 4),

		instr(4, OpConstant, 2, 10, 0), // zero uint: rayFlags, cullMask
		instr(5, OpConstant, 1, 11, f32bits(0)),    // tMin
		instr(6, OpConstant, 1, 12, f32bits(1000)), // tMax
		instr(7, OpConstant, 1, 13, f32bits(0.25)),
		instr(8, OpConstant, 1, 14, f32bits(0.25)),
		instr(9, OpConstant, 1, 15, f32bits(-1)),
		instr(10, OpConstantComposite, 3, 16, 13, 14, 15), // origin
		instr(11, OpConstant, 1, 17, f32bits(0)),
		instr(12, OpConstant, 1, 18, f32bits(0)),
		instr(13, OpConstant, 1, 19, f32bits(1)),
		instr(14, OpConstantComposite, 3, 20, 17, 18, 19), // direction
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	as := accel.NewAccelStruct(0)
	as.BVH = triangleBVH()
	manager.Global().Define(100, data.OfValue(as))

	rq := accel.NewRayQuery(0)
	manager.Global().Define(101, data.OfVariable(data.NewVariable(rq, data.StorageFunction)))

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))

	initInstr := instr(15, OpRayQueryInitializeKHR,
		101, // ray query
		100, // AS
		10,  // rayFlags
		10,  // cullMask
		16,  // origin
		11,  // tMin
		20,  // direction
		12,  // tMax
	)
	if _, err := Execute(d, stack, initInstr); err != nil {
		t.Fatalf("OpRayQueryInitializeKHR: %v", err)
	}
	if rq.Trace == nil {
		t.Fatalf("expected ray query to carry a trace state after initialize")
	}

	proceedInstr := instr(16, OpRayQueryProceedKHR, 4, 200, 101)
	if _, err := Execute(d, stack, proceedInstr); err != nil {
		t.Fatalf("OpRayQueryProceedKHR: %v", err)
	}
	dd, ok := manager.Global().At(200)
	if !ok {
		t.Fatalf("proceed result not defined")
	}
	v, _ := dd.Value()
	if v.Print(d.Arena, 0) != "true" {
		t.Fatalf("expected proceed to surface the triangle candidate, got %s", v.Print(d.Arena, 0))
	}
	if idx := d.rayQueryCandidate(rq); idx < 0 {
		t.Fatalf("expected a pending candidate index after proceed")
	}

	confirmInstr := instr(17, OpRayQueryConfirmIntersectionKHR, 101)
	if _, err := Execute(d, stack, confirmInstr); err != nil {
		t.Fatalf("OpRayQueryConfirmIntersectionKHR: %v", err)
	}
	it, ok := rq.Trace.CommittedIntersection()
	if !ok {
		t.Fatalf("expected a committed intersection after confirm")
	}
	if it.HitT < 0.99 || it.HitT > 1.01 {
		t.Fatalf("expected hitT close to 1, got %v", it.HitT)
	}

	getTInstr := instr(18, OpRayQueryGetIntersectionTKHR, 1, 201, 101, 1) // selector=1: committed
	if _, err := Execute(d, stack, getTInstr); err != nil {
		t.Fatalf("OpRayQueryGetIntersectionTKHR: %v", err)
	}
	dd2, _ := manager.Global().At(201)
	v2, _ := dd2.Value()
	if v2.Print(d.Arena, 0) != "1" {
		t.Fatalf("expected committed hitT 1, got %s", v2.Print(d.Arena, 0))
	}
}

func TestExecCoopMatrixLoadStoreRoundTrip(t *testing.T) {
	d, s, manager := newDynamic()
	f32bits := func(v float32) uint32 { return math.Float32bits(v) }

	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpTypeInt, 2, 32, 0),
		instr(2, OpConstant, 2, 10, 4), // array length
		instr(3, OpTypeArray, 3, 1, 10),
		instr(4, OpTypePointer, 4, 7, 3), // Function storage, pointee=array

		instr(5, OpConstant, 2, 11, 3), // scope (unused)
		instr(6, OpConstant, 2, 12, 2), // rows
		instr(7, OpConstant, 2, 13, 2), // cols
		instr(8, OpConstant, 2, 14, 0), // use (unused)
		instr(9, OpTypeCooperativeMatrixKHR, 5, 1, 11, 12, 13, 14),

		instr(10, OpConstant, 1, 20, f32bits(1)),
		instr(11, OpConstant, 1, 21, f32bits(2)),
		instr(12, OpConstant, 1, 22, f32bits(3)),
		instr(13, OpConstant, 1, 23, f32bits(4)),
		instr(14, OpConstantComposite, 3, 24, 20, 21, 22, 23),

		instr(15, OpVariable, 4, 30, 7, 24), // src, initialized
		instr(16, OpVariable, 4, 31, 7),     // dst, zero-initialized

		instr(17, OpConstant, 2, 40, 0), // memory layout: RowMajor
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))

	loadInstr := instr(18, OpCooperativeMatrixLoadKHR, 5, 50, 30, 40)
	if _, err := Execute(d, stack, loadInstr); err != nil {
		t.Fatalf("OpCooperativeMatrixLoadKHR: %v", err)
	}
	dd, ok := manager.Global().At(50)
	if !ok {
		t.Fatalf("loaded matrix not defined")
	}
	v, _ := dd.Value()
	if v.Print(d.Arena, 0) != "[ 1, 2, 3, 4 ]" {
		t.Fatalf("expected [1,2,3,4] row-major load, got %s", v.Print(d.Arena, 0))
	}

	storeInstr := instr(19, OpCooperativeMatrixStoreKHR, 31, 50, 40)
	if _, err := Execute(d, stack, storeInstr); err != nil {
		t.Fatalf("OpCooperativeMatrixStoreKHR: %v", err)
	}
	dstDD, _ := manager.Global().At(31)
	dstVar, _ := dstDD.Variable()
	if dstVar.Val.Print(d.Arena, 0) != "[ 1, 2, 3, 4 ]" {
		t.Fatalf("expected store to round-trip [1,2,3,4], got %s", dstVar.Val.Print(d.Arena, 0))
	}

	lengthInstr := instr(20, OpCooperativeMatrixLengthKHR, 2, 51, 5)
	if _, err := Execute(d, stack, lengthInstr); err != nil {
		t.Fatalf("OpCooperativeMatrixLengthKHR: %v", err)
	}
	lenDD, _ := manager.Global().At(51)
	lenVal, _ := lenDD.Value()
	if lenVal.Print(d.Arena, 0) != "4" {
		t.Fatalf("expected length 4 for a 2x2 single-invocation matrix, got %s", lenVal.Print(d.Arena, 0))
	}
}

func TestExecCoopMatrixMulAddMultipliesSquareMatrices(t *testing.T) {
	d, s, manager := newDynamic()
	f32bits := func(v float32) uint32 { return math.Float32bits(v) }

	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpTypeInt, 2, 32, 0),
		instr(2, OpConstant, 2, 10, 4), // array length
		instr(3, OpTypeArray, 3, 1, 10),
		instr(4, OpTypePointer, 4, 7, 3),

		instr(5, OpConstant, 2, 11, 3), // scope
		instr(6, OpConstant, 2, 12, 2), // rows
		instr(7, OpConstant, 2, 13, 2), // cols
		instr(8, OpConstant, 2, 14, 0), // use
		instr(9, OpTypeCooperativeMatrixKHR, 5, 1, 11, 12, 13, 14),

		instr(10, OpConstant, 1, 20, f32bits(1)),
		instr(11, OpConstant, 1, 21, f32bits(2)),
		instr(12, OpConstant, 1, 22, f32bits(3)),
		instr(13, OpConstant, 1, 23, f32bits(4)),
		instr(14, OpConstantComposite, 3, 24, 20, 21, 22, 23),

		instr(15, OpVariable, 4, 30, 7, 24), // source array [1,2,3,4]
		instr(16, OpConstant, 2, 40, 0),     // memory layout: RowMajor
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))

	// Load the same [[1,2],[3,4]] matrix into both A and B (id 50, 51).
	if _, err := Execute(d, stack, instr(17, OpCooperativeMatrixLoadKHR, 5, 50, 30, 40)); err != nil {
		t.Fatalf("load A: %v", err)
	}
	if _, err := Execute(d, stack, instr(18, OpCooperativeMatrixLoadKHR, 5, 51, 30, 40)); err != nil {
		t.Fatalf("load B: %v", err)
	}

	cDD, ok := s.View.At(5)
	if !ok {
		t.Fatalf("matrix type 5 not defined")
	}
	matTID, ok := cDD.Type()
	if !ok {
		t.Fatalf("id 5 is not a type")
	}
	zero := value.NewFloat(d.Arena, 32, 0)
	c := value.NewCoopMatrix(matTID, 2, 2, []value.Value{zero.Clone(), zero.Clone(), zero.Clone(), zero.Clone()})
	manager.Global().Define(52, data.OfValue(c))

	mulInstr := instr(19, OpCooperativeMatrixMulAddKHR, 5, 60, 50, 51, 52)
	if _, err := Execute(d, stack, mulInstr); err != nil {
		t.Fatalf("OpCooperativeMatrixMulAddKHR: %v", err)
	}
	dd, ok := manager.Global().At(60)
	if !ok {
		t.Fatalf("mul-add result not defined")
	}
	v, _ := dd.Value()
	// [[1,2],[3,4]] * [[1,2],[3,4]] = [[7,10],[15,22]]
	if got := v.Print(d.Arena, 0); got != "[ 7, 10, 15, 22 ]" {
		t.Fatalf("expected [7,10,15,22], got %s", got)
	}
}
