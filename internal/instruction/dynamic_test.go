package instruction

import (
	"math"
	"testing"

	"spirvm/internal/data"
	"spirvm/internal/frame"
	"spirvm/internal/token"
	"spirvm/internal/types"
)

func newDynamic() (*Dynamic, *Static, *data.Manager) {
	arena := types.NewArena()
	manager := data.NewManager(0)
	s := NewStatic(arena, manager.Global())
	return &Dynamic{Arena: arena, Manager: manager}, s, manager
}

func TestDynamicLoadStoreRoundTrip(t *testing.T) {
	d, s, manager := newDynamic()
	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpTypePointer, 2, 7, 1), // Function storage
		instr(2, OpVariable, 2, 3, 7),
		instr(3, OpConstant, 1, 4, math.Float32bits(7)),
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))

	if _, err := Execute(d, stack, instr(4, OpStore, 3, 4)); err != nil {
		t.Fatalf("OpStore: %v", err)
	}
	if _, err := Execute(d, stack, instr(5, OpLoad, 1, 5, 3)); err != nil {
		t.Fatalf("OpLoad: %v", err)
	}

	dd, ok := manager.Global().At(5)
	if !ok {
		t.Fatalf("loaded value not defined")
	}
	v, ok := dd.Value()
	if !ok {
		t.Fatalf("id 5 is not a value")
	}
	if v.Print(d.Arena, 0) != "7" {
		t.Fatalf("expected 7, got %s", v.Print(d.Arena, 0))
	}

	vd, _ := manager.Global().At(3)
	variable, _ := vd.Variable()
	if variable.Val.Print(d.Arena, 0) != "7" {
		t.Fatalf("store did not mutate the variable's value in place, got %s", variable.Val.Print(d.Arena, 0))
	}
}

func TestDynamicAccessChainStoresIntoStructField(t *testing.T) {
	d, s, manager := newDynamic()
	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpTypeStruct, 2, 1, 1),
		instr(2, OpTypePointer, 3, 7, 2), // pointer-to-struct, Function storage
		instr(3, OpVariable, 3, 4, 7),
		instr(4, OpTypePointer, 5, 7, 1), // pointer-to-float, Function storage
		instr(5, OpConstant, 1, 6, math.Float32bits(9)),
		instr(6, OpTypeInt, 8, 32, 0),
		instr(7, OpConstant, 8, 9, 1), // index literal 1
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))

	if _, err := Execute(d, stack, instr(8, OpAccessChain, 5, 7, 4, 9)); err != nil {
		t.Fatalf("OpAccessChain: %v", err)
	}
	if _, err := Execute(d, stack, instr(9, OpStore, 7, 6)); err != nil {
		t.Fatalf("OpStore: %v", err)
	}
	if _, err := Execute(d, stack, instr(10, OpLoad, 5, 10, 7)); err != nil {
		t.Fatalf("OpLoad: %v", err)
	}

	dd, _ := manager.Global().At(10)
	v, ok := dd.Value()
	if !ok {
		t.Fatalf("id 10 is not a value")
	}
	if v.Print(d.Arena, 0) != "9" {
		t.Fatalf("expected 9, got %s", v.Print(d.Arena, 0))
	}
}

func TestDynamicBranchConditionalSetsPC(t *testing.T) {
	d, s, manager := newDynamic()
	instrs := []token.Instruction{
		instr(0, OpTypeBool, 1),
		instr(1, OpConstantTrue, 1, 2),
		instr(2, OpLabel, 10),
		instr(3, OpLabel, 11),
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))
	f, _ := stack.Top()

	sig, err := Execute(d, stack, instr(0, OpBranchConditional, 2, 10, 11))
	if err != nil {
		t.Fatalf("OpBranchConditional: %v", err)
	}
	if sig.Kind != SigJump {
		t.Fatalf("expected SigJump, got %v", sig.Kind)
	}
	if f.PC() != 2 {
		t.Fatalf("expected pc jumped to label 10's index 2, got %d", f.PC())
	}
}

func TestDynamicPhiChoosesPredecessorOperand(t *testing.T) {
	d, s, manager := newDynamic()
	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpConstant, 1, 2, math.Float32bits(1)),
		instr(2, OpConstant, 1, 3, math.Float32bits(2)),
		instr(3, OpLabel, 20),
		instr(4, OpLabel, 21),
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))
	f, _ := stack.Top()
	f.SetLabel(20) // entered block 20...
	f.SetLabel(21) // ...then branched into block 21, so lastLabel is now 20

	if _, err := Execute(d, stack, instr(5, OpPhi, 1, 30, 2, 20, 3, 21)); err != nil {
		t.Fatalf("OpPhi: %v", err)
	}
	dd, _ := manager.Global().At(30)
	v, _ := dd.Value()
	if v.Print(d.Arena, 0) != "1" {
		t.Fatalf("expected operand paired with predecessor label 20 (value 1), got %s", v.Print(d.Arena, 0))
	}
}

func TestDynamicFunctionCallReturnsValueToCaller(t *testing.T) {
	d, s, manager := newDynamic()
	instrs := []token.Instruction{
		instr(0, OpTypeFloat, 1, 32),
		instr(1, OpTypeFunction, 2, 1),
		instr(2, OpFunction, 1, 10, 0, 2),
		instr(3, OpLabel, 11),
		instr(4, OpConstant, 1, 12, math.Float32bits(5)),
	}
	if err := run(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}

	stack := frame.NewStack()
	stack.Push(frame.New(100, nil, 0, manager.Global()))

	sig, err := Execute(d, stack, instr(5, OpFunctionCall, 1, 20, 10))
	if err != nil {
		t.Fatalf("OpFunctionCall: %v", err)
	}
	if sig.Kind != SigCall || stack.Depth() != 2 {
		t.Fatalf("expected a pushed callee frame, depth=%d kind=%v", stack.Depth(), sig.Kind)
	}

	if _, err := Execute(d, stack, instr(3, OpLabel, 11)); err != nil {
		t.Fatalf("OpLabel: %v", err)
	}
	if _, err := Execute(d, stack, instr(5, OpReturnValue, 12)); err != nil {
		t.Fatalf("OpReturnValue: %v", err)
	}
	if stack.Depth() != 1 {
		t.Fatalf("expected callee frame popped, depth=%d", stack.Depth())
	}

	dd, ok := manager.Global().At(20)
	if !ok {
		t.Fatalf("call result not installed in caller's view")
	}
	v, _ := dd.Value()
	if v.Print(d.Arena, 0) != "5" {
		t.Fatalf("expected 5, got %s", v.Print(d.Arena, 0))
	}
}

func TestDynamicKillDrainsStack(t *testing.T) {
	d, _, manager := newDynamic()
	stack := frame.NewStack()
	stack.Push(frame.New(0, nil, 0, manager.Global()))
	stack.Push(frame.New(0, nil, 0, manager.MakeView(manager.Global())))

	sig, err := Execute(d, stack, instr(0, OpKill))
	if err != nil {
		t.Fatalf("OpKill: %v", err)
	}
	if sig.Kind != SigKill || !stack.Empty() {
		t.Fatalf("expected drained stack, depth=%d", stack.Depth())
	}
}
