package program

import (
	"math"
	"testing"

	"spirvm/internal/config"
	"spirvm/internal/data"
	"spirvm/internal/instruction"
	"spirvm/internal/ioformat"
	"spirvm/internal/token"
	"spirvm/internal/trace"
	"spirvm/internal/types"
)

// mk builds a token.Instruction the same way internal/instruction's own
// test fixtures do: index must equal the instruction's position in the
// slice, since Program.Run indexes straight into Instructions by pc.
func mk(index int, op instruction.Op, words ...uint32) token.Instruction {
	return token.Instruction{Index: index, Opcode: uint16(op), Operands: words}
}

// buildProgram runs the static pass over instrs directly, the same way
// internal/instruction's tests do, skipping internal/token's binary decode
// (exercised separately by the decoder's own tests) so these fixtures read
// as plain instruction lists.
func buildProgram(t *testing.T, instrs []token.Instruction) *Program {
	t.Helper()
	arena := types.NewArena()
	manager := data.NewManager(0)
	s := instruction.NewStatic(arena, manager.Global())
	if err := instruction.RunStaticPass(s, instrs); err != nil {
		t.Fatalf("static pass: %v", err)
	}
	return &Program{Arena: arena, Manager: manager, Instructions: instrs, Tracer: trace.Nop}
}

func strWord(s string) uint32 {
	var w uint32
	for i := 0; i < len(s) && i < 4; i++ {
		w |= uint32(s[i]) << (8 * uint(i))
	}
	return w
}

func f32(v float32) uint32 { return math.Float32bits(v) }

func TestEndToEndTrivialIdentity(t *testing.T) {
	instrs := []token.Instruction{
		mk(0, instruction.OpTypeFloat, 1, 32),
		mk(1, instruction.OpTypePointer, 2, 1, 1), // ptr(Input, float)
		mk(2, instruction.OpVariable, 2, 3, 1),    // x
		mk(3, instruction.OpName, 3, strWord("x")),
		mk(4, instruction.OpTypePointer, 4, 2, 1), // ptr(Output, float)
		mk(5, instruction.OpVariable, 4, 5, 2),    // y
		mk(6, instruction.OpName, 5, strWord("y")),
		mk(7, instruction.OpTypeVoid, 6),
		mk(8, instruction.OpTypeFunction, 7, 6),
		mk(9, instruction.OpEntryPoint, 6, 20, strWord("main"), 3, 5),
		mk(10, instruction.OpFunction, 6, 20, 0, 7),
		mk(11, instruction.OpLabel, 21),
		mk(12, instruction.OpLoad, 1, 22, 3),
		mk(13, instruction.OpStore, 5, 22),
		mk(14, instruction.OpReturn),
	}
	p := buildProgram(t, instrs)

	ep, err := p.SelectEntryPoint("")
	if err != nil {
		t.Fatalf("SelectEntryPoint: %v", err)
	}
	ifaces, err := p.Interface()
	if err != nil {
		t.Fatalf("Interface: %v", err)
	}

	x := 3.5
	vm := ioformat.ValueMap{"x": {Float: &x}}
	if err := BindInputs(p.Arena, ifaces, vm, false); err != nil {
		t.Fatalf("BindInputs: %v", err)
	}
	if err := p.Run(ep, config.Defaults()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out, err := Outputs(p.Arena, ifaces)
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	y, ok := out["y"]
	if !ok || y.Float == nil || *y.Float != 3.5 {
		t.Fatalf("expected y=3.5, got %+v ok=%v", y, ok)
	}
}

func TestEndToEndVectorAdd(t *testing.T) {
	instrs := []token.Instruction{
		mk(0, instruction.OpTypeFloat, 1, 32),
		mk(1, instruction.OpTypeInt, 2, 32, 0),
		mk(2, instruction.OpConstant, 2, 3, 3), // array length 3
		mk(3, instruction.OpTypeArray, 4, 1, 3),
		mk(4, instruction.OpTypePointer, 5, 1, 4), // ptr(Input, array)
		mk(5, instruction.OpVariable, 5, 6, 1),    // a
		mk(6, instruction.OpName, 6, strWord("a")),
		mk(7, instruction.OpVariable, 5, 7, 1), // b
		mk(8, instruction.OpName, 7, strWord("b")),
		mk(9, instruction.OpTypePointer, 8, 2, 4), // ptr(Output, array)
		mk(10, instruction.OpVariable, 8, 9, 2),   // out
		mk(11, instruction.OpName, 9, strWord("out")),
		mk(12, instruction.OpTypeVoid, 10),
		mk(13, instruction.OpTypeFunction, 11, 10),
		mk(14, instruction.OpEntryPoint, 6, 30, strWord("main"), 6, 7, 9),
		mk(15, instruction.OpFunction, 10, 30, 0, 11),
		mk(16, instruction.OpLabel, 31),
		mk(17, instruction.OpLoad, 4, 32, 6),
		mk(18, instruction.OpLoad, 4, 33, 7),
		mk(19, instruction.OpCompositeExtract, 1, 34, 32, 0),
		mk(20, instruction.OpCompositeExtract, 1, 35, 33, 0),
		mk(21, instruction.OpFAdd, 1, 36, 34, 35),
		mk(22, instruction.OpCompositeExtract, 1, 37, 32, 1),
		mk(23, instruction.OpCompositeExtract, 1, 38, 33, 1),
		mk(24, instruction.OpFAdd, 1, 39, 37, 38),
		mk(25, instruction.OpCompositeExtract, 1, 40, 32, 2),
		mk(26, instruction.OpCompositeExtract, 1, 41, 33, 2),
		mk(27, instruction.OpFAdd, 1, 42, 40, 41),
		mk(28, instruction.OpCompositeConstruct, 4, 43, 36, 39, 42),
		mk(29, instruction.OpStore, 9, 43),
		mk(30, instruction.OpReturn),
	}
	p := buildProgram(t, instrs)

	ep, err := p.SelectEntryPoint("")
	if err != nil {
		t.Fatalf("SelectEntryPoint: %v", err)
	}
	ifaces, err := p.Interface()
	if err != nil {
		t.Fatalf("Interface: %v", err)
	}

	seqOf := func(vals ...float64) ioformat.Literal {
		seq := make([]ioformat.Literal, len(vals))
		for i, v := range vals {
			vv := v
			seq[i] = ioformat.Literal{Float: &vv}
		}
		return ioformat.Literal{Sequence: seq}
	}
	vm := ioformat.ValueMap{
		"a": seqOf(1.0, 2.0, 3.0),
		"b": seqOf(0.5, 0.5, 0.5),
	}
	if err := BindInputs(p.Arena, ifaces, vm, false); err != nil {
		t.Fatalf("BindInputs: %v", err)
	}
	if err := p.Run(ep, config.Defaults()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out, err := Outputs(p.Arena, ifaces)
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	want := []float64{1.5, 2.5, 3.5}
	got := out["out"]
	if len(got.Sequence) != 3 {
		t.Fatalf("expected 3-element output, got %+v", got)
	}
	for i, w := range want {
		if got.Sequence[i].Float == nil || math.Abs(*got.Sequence[i].Float-w) > 1e-6 {
			t.Fatalf("element %d: expected %v, got %+v", i, w, got.Sequence[i])
		}
	}
}

func buildBranchModule() []token.Instruction {
	return []token.Instruction{
		mk(0, instruction.OpTypeBool, 1),
		mk(1, instruction.OpTypePointer, 2, 1, 1), // ptr(Input, bool)
		mk(2, instruction.OpVariable, 2, 3, 1),    // cond
		mk(3, instruction.OpName, 3, strWord("cond")),
		mk(4, instruction.OpTypeInt, 4, 32, 1),
		mk(5, instruction.OpTypePointer, 5, 2, 4), // ptr(Output, int)
		mk(6, instruction.OpVariable, 5, 6, 2),    // out
		mk(7, instruction.OpName, 6, strWord("out")),
		mk(8, instruction.OpConstant, 4, 7, 7),                  // 7
		mk(9, instruction.OpConstant, 4, 8, uint32(int32(-7))), // -7
		mk(10, instruction.OpTypeVoid, 9),
		mk(11, instruction.OpTypeFunction, 10, 9),
		mk(12, instruction.OpEntryPoint, 6, 50, strWord("main"), 3, 6),
		mk(13, instruction.OpFunction, 9, 50, 0, 10),
		mk(14, instruction.OpLabel, 51),
		mk(15, instruction.OpLoad, 1, 52, 3),
		mk(16, instruction.OpBranchConditional, 52, 60, 61),
		mk(17, instruction.OpLabel, 60),
		mk(18, instruction.OpStore, 6, 7),
		mk(19, instruction.OpBranch, 62),
		mk(20, instruction.OpLabel, 61),
		mk(21, instruction.OpStore, 6, 8),
		mk(22, instruction.OpBranch, 62),
		mk(23, instruction.OpLabel, 62),
		mk(24, instruction.OpReturn),
	}
}

func TestEndToEndBranchOnBool(t *testing.T) {
	cases := []struct {
		cond bool
		want int64
	}{
		{true, 7},
		{false, -7},
	}
	for _, tc := range cases {
		p := buildProgram(t, buildBranchModule())
		ep, err := p.SelectEntryPoint("")
		if err != nil {
			t.Fatalf("SelectEntryPoint: %v", err)
		}
		ifaces, err := p.Interface()
		if err != nil {
			t.Fatalf("Interface: %v", err)
		}
		cond := tc.cond
		vm := ioformat.ValueMap{"cond": {Bool: &cond}}
		if err := BindInputs(p.Arena, ifaces, vm, false); err != nil {
			t.Fatalf("BindInputs: %v", err)
		}
		if err := p.Run(ep, config.Defaults()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		out, err := Outputs(p.Arena, ifaces)
		if err != nil {
			t.Fatalf("Outputs: %v", err)
		}
		got := out["out"]
		if got.Int == nil || *got.Int != tc.want {
			t.Fatalf("cond=%v: expected %d, got %+v", tc.cond, tc.want, got)
		}
	}
}

func TestEndToEndRecursiveFactorial(t *testing.T) {
	instrs := []token.Instruction{
		mk(0, instruction.OpTypeInt, 1, 32, 1),
		mk(1, instruction.OpTypeBool, 5),
		mk(2, instruction.OpConstant, 1, 2, 1), // ONE
		mk(3, instruction.OpSpecConstant, 1, 3, 5), // N, default 5
		mk(4, instruction.OpTypeFunction, 4, 1, 1), // int(int)
		mk(5, instruction.OpFunction, 1, 10, 0, 4), // FACT
		mk(6, instruction.OpFunctionParameter, 1, 11),
		mk(7, instruction.OpLabel, 12),
		mk(8, instruction.OpSLessThanEqual, 5, 13, 11, 2),
		mk(9, instruction.OpBranchConditional, 13, 20, 21),
		mk(10, instruction.OpLabel, 20),
		mk(11, instruction.OpReturnValue, 2),
		mk(12, instruction.OpLabel, 21),
		mk(13, instruction.OpISub, 1, 14, 11, 2),
		mk(14, instruction.OpFunctionCall, 1, 15, 10, 14),
		mk(15, instruction.OpIMul, 1, 16, 11, 15),
		mk(16, instruction.OpReturnValue, 16),
		mk(17, instruction.OpTypeVoid, 6),
		mk(18, instruction.OpTypeFunction, 7, 6),
		mk(19, instruction.OpTypePointer, 8, 2, 1), // ptr(Output, int)
		mk(20, instruction.OpVariable, 8, 9, 2),    // out
		mk(21, instruction.OpName, 9, strWord("out")),
		mk(22, instruction.OpEntryPoint, 6, 30, strWord("main"), 9),
		mk(23, instruction.OpFunction, 6, 30, 0, 7),
		mk(24, instruction.OpLabel, 31),
		mk(25, instruction.OpLoad, 1, 32, 3),
		mk(26, instruction.OpFunctionCall, 1, 33, 10, 32),
		mk(27, instruction.OpStore, 9, 33),
		mk(28, instruction.OpReturn),
	}
	p := buildProgram(t, instrs)

	ep, err := p.SelectEntryPoint("")
	if err != nil {
		t.Fatalf("SelectEntryPoint: %v", err)
	}
	ifaces, err := p.Interface()
	if err != nil {
		t.Fatalf("Interface: %v", err)
	}
	if err := BindInputs(p.Arena, ifaces, ioformat.ValueMap{}, true); err != nil {
		t.Fatalf("BindInputs: %v", err)
	}
	if err := p.Run(ep, config.Defaults()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out, err := Outputs(p.Arena, ifaces)
	if err != nil {
		t.Fatalf("Outputs: %v", err)
	}
	got := out["out"]
	if got.Int == nil || *got.Int != 120 {
		t.Fatalf("expected factorial(5)=120, got %+v", got)
	}
}
