// Package decoration implements the deferred decoration queue: OpName,
// OpMemberName, OpEntryPoint, OpExecutionMode(Id), OpDecorate, and
// OpMemberDecorate may name a target id the decoder has not reached yet (a
// function is often decorated before it is defined), so the decoder
// enqueues them and the program orchestrator (internal/program) applies the
// whole queue once every id in the module is resolvable.
//
// Grounded in original_source/src/spv/instructions.cxx's
// isDecoration()/applyDecoration() pair: those run inline during a single
// decode pass because the original resizes `data` eagerly; we decouple
// decode from apply with an explicit queue instead, since our data.Manager
// only creates ids as it encounters their defining instruction.
package decoration

import (
	"fmt"

	"spirvm/internal/data"
	"spirvm/internal/types"
)

// Op names which deferred decoration an Entry carries.
type Op int

const (
	OpName Op = iota
	OpMemberName
	OpEntryPointDecl
	OpExecutionMode
	OpDecorate
	OpMemberDecorate
)

// Entry is one deferred decoration instruction, operands unpacked by the
// decoder (internal/token) and stashed until Apply time.
type Entry struct {
	Op       Op
	Target   uint32
	Member   uint32 // valid for OpMemberName/OpMemberDecorate
	Decor    string // decoration name (e.g. "Location", "DescriptorSet", "BuiltIn")
	Name     string // OpName/OpMemberName string operand
	Operands []uint32
}

// Queue accumulates decoration entries in encounter order, and Apply
// processes them strictly in Enqueue order, so when two entries set the
// same field of one target (e.g. two Location decorations) the later wins.
type Queue struct {
	entries []Entry
}

func (q *Queue) Enqueue(e Entry) {
	q.entries = append(q.entries, e)
}

func (q *Queue) Len() int { return len(q.entries) }

// Apply walks the queue in order, resolving each target against view and
// mutating the Variable/Function/EntryPoint it finds there.
//
// Unhandled decoration names are not an error (spec §3.4 treats unrecognized
// decorations as informational metadata the interpreter may ignore), and
// neither is an OpDecorate on a target that is not a Variable. An OpName
// whose target is not a Variable, Function or EntryPoint is an error,
// matching the original's "Name decoration only legal for variables and
// functions!".
func (q *Queue) Apply(view *data.View, arena *types.Arena) error {
	for _, e := range q.entries {
		if err := applyOne(view, arena, e); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(view *data.View, arena *types.Arena, e Entry) error {
	switch e.Op {
	case OpName:
		return applyName(view, e)
	case OpMemberName:
		return applyMemberName(view, arena, e)
	case OpDecorate:
		return applyDecorate(view, e)
	case OpMemberDecorate:
		// Member decorations (Offset, ColMajor, MatrixStride, ...) describe
		// struct layout, which this interpreter does not model explicitly
		// (spec Non-goals exclude executable codegen / memory layout); the
		// entry is accepted but has no observable effect.
		return nil
	case OpExecutionMode:
		return applyExecutionMode(view, e)
	case OpEntryPointDecl:
		return applyEntryPointName(view, e)
	default:
		return fmt.Errorf("decoration: unknown op %d", e.Op)
	}
}

func applyName(view *data.View, e Entry) error {
	d, ok := view.At(e.Target)
	if !ok {
		return fmt.Errorf("decoration: OpName target %%%d is undefined", e.Target)
	}
	if v, ok := d.Variable(); ok {
		v.Name = e.Name
		return nil
	}
	if f, ok := d.Function(); ok {
		f.Name = e.Name
		return nil
	}
	if ep, ok := d.EntryPoint(); ok {
		ep.Name = e.Name
		return nil
	}
	return fmt.Errorf("decoration: name decoration only legal for variables and functions (id %%%d)", e.Target)
}

// applyEntryPointName promotes the target's Function to an EntryPoint (if it
// isn't one already) and sets its name. OpEntryPoint instructions precede the
// OpFunction they reference in a module's word order, so the target is
// always a plain Function by the time decode reaches it; promotion has to
// wait for Apply time, same as every other deferred decoration.
func applyEntryPointName(view *data.View, e Entry) error {
	d, ok := view.At(e.Target)
	if !ok {
		return fmt.Errorf("decoration: OpEntryPoint target %%%d is undefined", e.Target)
	}
	if ep, ok := d.EntryPoint(); ok {
		ep.Name = e.Name
		return nil
	}
	f, ok := d.Function()
	if !ok {
		return fmt.Errorf("decoration: OpEntryPoint target %%%d is not a function", e.Target)
	}
	ep := &data.EntryPoint{Function: *f}
	ep.Name = e.Name
	view.Define(e.Target, data.OfEntryPoint(ep))
	return nil
}

func applyMemberName(view *data.View, arena *types.Arena, e Entry) error {
	d, ok := view.At(e.Target)
	if !ok {
		return fmt.Errorf("decoration: OpMemberName target %%%d is undefined", e.Target)
	}
	tid, ok := d.Type()
	if !ok {
		return fmt.Errorf("decoration: OpMemberName target %%%d is not a type", e.Target)
	}
	arena.SetFieldName(tid, int(e.Member), e.Name)
	return nil
}

func applyExecutionMode(view *data.View, e Entry) error {
	d, ok := view.At(e.Target)
	if !ok {
		return fmt.Errorf("decoration: OpExecutionMode target %%%d is undefined", e.Target)
	}
	ep, ok := d.EntryPoint()
	if !ok {
		return fmt.Errorf("decoration: OpExecutionMode target %%%d is not an entry point", e.Target)
	}
	switch e.Decor {
	case "LocalSize":
		if len(e.Operands) != 3 {
			return fmt.Errorf("decoration: LocalSize expects 3 operands, got %d", len(e.Operands))
		}
		ep.SizeX, ep.SizeY, ep.SizeZ = e.Operands[0], e.Operands[1], e.Operands[2]
	}
	return nil
}

func applyDecorate(view *data.View, e Entry) error {
	d, ok := view.At(e.Target)
	if !ok {
		return fmt.Errorf("decoration: OpDecorate target %%%d is undefined", e.Target)
	}
	v, ok := d.Variable()
	if !ok {
		// Decorations on non-variables (e.g. RelaxedPrecision on a value id)
		// are accepted but not modeled.
		return nil
	}
	switch e.Decor {
	case "Location":
		if len(e.Operands) != 1 {
			return fmt.Errorf("decoration: Location expects 1 operand")
		}
		v.SetLocation(e.Operands[0])
	case "Binding", "DescriptorSet":
		if len(e.Operands) != 1 {
			return fmt.Errorf("decoration: %s expects 1 operand", e.Decor)
		}
		v.SetDescriptorSet(e.Operands[0])
	case "NonWritable":
		v.NonWritable = true
	case "BuiltIn":
		if len(e.Operands) != 1 {
			return fmt.Errorf("decoration: BuiltIn expects 1 operand")
		}
		v.BuiltIn = builtInName(e.Operands[0])
	}
	return nil
}
