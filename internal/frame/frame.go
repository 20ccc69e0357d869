// Package frame implements the interpreter's call stack: one Frame per live
// function/substage activation, carrying a program counter, a scoped data
// view, the label-pair OpPhi needs, and the ray-tracing substage trigger
// state machine (spec §3.5, §5).
//
// Grounded in original_source/src/spv/frame.hpp's Frame and the teacher's
// internal/vm/frame.go (the activation-record idiom: a struct holding PC +
// locals + a back-reference to the callee, pushed/popped by a Stack).
package frame

import (
	"fmt"

	"spirvm/internal/data"
)

// RTStage names which ray-tracing substage, if any, triggered this frame's
// function call (spec §5's substage protocol).
type RTStage int

const (
	RTNone RTStage = iota
	RTAnyHit
	RTClosestHit
	RTIntersection
	RTMiss
	RTCallable
)

func (s RTStage) String() string {
	switch s {
	case RTAnyHit:
		return "any_hit"
	case RTClosestHit:
		return "closest_hit"
	case RTIntersection:
		return "intersection"
	case RTMiss:
		return "miss"
	case RTCallable:
		return "callable"
	default:
		return "none"
	}
}

// RTState holds the extra bookkeeping a ray-tracing substage frame carries
// beyond a plain function call: which trace triggered it, the candidate
// index within that trace, the payload/hit-attribute values being handed
// across the substage boundary, and a private data-view snapshot.
type RTState struct {
	Trigger      RTStage
	Index        uint32
	Result       any // *accel.State, set by the program orchestrator
	Payload      any // value.Value
	HitAttribute any // value.Value
	Data         *data.View
}

// Frame is one function/substage activation record.
//
// Grounded in frame.hpp's Frame: pc/curLabel/lastLabel/args/retAt/view/rt
// map directly; the teacher's BB+IP pair collapses into a single linear pc
// because our instruction stream (internal/token.Split) is already flat
// rather than basic-block structured.
type Frame struct {
	pc int

	// curLabel/lastLabel form the pair OpPhi consults: OpPhi may only read
	// lastLabel and only OpLabel may set curLabel (spec §3.5).
	curLabel  uint32
	lastLabel uint32

	args     []data.Data
	argCount int
	retAt    uint32

	View *data.View

	RT RTState
}

// New creates a frame beginning execution at pc, with args to be pulled one
// at a time by successive OpFunctionParameter instructions before any other
// instruction runs (spec §3.5), storing its result (if any) at retAt.
func New(pc int, args []data.Data, retAt uint32, view *data.View) *Frame {
	return &Frame{pc: pc, args: args, retAt: retAt, View: view}
}

func (f *Frame) PC() int { return f.pc }

// IncPC advances the program counter, refusing to do so while unconsumed
// function arguments remain (spec §3.5's parameter-pulling contract).
func (f *Frame) IncPC() error {
	if f.argCount < len(f.args) {
		return fmt.Errorf("frame: unused function argument(s)")
	}
	f.pc++
	return nil
}

// SetPC jumps the program counter directly (branches, calls), subject to
// the same unconsumed-argument guard as IncPC.
func (f *Frame) SetPC(pc int) error {
	if f.argCount < len(f.args) {
		return fmt.Errorf("frame: unused function argument(s)")
	}
	f.pc = pc
	return nil
}

// NextArg pulls the next function-call argument in order, consumed by
// successive OpFunctionParameter instructions.
func (f *Frame) NextArg() (data.Data, error) {
	if f.argCount >= len(f.args) {
		return data.Data{}, fmt.Errorf("frame: no more function arguments")
	}
	a := f.args[f.argCount]
	f.argCount++
	return a, nil
}

func (f *Frame) ReturnSlot() (uint32, bool) { return f.retAt, f.retAt != 0 }

// SetLabel records a new current label and shifts the old current label
// into lastLabel — OpPhi instructions resolve "which predecessor did we
// come from" by reading lastLabel (spec §3.5).
func (f *Frame) SetLabel(label uint32) {
	f.lastLabel = f.curLabel
	f.curLabel = label
}

func (f *Frame) LastLabel() uint32 { return f.lastLabel }
func (f *Frame) CurLabel() uint32  { return f.curLabel }

// TriggerRaytrace marks this frame as a ray-tracing substage invocation,
// per spec §5's launch protocol.
func (f *Frame) TriggerRaytrace(stage RTStage, index uint32, payload, hitAttribute any, view *data.View) {
	f.RT = RTState{Trigger: stage, Index: index, Payload: payload, HitAttribute: hitAttribute, Data: view}
}

func (f *Frame) DisableRaytrace() {
	f.RT = RTState{}
}

// IsCallableReturn reports whether this callable-substage frame is
// returning to its caller (as opposed to being freshly launched): a
// callable substage clears HitAttribute once it has delivered its result.
func (f *Frame) IsCallableReturn() bool {
	if f.RT.Trigger == RTNone {
		return false
	}
	return f.RT.HitAttribute == nil
}
