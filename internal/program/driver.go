package program

import (
	"spirvm/internal/config"
	"spirvm/internal/data"
	"spirvm/internal/frame"
	"spirvm/internal/ifail"
	"spirvm/internal/instruction"
	"spirvm/internal/trace"
)

// invocationCount derives the shader's invocation count from the selected
// entry point's local workgroup size (spec §5: "local workgroup size in the
// simplest case"). A size of zero on every axis means the entry point
// never declared LocalSize (e.g. a ray-generation shader), which runs as a
// single invocation.
func invocationCount(ep *data.EntryPoint) int {
	n := int(ep.SizeX) * int(ep.SizeY) * int(ep.SizeZ)
	if n == 0 {
		return 1
	}
	return n
}

// Run drives ep to completion: one Frame per invocation, chained off the
// program's global data view, executed by the cooperative round-robin
// scheduler spec §5 describes. cfg gates GLSL.std.450 feature availability
// and is threaded straight through to instruction.Dynamic; Dynamic.DebugOut
// is left nil, so NonSemantic.DebugPrintf output is discarded. Each
// invocation keeps one Dynamic for the whole run, so ray-query state set by
// one instruction is still there for the next; its Peers is refreshed
// before every dispatch.
//
// Grounded in internal/instruction/raytrace.go's runSubstage, which already
// implements this Execute/Signal contract for exactly one frame's lifetime;
// Run generalizes it to N independently-scheduled invocations with
// OpControlBarrier synchronization layered on top.
func (p *Program) Run(ep *data.EntryPoint, cfg config.Config) error {
	n := invocationCount(ep)

	stacks := make([]*frame.Stack, n)
	views := make([]*data.View, n)
	dyns := make([]*instruction.Dynamic, n)
	for i := 0; i < n; i++ {
		view := p.Manager.MakeView(p.Manager.Global())
		views[i] = view
		stack := frame.NewStack()
		stack.Push(frame.New(int(ep.Function.Location)+1, nil, 0, view))
		stacks[i] = stack
		dyns[i] = &instruction.Dynamic{Arena: p.Arena, Manager: p.Manager, Config: cfg, Instructions: p.Instructions, Invocation: i, NumInvocations: n}
	}

	done := make([]bool, n)
	blocked := make([]bool, n)
	remaining := n

	for remaining > 0 {
		progressed := false

		for i := 0; i < n; i++ {
			if done[i] || blocked[i] {
				continue
			}
			stack := stacks[i]
			issuer, ok := stack.Top()
			if !ok {
				done[i] = true
				remaining--
				continue
			}

			span := trace.Begin(p.Tracer, trace.ScopeNode, "step", 0)
			pc := issuer.PC()
			if pc < 0 || pc >= len(p.Instructions) {
				span.End("")
				return ifail.New(ifail.ReferenceOutOfRange, "program counter %d out of range", pc)
			}

			d := dyns[i]
			d.Peers = peerViews(stacks)

			sig, err := instruction.Execute(d, stack, p.Instructions[pc])
			span.End("")
			if err != nil {
				return err
			}

			switch sig.Kind {
			case instruction.SigNext, instruction.SigCall:
				if err := issuer.IncPC(); err != nil {
					return err
				}
			case instruction.SigBlocked:
				blocked[i] = true
				continue
			case instruction.SigKill:
				done[i] = true
				remaining--
				continue
			}
			// SigJump: the branch already set the frame's PC.
			// SigReturn: the caller's PC was already advanced when the call
			// was issued; if the stack is now empty this invocation is done.
			if stack.Empty() {
				done[i] = true
				remaining--
				continue
			}
			progressed = true
		}

		if allBlocked(done, blocked) {
			for i := range blocked {
				blocked[i] = false
			}
			progressed = true
		}

		if !progressed && remaining > 0 {
			return ifail.New(ifail.SubstageContract, "scheduler deadlocked: no invocation made progress")
		}
	}

	return nil
}

// peerViews snapshots every still-live invocation's current top-frame view,
// indexed by invocation number, for cooperative-matrix cross-invocation
// lookups (spec §4.4). A finished invocation's slot is nil; CoopMatrix ops
// never address a slice owned by an invocation that has already exited.
func peerViews(stacks []*frame.Stack) []*data.View {
	peers := make([]*data.View, len(stacks))
	for i, stack := range stacks {
		if f, ok := stack.Top(); ok {
			peers[i] = f.View
		}
	}
	return peers
}

// allBlocked reports whether every invocation that hasn't already finished
// is currently waiting at a control barrier — the release condition for
// OpControlBarrier (spec §5: "until all peers are also blocked, at which
// point all are unblocked simultaneously").
func allBlocked(done, blocked []bool) bool {
	any := false
	for i := range done {
		if done[i] {
			continue
		}
		if !blocked[i] {
			return false
		}
		any = true
	}
	return any
}
