// Package program is the program orchestrator (spec §2, §4.2-§4.4): it
// decodes a SPIR-V module, runs the static pass, extracts the selected
// entry point's interface, binds caller-supplied inputs, and drives the
// cooperative per-invocation scheduler to completion.
//
// Grounded in the teacher's internal/driver package (Project/Tokenize/Parse
// as the single place that strings every compiler phase together) and,
// closer to home, internal/instruction/raytrace.go's runSubstage, which
// already implements the Execute/Signal driver-loop contract this package
// generalizes to the top-level, multi-invocation case.
package program

import (
	"spirvm/internal/cache"
	"spirvm/internal/data"
	"spirvm/internal/ifail"
	"spirvm/internal/instruction"
	"spirvm/internal/token"
	"spirvm/internal/trace"
	"spirvm/internal/types"
)

// Program is a decoded, statically-resolved SPIR-V module: the type arena
// and global data view every invocation's own view chains off, and the
// flat, pc-indexed instruction stream the dynamic dispatcher walks.
type Program struct {
	Header       token.Header
	Instructions []token.Instruction
	Arena        *types.Arena
	Manager      *data.Manager
	Tracer       trace.Tracer
}

// Load decodes raw bytes and runs the static pass (spec §4.2), populating
// the global data view with every type, constant, function, label, and
// variable the module defines. c may be nil to skip the decode cache;
// tr may be nil to skip tracing entirely.
func Load(raw []byte, c *cache.Cache, tr trace.Tracer) (*Program, error) {
	if tr == nil {
		tr = trace.Nop
	}

	decodeSpan := trace.Begin(tr, trace.ScopePass, "decode", 0)
	decoded, err := decodeModule(raw, c)
	decodeSpan.End("")
	if err != nil {
		return nil, ifail.Wrap(ifail.InvalidBinary, err, "decoding module")
	}

	arena := types.NewArena()
	manager := data.NewManager(decoded.Header.Bound)
	s := instruction.NewStatic(arena, manager.Global())

	staticSpan := trace.Begin(tr, trace.ScopePass, "static-pass", 0)
	err = instruction.RunStaticPass(s, decoded.Instructions)
	staticSpan.End("")
	if err != nil {
		return nil, err
	}

	return &Program{
		Header:       decoded.Header,
		Instructions: decoded.Instructions,
		Arena:        arena,
		Manager:      manager,
		Tracer:       tr,
	}, nil
}

// decodeModule runs the word-level decoder (internal/token) and, when c is
// non-nil, memoizes its output by content hash (spec §4.10). The decode
// cache never sees the static pass's output — only the header and
// instruction stream, both immutable once produced.
func decodeModule(raw []byte, c *cache.Cache) (*cache.Decoded, error) {
	decodeFn := func() (*cache.Decoded, error) {
		order, err := token.DetectOrder(raw)
		if err != nil {
			return nil, err
		}
		words, err := token.Words(raw, order)
		if err != nil {
			return nil, err
		}
		header, err := token.ParseHeader(words)
		if err != nil {
			return nil, err
		}
		instrs, err := token.Split(words[5:])
		if err != nil {
			return nil, err
		}
		return &cache.Decoded{Header: header, Instructions: instrs}, nil
	}
	if c == nil {
		return decodeFn()
	}
	return c.GetOrDecode(cache.HashBytes(raw), decodeFn)
}
