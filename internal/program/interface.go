package program

import (
	"spirvm/internal/data"
	"spirvm/internal/ifail"
	"spirvm/internal/instruction"
	"spirvm/internal/token"
)

// EntryPoints returns every OpEntryPoint-declared entry point in the
// module, in declaration order, resolved against the global data view
// (spec §4.2: OpEntryPoint's deferred decoration promotes a Function to an
// EntryPoint once decoration.Queue.Apply has run as part of Load).
func (p *Program) EntryPoints() ([]*data.EntryPoint, error) {
	var eps []*data.EntryPoint
	seen := make(map[uint32]bool)
	for _, instr := range p.Instructions {
		if instruction.Op(instr.Opcode) != instruction.OpEntryPoint {
			continue
		}
		r := token.NewReader(instr.Operands)
		if _, err := r.Uint(); err != nil { // execution model, not modeled (spec §9 open question)
			return nil, err
		}
		target, err := r.Ref()
		if err != nil {
			return nil, err
		}
		if seen[target.Ref] {
			continue
		}
		seen[target.Ref] = true
		d, ok := p.Manager.Global().At(target.Ref)
		if !ok {
			return nil, ifail.New(ifail.ReferenceOutOfRange, "entry point %%%d is undefined", target.Ref)
		}
		ep, ok := d.EntryPoint()
		if !ok {
			return nil, ifail.New(ifail.TypeMismatch, "entry point %%%d was not promoted to an EntryPoint", target.Ref)
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

// SelectEntryPoint resolves name to one of the module's entry points. An
// empty name requires the module to carry exactly one, matching the CLI's
// single-dispatch contract: spec §6.3 names no flag to pick among several,
// so a multi-entry-point module must be disambiguated by name.
func (p *Program) SelectEntryPoint(name string) (*data.EntryPoint, error) {
	eps, err := p.EntryPoints()
	if err != nil {
		return nil, err
	}
	if len(eps) == 0 {
		return nil, ifail.New(ifail.MalformedOperands, "module declares no entry points")
	}
	if name == "" {
		if len(eps) > 1 {
			return nil, ifail.New(ifail.MalformedOperands, "module declares %d entry points; name one explicitly", len(eps))
		}
		return eps[0], nil
	}
	for _, ep := range eps {
		if ep.Name == name {
			return ep, nil
		}
	}
	return nil, ifail.New(ifail.MalformedOperands, "no entry point named %q", name)
}

// Direction classifies one interface variable for binding purposes.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
	DirSpecConstant
)

// InterfaceVar names one binding point on the selected entry point: the
// variable's SSA id, its resolved *data.Variable, and which direction it
// binds in.
type InterfaceVar struct {
	ID  uint32
	Var *data.Variable
	Dir Direction
}

// Interface walks the module's instruction list a second time (spec §4.3:
// "after the static pass, iterate the instruction list once more"),
// collecting every OpVariable whose storage class makes it part of the
// selected entry point's external contract: Input and Output bind through
// the CLI's input/output files; UniformConstant and PushConstant bind
// acceleration structures and specialization constants respectively.
//
// Every module-scope OpVariable is considered part of the interface — this
// interpreter has no descriptor-set/binding filtering to scope a variable
// to one entry point only when a module declares several, matching
// SelectEntryPoint's single-entry-point assumption.
func (p *Program) Interface() ([]InterfaceVar, error) {
	var out []InterfaceVar
	seen := make(map[uint32]bool)
	for _, instr := range p.Instructions {
		if instruction.Op(instr.Opcode) != instruction.OpVariable {
			continue
		}
		r := token.NewReader(instr.Operands)
		if _, err := r.Ref(); err != nil { // result type
			return nil, err
		}
		id, err := r.Ref()
		if err != nil {
			return nil, err
		}
		if seen[id.Ref] {
			continue
		}
		seen[id.Ref] = true

		d, ok := p.Manager.Global().At(id.Ref)
		if !ok {
			continue
		}
		v, ok := d.Variable()
		if !ok {
			continue
		}

		switch {
		case v.SpecConst:
			out = append(out, InterfaceVar{ID: id.Ref, Var: v, Dir: DirSpecConstant})
		case v.Storage == data.StorageInput:
			out = append(out, InterfaceVar{ID: id.Ref, Var: v, Dir: DirInput})
		case v.Storage == data.StorageOutput:
			out = append(out, InterfaceVar{ID: id.Ref, Var: v, Dir: DirOutput})
		case v.Storage == data.StorageUniformConstant, v.Storage == data.StorageUniform:
			// Acceleration structures, images, samplers: read-only module
			// input bound the same way ordinary Input variables are (spec
			// §6.2 makes no format distinction between them).
			out = append(out, InterfaceVar{ID: id.Ref, Var: v, Dir: DirInput})
		}
	}
	return out, nil
}

// SynName synthesizes the "@locationN"/"@bindingN" fallback name spec
// §6.2 matches against when a variable carries no OpName. Location takes
// priority over a descriptor binding when a variable (unusually) has both.
func (iv InterfaceVar) SynName() string {
	if loc, ok := iv.Var.Location(); ok {
		return synLocation(loc)
	}
	if set, ok := iv.Var.DescriptorSet(); ok {
		return synBinding(set)
	}
	return ""
}
