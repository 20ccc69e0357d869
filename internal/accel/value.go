package accel

import (
	"fmt"

	"spirvm/internal/types"
	"spirvm/internal/value"
)

// StructValue is the AccelStruct runtime value: a loaded BVH plus whatever
// trace is currently active against it. It lives in internal/accel (not
// internal/value) so the BVH/traversal types it wraps don't have to be
// visible from the value package, while still satisfying value.Value so it
// can sit in any DataView slot or Struct field like any other value.
//
// Grounded in original_source/src/values/raytrace/accel-struct.cxx's
// AccelStruct.
type StructValue struct {
	id    types.TypeID
	BVH   *BVH
	Trace *State
}

func NewAccelStruct(id types.TypeID) *StructValue {
	return &StructValue{id: id}
}

func (s *StructValue) TypeID() types.TypeID { return s.id }
func (s *StructValue) IsNested() bool       { return false }

// Clone shares the BVH (a loaded acceleration structure is immutable input
// data) but gives the trace state its own copy, matching the original's
// ownNodes=false default for structs copied from another.
func (s *StructValue) Clone() value.Value {
	clone := &StructValue{id: s.id, BVH: s.BVH}
	if s.Trace != nil {
		t := *s.Trace
		t.Candidates = append([]Intersection(nil), s.Trace.Candidates...)
		clone.Trace = &t
	}
	return clone
}

func (s *StructValue) CopyFrom(arena *types.Arena, other value.Value) error {
	op, ok := other.(*StructValue)
	if !ok {
		// Struct/AccelStruct types are copy-compatible per types.Equal's
		// structAccelCompatible exception (spec §3.1), but a plain Struct
		// value has no BVH to adopt, so there is nothing meaningful to do.
		return fmt.Errorf("%w: cannot copy a non-AccelStruct into an AccelStruct", value.ErrTypeMismatch)
	}
	s.BVH = op.BVH
	s.Trace = nil
	return nil
}

func (s *StructValue) Equals(arena *types.Arena, other value.Value) bool {
	op, ok := other.(*StructValue)
	return ok && s.BVH == op.BVH
}

func (s *StructValue) Print(arena *types.Arena, indent int) string {
	if s.BVH == nil {
		return "accelStruct(<empty>)"
	}
	return fmt.Sprintf("accelStruct(nodes=%d)", len(s.BVH.Nodes))
}

// RayQueryValue is the RayQuery runtime value: a named, explicitly
// stepped trace a shader drives by OpRayQueryProceedKHR (spec §5), as
// opposed to the implicit OpTraceRayKHR substage protocol.
//
// Grounded in original_source/src/values/raytrace/ray-query.cxx's RayQuery.
type RayQueryValue struct {
	id    types.TypeID
	As    *StructValue
	Trace *State
}

func NewRayQuery(id types.TypeID) *RayQueryValue {
	return &RayQueryValue{id: id}
}

func (r *RayQueryValue) TypeID() types.TypeID { return r.id }
func (r *RayQueryValue) IsNested() bool       { return false }

func (r *RayQueryValue) Clone() value.Value {
	clone := &RayQueryValue{id: r.id, As: r.As}
	if r.Trace != nil {
		t := *r.Trace
		t.Candidates = append([]Intersection(nil), r.Trace.Candidates...)
		clone.Trace = &t
	}
	return clone
}

func (r *RayQueryValue) CopyFrom(arena *types.Arena, other value.Value) error {
	return fmt.Errorf("%w: ray queries are not copy-assignable", value.ErrTypeMismatch)
}

func (r *RayQueryValue) Equals(arena *types.Arena, other value.Value) bool {
	op, ok := other.(*RayQueryValue)
	return ok && r == op
}

func (r *RayQueryValue) Print(arena *types.Arena, indent int) string {
	if r.Trace == nil {
		return "rayQuery(<uninitialized>)"
	}
	return fmt.Sprintf("rayQuery(candidates=%d, committed=%d)", len(r.Trace.Candidates), r.Trace.Committed)
}
