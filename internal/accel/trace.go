package accel

import "math"

// IntersectionKind tags what a candidate intersection represents.
type IntersectionKind int

const (
	IntersectionNone IntersectionKind = iota
	IntersectionTriangle
	IntersectionGenerated
	IntersectionAABB
)

// Intersection is one candidate hit recorded during traversal: a triangle
// hit, a procedural (AABB) hit pending the intersection shader's verdict,
// or an already-committed ("generated") hit a substage reported back.
//
// Grounded in original_source/src/values/raytrace/trace.hpp's Intersection.
type Intersection struct {
	Kind IntersectionKind

	RayOrigin, RayDirection [4]float32

	Instance       Handle
	GeometryIndex  int
	PrimitiveIndex int
	HitT           float32
	Barycentrics   [2]float32
	IsOpaque       bool
	EnteredFrontFace bool
	HitKind        uint32
	HitAttribute   any // value.Value, kept untyped here to avoid an accel->value dependency cycle risk
}

// NoCandidate is the "no intersection selected" sentinel for Committed.
const NoCandidate = -1

// State is one trace's full traversal state: its candidate queue, which
// candidate is under consideration, which (if any) has been committed, and
// the ray/shader-binding-table parameters that seeded the trace.
//
// Grounded in trace.hpp's Trace struct. Invariant (spec §3.4): Committed
// either names a candidate tagged Triangle-Generated or AABB-Generated, or
// is NoCandidate; RayTMax only ever decreases as commits occur;
// Candidates[0] is always the TLAS root.
type State struct {
	Active     bool
	Candidates []Intersection
	Candidate  int // index of the next candidate to consider
	Committed  int // index of the best intersection so far, or NoCandidate

	CullMask           uint32
	RayTMin, RayTMax   float32
	SkipClosestHit     bool
	SkipMiss           bool
	CullOpaque         bool
	CullNonOpaque      bool
	TerminateOnFirstHit bool

	UseSBT      bool
	OffsetSBT   uint32
	StrideSBT   uint32
	MissIndex   uint32
}

// NewState begins a trace seeded with the BVH root as candidate 0, per the
// "candidates[0] is always the TLAS root" invariant.
func NewState(root Handle, tMin, tMax float32) *State {
	return &State{
		Active:    true,
		Candidates: []Intersection{{Kind: IntersectionAABB, Instance: root, HitT: tMax}},
		Committed: NoCandidate,
		RayTMin:   tMin,
		RayTMax:   tMax,
	}
}

func (s *State) CurrentCandidate() (*Intersection, bool) {
	if s.Candidate < 0 || s.Candidate >= len(s.Candidates) {
		return nil, false
	}
	return &s.Candidates[s.Candidate], true
}

func (s *State) CommittedIntersection() (*Intersection, bool) {
	if s.Committed == NoCandidate {
		return nil, false
	}
	return &s.Candidates[s.Committed], true
}

// Commit records candidateIdx as the new best intersection, shrinking
// RayTMax to its hitT — maintaining the "RayTMax monotonically decreases"
// invariant.
func (s *State) Commit(candidateIdx int) {
	s.Committed = candidateIdx
	if t := s.Candidates[candidateIdx].HitT; t < s.RayTMax {
		s.RayTMax = t
	}
}

// Push appends a fresh candidate discovered while descending the BVH
// (a box node's children, or a leaf geometry node).
func (s *State) Push(i Intersection) int {
	s.Candidates = append(s.Candidates, i)
	return len(s.Candidates) - 1
}

// Done reports whether traversal has exhausted every candidate.
func (s *State) Done() bool {
	return s.Candidate >= len(s.Candidates)
}

// Advance moves to the next candidate in the queue.
func (s *State) Advance() {
	s.Candidate++
}

// floatMax is the ray-tracing "unbounded" tMax sentinel.
const floatMax = float32(math.MaxFloat32)
