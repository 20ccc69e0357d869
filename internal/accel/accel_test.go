package accel

import "testing"

func TestRefResolveIntoPartitions(t *testing.T) {
	boxes, instances, geoms := 2, 3, 4
	if got := (Ref{Major: 1, Minor: 1}).Resolve(boxes, instances, geoms); got != Handle(1) {
		t.Fatalf("expected box handle 1, got %d", got)
	}
	if got := (Ref{Major: 2, Minor: 0}).Resolve(boxes, instances, geoms); got != Handle(boxes) {
		t.Fatalf("expected instance handle %d, got %d", boxes, got)
	}
	if got := (Ref{Major: 3, Minor: 2}).Resolve(boxes, instances, geoms); got != Handle(boxes+instances+2) {
		t.Fatalf("expected geometry handle %d, got %d", boxes+instances+2, got)
	}
}

func TestRefResolveOutOfRangeIsNoHandle(t *testing.T) {
	if got := (Ref{Major: 1, Minor: 5}).Resolve(2, 0, 0); got != NoHandle {
		t.Fatalf("expected NoHandle for out-of-range minor, got %d", got)
	}
}

func TestRootIsFirstBoxNode(t *testing.T) {
	bvh := &BVH{Nodes: make([]Node, 3), BoxCount: 1, InstanceCount: 1, GeometryCount: 1}
	if bvh.Root() != Handle(0) {
		t.Fatalf("expected root handle 0, got %d", bvh.Root())
	}
}

func TestResolveAllFillsBoxChildren(t *testing.T) {
	bvh := &BVH{
		Nodes: []Node{
			{Kind: KindBox, Children: []Ref{{Major: 3, Minor: 0}, {Major: 3, Minor: 1}}},
			{Kind: KindTriangle},
			{Kind: KindTriangle},
		},
		BoxCount: 1, InstanceCount: 0, GeometryCount: 2,
	}
	bvh.ResolveAll()
	root, _ := bvh.At(bvh.Root())
	children := root.ResolvedChildren()
	if len(children) != 2 || children[0] != 1 || children[1] != 2 {
		t.Fatalf("unexpected resolved children: %v", children)
	}
}

func TestNewStateSeedsRootAsFirstCandidate(t *testing.T) {
	s := NewState(0, 0, 1000)
	if len(s.Candidates) != 1 || s.Candidates[0].Instance != 0 {
		t.Fatalf("expected first candidate to be the root")
	}
	if s.Committed != NoCandidate {
		t.Fatalf("expected no committed intersection initially")
	}
}

func TestCommitNeverIncreasesRayTMax(t *testing.T) {
	s := NewState(0, 0, 1000)
	idx := s.Push(Intersection{Kind: IntersectionTriangle, HitT: 5})
	s.Commit(idx)
	if s.RayTMax != 5 {
		t.Fatalf("expected RayTMax to shrink to 5, got %v", s.RayTMax)
	}
	idx2 := s.Push(Intersection{Kind: IntersectionTriangle, HitT: 50})
	s.Commit(idx2)
	if s.RayTMax > 5 {
		t.Fatalf("commit should never increase RayTMax, got %v", s.RayTMax)
	}
}

func TestStepBoxNodeEnqueuesChildren(t *testing.T) {
	bvh := &BVH{
		Nodes: []Node{
			{Kind: KindBox, Children: []Ref{{Major: 3, Minor: 0}}},
			{Kind: KindTriangle, Vertices: [3]Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Opaque: true},
		},
		BoxCount: 1, InstanceCount: 0, GeometryCount: 1,
	}
	bvh.ResolveAll()
	s := NewState(bvh.Root(), 0, 1000)
	ray := Ray{Origin: [3]float32{0.25, 0.25, -1}, Direction: [3]float32{0, 0, 1}}
	if err := bvh.Step(ray, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Candidates) != 2 {
		t.Fatalf("expected box step to enqueue its one child, got %d candidates", len(s.Candidates))
	}
}

func TestStepTriangleHitDetected(t *testing.T) {
	bvh := &BVH{
		Nodes: []Node{
			{Kind: KindTriangle, Vertices: [3]Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Opaque: true},
		},
		BoxCount: 0, InstanceCount: 0, GeometryCount: 1,
	}
	s := &State{Candidates: []Intersection{{Kind: IntersectionAABB, Instance: 0, HitT: 1000}}, Committed: NoCandidate, RayTMax: 1000}
	ray := Ray{Origin: [3]float32{0.25, 0.25, -1}, Direction: [3]float32{0, 0, 1}}
	if err := bvh.Step(ray, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Candidates) != 2 {
		t.Fatalf("expected a hit to be recorded as a new candidate, got %d total", len(s.Candidates))
	}
	if s.Candidates[1].Kind != IntersectionTriangle {
		t.Fatalf("expected the recorded candidate to be a triangle hit")
	}
}

func TestStepTriangleMissProducesNoCandidate(t *testing.T) {
	bvh := &BVH{
		Nodes: []Node{
			{Kind: KindTriangle, Vertices: [3]Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Opaque: true},
		},
		GeometryCount: 1,
	}
	s := &State{Candidates: []Intersection{{Kind: IntersectionAABB, Instance: 0, HitT: 1000}}, Committed: NoCandidate, RayTMax: 1000}
	ray := Ray{Origin: [3]float32{10, 10, -1}, Direction: [3]float32{0, 0, 1}}
	if err := bvh.Step(ray, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Candidates) != 1 {
		t.Fatalf("expected no new candidate for a ray that misses, got %d total", len(s.Candidates))
	}
}
