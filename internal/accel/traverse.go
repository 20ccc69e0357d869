package accel

import "math"

// Ray is the origin/direction pair driving a trace, in world space.
type Ray struct {
	Origin, Direction [3]float32
}

// Step advances traversal by one candidate: expanding a box node into its
// children, an instance node into its single child (its own candidate,
// carried forward so InstanceHandle is known to later stages), or
// resolving a geometry leaf into a Triangle/AABB-Generated candidate.
//
// Grounded in node.hpp's Node::step (BoxNode/InstanceNode/TriangleNode/
// ProceduralNode each implement `step(Trace&)`); collapsed here into one
// switch over Kind rather than four virtual overrides, since Go favors a
// concrete dispatch table over a vtable for a closed, small node set.
func (b *BVH) Step(ray Ray, s *State) error {
	cand, ok := s.CurrentCandidate()
	if !ok {
		return nil
	}
	node, ok := b.At(cand.Instance)
	if !ok {
		s.Advance()
		return nil
	}

	switch node.Kind {
	case KindBox:
		for _, child := range node.ResolvedChildren() {
			if child == NoHandle {
				continue
			}
			s.Push(Intersection{Kind: IntersectionAABB, Instance: child, HitT: s.RayTMax})
		}
	case KindInstance:
		child := node.ResolvedChild()
		if child != NoHandle {
			s.Push(Intersection{Kind: IntersectionAABB, Instance: child, HitT: s.RayTMax})
		}
	case KindTriangle:
		if hit, t, bary, front := intersectTriangle(ray, node.Vertices, s.RayTMin, s.RayTMax); hit {
			s.Push(Intersection{
				Kind:             IntersectionTriangle,
				Instance:         cand.Instance,
				GeometryIndex:    int(node.GeomIndex),
				PrimitiveIndex:   int(node.PrimIndex),
				HitT:             t,
				Barycentrics:     bary,
				IsOpaque:         node.Opaque,
				EnteredFrontFace: front,
			})
		}
	case KindProcedural:
		if aabbHit(ray, node.MinBounds, node.MaxBounds, s.RayTMin, s.RayTMax) {
			s.Push(Intersection{
				Kind:           IntersectionAABB,
				Instance:       cand.Instance,
				GeometryIndex:  int(node.GeomIndex),
				PrimitiveIndex: int(node.PrimIndex),
				IsOpaque:       node.Opaque,
				HitT:           s.RayTMax,
			})
		}
	}
	s.Advance()
	return nil
}

// intersectTriangle implements the Möller-Trumbore ray/triangle test,
// matching the geometric contract original_source's TriangleNode::step
// relies on (GLM's intersectRayTriangle).
func intersectTriangle(ray Ray, v [3]Vec3, tMin, tMax float32) (hit bool, t float32, bary [2]float32, frontFace bool) {
	const eps = 1e-7

	e1 := sub(v[1], v[0])
	e2 := sub(v[2], v[0])
	pvec := cross(ray.Direction, e2)
	det := dot(e1, pvec)

	if absF(det) < eps {
		return false, 0, bary, false
	}
	frontFace = det > 0
	invDet := 1 / det

	tvec := sub(ray.Origin, v[0])
	u := dot(tvec, pvec) * invDet
	if u < 0 || u > 1 {
		return false, 0, bary, false
	}

	qvec := cross(tvec, e1)
	w := dot(ray.Direction, qvec) * invDet
	if w < 0 || u+w > 1 {
		return false, 0, bary, false
	}

	tHit := dot(e2, qvec) * invDet
	if tHit < tMin || tHit > tMax {
		return false, 0, bary, false
	}
	return true, tHit, [2]float32{u, w}, frontFace
}

func aabbHit(ray Ray, minB, maxB Vec3, tMin, tMax float32) bool {
	for i := 0; i < 3; i++ {
		if ray.Direction[i] == 0 {
			if ray.Origin[i] < minB[i] || ray.Origin[i] > maxB[i] {
				return false
			}
			continue
		}
		inv := 1 / ray.Direction[i]
		t0 := (minB[i] - ray.Origin[i]) * inv
		t1 := (maxB[i] - ray.Origin[i]) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return false
		}
	}
	return true
}

func sub(a, b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
func dot(a, b Vec3) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func absF(f float32) float32 {
	return float32(math.Abs(float64(f)))
}
