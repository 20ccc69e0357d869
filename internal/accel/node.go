// Package accel implements the acceleration structure (BVH) and its
// traversal state machine for the ray-tracing execution model (spec §5).
//
// Grounded in original_source/src/values/raytrace/node.hpp/.cxx (Node,
// NodeReference, BoxNode/InstanceNode/TriangleNode/ProceduralNode) and
// trace.hpp/.cxx (Intersection, Trace).
package accel

// Kind partitions a BVH's flat node array: box nodes first, then instance
// nodes, then geometry (triangle/procedural) nodes — spec §3.4's "flat node
// array partitioned [box|instance|triangle|procedural]".
type Kind int

const (
	KindBox Kind = iota
	KindInstance
	KindTriangle
	KindProcedural
)

// Ref is an unresolved (major, minor) node reference as decoded straight
// from the input: major selects which partition (0=no reference, 1=box, 2=instance,
// 3=triangle/procedural), minor is the index within that partition. Resolve
// turns it into a direct Handle once the whole BVH is loaded.
//
// Grounded in node.hpp's NodeReference.
type Ref struct {
	Major, Minor uint32
}

// Handle is a resolved, direct reference into a BVH's flat node array.
type Handle int

const NoHandle Handle = -1

// Resolve converts a (major, minor) reference into a direct Handle, given
// the starting offset of each partition within the flat array — box nodes
// start at 0, instance nodes at boxCount, geometry nodes at
// boxCount+instanceCount (spec §3.4).
func (r Ref) Resolve(boxCount, instanceCount, geometryCount int) Handle {
	switch r.Major {
	case 1:
		if int(r.Minor) >= boxCount {
			return NoHandle
		}
		return Handle(r.Minor)
	case 2:
		if int(r.Minor) >= instanceCount {
			return NoHandle
		}
		return Handle(boxCount + int(r.Minor))
	case 3:
		if int(r.Minor) >= geometryCount {
			return NoHandle
		}
		return Handle(boxCount + instanceCount + int(r.Minor))
	default:
		return NoHandle // major 0 means "no reference" (e.g. leaf box child slot left empty)
	}
}

// Vec3 is a plain 3-component float vector, used for node bounds.
type Vec3 [3]float32

// Node is one entry in a BVH's flat array: a bounding-box interior node, an
// instance (a transformed sub-BVH reference), or a piece of geometry
// (triangle or user-defined procedural primitive).
type Node struct {
	Kind Kind

	// Box fields.
	MinBounds, MaxBounds Vec3
	Children              []Ref
	resolvedChildren       []Handle

	// Instance fields.
	Child            Ref
	resolvedChild    Handle
	Transform        [4]Vec3 // column-major 4x3 affine transform
	InstanceID       uint32
	CustomIndex      uint32
	Mask             uint32
	SBTRecordOffset  uint32

	// Triangle fields.
	GeomIndex, PrimIndex uint32
	Opaque               bool
	Vertices             [3]Vec3

	// Procedural fields share MinBounds/MaxBounds/Opaque/GeomIndex/PrimIndex
	// with Box/Triangle above.
}

// ResolveChildren converts this node's Ref fields into direct Handles,
// given the partition boundaries of the owning BVH.
func (n *Node) ResolveChildren(boxCount, instanceCount, geometryCount int) {
	switch n.Kind {
	case KindBox:
		n.resolvedChildren = make([]Handle, len(n.Children))
		for i, c := range n.Children {
			n.resolvedChildren[i] = c.Resolve(boxCount, instanceCount, geometryCount)
		}
	case KindInstance:
		n.resolvedChild = n.Child.Resolve(boxCount, instanceCount, geometryCount)
	}
}

func (n *Node) ResolvedChild() Handle    { return n.resolvedChild }
func (n *Node) ResolvedChildren() []Handle { return n.resolvedChildren }

// BVH is a fully loaded, reference-resolved acceleration structure.
//
// Grounded in accel-struct.cxx's AccelStruct, flattened to a single slice
// partitioned [box|instance|triangle|procedural] per spec §3.4, with
// BoxCount/InstanceCount recording the partition boundaries ResolveAll uses.
type BVH struct {
	Nodes        []Node
	BoxCount     int
	InstanceCount int
	GeometryCount int
}

// ResolveAll resolves every node's child references exactly once, after
// the whole BVH has been loaded (spec §3.4: "(major, minor) references
// resolved once after load into direct handles").
func (b *BVH) ResolveAll() {
	for i := range b.Nodes {
		b.Nodes[i].ResolveChildren(b.BoxCount, b.InstanceCount, b.GeometryCount)
	}
}

// Root returns the handle to the TLAS root, which per spec §3.4's invariant
// is always the first box node (candidates[0] in a fresh trace).
func (b *BVH) Root() Handle {
	if b.BoxCount == 0 {
		return NoHandle
	}
	return 0
}

func (b *BVH) At(h Handle) (*Node, bool) {
	if h == NoHandle || int(h) < 0 || int(h) >= len(b.Nodes) {
		return nil, false
	}
	return &b.Nodes[h], true
}
