package value

import (
	"fmt"

	"spirvm/internal/types"
)

// Image is condensed texel storage: Data holds one flat run of pixel
// components per texel, Comps names which of the (up to four) channels are
// active and in what order, Dims gives the per-axis extent.
//
// Grounded in original_source/src/values/image.cxx's Image. Reference
// semantics: Clone shares the underlying Data slice rather than deep-copying
// it (spec §3.2 notes Image is the one reference-semantic variant), matching
// the original's pass-by-Image&-through-Sampler pattern.
type Image struct {
	id   types.TypeID
	Ref  string
	Dims []uint32
	// Comps is the component-order digit string decoded into active channel
	// indices (e.g. {1,2,3,4} for rgba); len(Comps) is the stride between
	// texels in Data.
	Comps []uint32
	Data  []uint32
}

func NewImage(arena *types.Arena, id types.TypeID) *Image {
	t, _ := arena.Lookup(id)
	_, digits := types.DecodeImageSubSize(t.SubSize)
	return &Image{id: id, Comps: decodeComponents(digits)}
}

// decodeComponents mirrors Image::Component's base-1000 digit decoding: each
// decimal digit (from the thousands place down) names which channel — r, g,
// b, a in that input order — occupies that output position; 0 means unused.
func decodeComponents(digits uint32) []uint32 {
	var comps []uint32
	scale := uint32(1000)
	for scale > 0 {
		factor := digits / scale
		if factor > 0 {
			digits -= factor * scale
			comps = append(comps, factor)
		}
		scale /= 10
	}
	return comps
}

func (i *Image) TypeID() types.TypeID { return i.id }
func (i *Image) IsNested() bool       { return false }

// Clone shares the texel buffer: images are reference-semantic values.
func (i *Image) Clone() Value {
	return &Image{id: i.id, Ref: i.Ref, Dims: i.Dims, Comps: i.Comps, Data: i.Data}
}

func (i *Image) CopyFrom(arena *types.Arena, other Value) error {
	op, ok := other.(*Image)
	if !ok {
		return ErrTypeMismatch
	}
	if len(i.Comps) != len(op.Comps) {
		return fmt.Errorf("%w: incompatible image component counts", ErrTypeMismatch)
	}
	i.Ref = op.Ref
	i.Dims = append([]uint32(nil), op.Dims...)
	i.Data = append([]uint32(nil), op.Data...)
	return nil
}

func (i *Image) Equals(arena *types.Arena, other Value) bool {
	op, ok := other.(*Image)
	if !ok || !arena.Equal(i.id, op.id) {
		return false
	}
	if len(i.Dims) != len(op.Dims) || len(i.Comps) != len(op.Comps) || len(i.Data) != len(op.Data) {
		return false
	}
	for idx := range i.Dims {
		if i.Dims[idx] != op.Dims[idx] {
			return false
		}
	}
	stride := len(i.Comps)
	if stride == 0 {
		return true
	}
	for texel := 0; texel+stride <= len(i.Data); texel += stride {
		for c := 0; c < stride; c++ {
			if i.Data[texel+c] != op.Data[texel+c] {
				return false
			}
		}
	}
	return true
}

func (i *Image) Print(arena *types.Arena, indent int) string {
	stride := len(i.Comps)
	if stride == 0 {
		stride = 1
	}
	return fmt.Sprintf("image(ref=%q, dims=%v, texels=%d)", i.Ref, i.Dims, len(i.Data)/stride)
}
