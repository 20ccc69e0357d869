package value

import (
	"fmt"

	"spirvm/internal/types"
)

// Sampler pairs a default level-of-detail with a mipmap chain of Images.
//
// Grounded in original_source/src/values/sampler.cxx's Sampler: the default
// implicit-LOD sample just indexes Mipmaps[DefaultLOD].
type Sampler struct {
	id         types.TypeID
	DefaultLOD uint32
	Mipmaps    []*Image
}

func NewSampler(id types.TypeID) *Sampler {
	return &Sampler{id: id}
}

func (s *Sampler) TypeID() types.TypeID { return s.id }
func (s *Sampler) IsNested() bool       { return false }

func (s *Sampler) Clone() Value {
	mips := make([]*Image, len(s.Mipmaps))
	for i, m := range s.Mipmaps {
		mips[i] = m.Clone().(*Image)
	}
	return &Sampler{id: s.id, DefaultLOD: s.DefaultLOD, Mipmaps: mips}
}

func (s *Sampler) CopyFrom(arena *types.Arena, other Value) error {
	op, ok := other.(*Sampler)
	if !ok {
		return ErrTypeMismatch
	}
	s.DefaultLOD = op.DefaultLOD
	mips := make([]*Image, len(op.Mipmaps))
	for i, m := range op.Mipmaps {
		clone := m.Clone().(*Image)
		mips[i] = clone
	}
	s.Mipmaps = mips
	return nil
}

func (s *Sampler) Equals(arena *types.Arena, other Value) bool {
	op, ok := other.(*Sampler)
	if !ok || !arena.Equal(s.id, op.id) {
		return false
	}
	if s.DefaultLOD != op.DefaultLOD || len(s.Mipmaps) != len(op.Mipmaps) {
		return false
	}
	for i := range s.Mipmaps {
		if !s.Mipmaps[i].Equals(arena, op.Mipmaps[i]) {
			return false
		}
	}
	return true
}

func (s *Sampler) Print(arena *types.Arena, indent int) string {
	return fmt.Sprintf("sampler(lod=%d, mipmaps=%d)", s.DefaultLOD, len(s.Mipmaps))
}

// SampleImplicitLOD returns the mipmap level a texture lookup without an
// explicit LOD operand should read from.
func (s *Sampler) SampleImplicitLOD() (*Image, error) {
	if int(s.DefaultLOD) >= len(s.Mipmaps) {
		return nil, fmt.Errorf("sampler: default lod %d out of range (%d mipmaps)", s.DefaultLOD, len(s.Mipmaps))
	}
	return s.Mipmaps[s.DefaultLOD], nil
}
