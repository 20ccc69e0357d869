// Package data implements the data manager: the tagged-slot storage behind
// every SSA id (spec §3.3), plus the scoped DataView chain used to resolve
// an id to the nearest enclosing definition.
//
// Grounded in original_source/src/spv/data/data.hpp and data.cxx (Variable,
// Function, EntryPoint, Data) and manager.hpp (DataView, DataManager).
package data

import (
	"spirvm/internal/types"
	"spirvm/internal/value"
)

// StorageClass mirrors the handful of SPIR-V storage classes the
// interpreter cares about for variable lifetime and visibility.
type StorageClass uint32

const (
	StorageUnknown StorageClass = iota
	StorageInput
	StorageOutput
	StorageUniform
	StorageUniformConstant
	StoragePushConstant
	StoragePrivate
	StorageFunction
	StorageWorkgroup
	StorageStorageBuffer
	StorageCrossWorkgroup
	StorageGeneric
	StorageAtomicCounter
	StorageImage
	StorageCallableDataKHR
	StorageIncomingCallableDataKHR
	StorageRayPayloadKHR
	StorageHitAttributeKHR
	StorageIncomingRayPayloadKHR
	StorageShaderRecordBufferKHR
	StoragePhysicalStorageBuffer
)

const locationUnset = ^uint32(0)

// Variable owns a value on behalf of an OpVariable result id, along with
// the decorations the decoration queue (internal/decoration) has applied to
// it: a name, a built-in role, and in/out binding metadata.
//
// Grounded in data.cxx's Variable: a runtime store copies into Val (not
// replacing it), so it goes through value.Value.CopyFrom's conversion rules.
type Variable struct {
	Val          value.Value
	Storage      StorageClass
	Name         string
	BuiltIn      string
	SpecConst    bool
	NonWritable  bool
	location     uint32
	descriptorSet uint32
}

func NewVariable(val value.Value, storage StorageClass) *Variable {
	return &Variable{Val: val, Storage: storage, location: locationUnset, descriptorSet: locationUnset}
}

func NewSpecConst(val value.Value) *Variable {
	return &Variable{Val: val, Storage: StoragePushConstant, SpecConst: true, location: locationUnset, descriptorSet: locationUnset}
}

// IsThreaded reports whether this variable's storage class means each
// invocation gets its own private copy (Private, Function), per spec §4.6's
// cooperative execution model.
func (v *Variable) IsThreaded() bool {
	return v.Storage == StoragePrivate || v.Storage == StorageFunction
}

func (v *Variable) SetLocation(loc uint32)       { v.location = loc }
func (v *Variable) Location() (uint32, bool)     { return v.location, v.location != locationUnset }
func (v *Variable) SetDescriptorSet(set uint32)  { v.descriptorSet = set }
func (v *Variable) DescriptorSet() (uint32, bool) { return v.descriptorSet, v.descriptorSet != locationUnset }

// Function is a callable's static metadata: its type and entry PC. The
// frame stack (internal/frame) tracks live invocations of it.
type Function struct {
	TypeID   types.TypeID
	Location uint32 // instruction index the function's first instruction lives at
	Name     string
}

// EntryPoint is a Function additionally exposed as a shader/kernel entry,
// carrying the local workgroup size for compute-like execution models.
type EntryPoint struct {
	Function
	SizeX, SizeY, SizeZ uint32
}
