package types

// Equal reports structural equality between two types, ignoring struct field
// names (spec §3.1 Equality) but honoring the Struct/AccelStruct compatibility
// exception used when copying plain-struct inputs into acceleration-structure
// slots.
func (a *Arena) Equal(x, y TypeID) bool {
	if x == y {
		return true
	}
	tx, okx := a.Lookup(x)
	ty, oky := a.Lookup(y)
	if !okx || !oky {
		return false
	}
	if tx.Base != ty.Base {
		return structAccelCompatible(tx, ty)
	}
	switch tx.Base {
	case Float, Uint, Int:
		return tx.SubSize == ty.SubSize
	case Bool, Void, String, AccelStruct, RayQuery:
		return true
	case Array:
		return tx.SubSize == ty.SubSize && a.Equal(tx.SubElement, ty.SubElement)
	case Pointer:
		return a.Equal(tx.SubElement, ty.SubElement)
	case Sampler:
		return a.Equal(tx.SubElement, ty.SubElement)
	case Image:
		return tx.SubSize == ty.SubSize
	case CoopMatrix:
		return tx.SubSize == ty.SubSize && a.Equal(tx.SubElement, ty.SubElement) && fieldsEqualIDs(tx.Fields, ty.Fields)
	case Function:
		if !a.Equal(tx.SubElement, ty.SubElement) {
			return false
		}
		return a.paramsEqual(tx.ParamTypes, ty.ParamTypes)
	case Struct:
		return a.fieldsEqual(tx.Fields, ty.Fields)
	default:
		return false
	}
}

func structAccelCompatible(tx, ty Type) bool {
	isStructLike := func(t Type) bool { return t.Base == Struct || t.Base == AccelStruct }
	return isStructLike(tx) && isStructLike(ty)
}

func (a *Arena) fieldsEqual(xs, ys []TypeID) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !a.Equal(xs[i], ys[i]) {
			return false
		}
	}
	return true
}

func (a *Arena) paramsEqual(xs, ys []TypeID) bool {
	return a.fieldsEqual(xs, ys)
}

func fieldsEqualIDs(xs, ys []TypeID) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if xs[i] != ys[i] {
			return false
		}
	}
	return true
}

// CheckInvariants validates the base-dependent invariants of spec §3.1:
// struct field/name length parity, primitive subsizes, non-null pointees and
// array elements. Returns the first violation found, or nil.
func (a *Arena) CheckInvariants(id TypeID) error {
	t, ok := a.Lookup(id)
	if !ok {
		return errInvalidType(id)
	}
	switch t.Base {
	case Struct:
		if len(t.Fields) != len(t.FieldNames) {
			return errFieldNameMismatch(id)
		}
	case Float, Uint, Int:
		if !IsPrimitiveWidth(t.SubSize) {
			return errBadWidth(id, t.SubSize)
		}
	case Pointer:
		if t.SubElement == NoTypeID {
			return errNullPointee(id)
		}
	case Array:
		if t.SubElement == NoTypeID {
			return errNullElement(id)
		}
	}
	return nil
}
