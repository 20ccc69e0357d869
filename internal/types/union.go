package types

// Unify implements the spec §3.1 "Union" used for assignment compatibility:
// Uint widens to any other numeric or bool type; identical primitive bases
// unify to the narrower (smaller) numeric width; arrays unify if sizes match
// and elements unify; anything else fails.
//
// Grounded in the teacher's width-ordered numeric model (surge/internal/types
// Width8/16/32/64 ladder): we reuse "narrower wins" as the tie-break when two
// primitives of the same base but different width meet.
func (a *Arena) Unify(x, y TypeID) (TypeID, bool) {
	tx, okx := a.Lookup(x)
	ty, oky := a.Lookup(y)
	if !okx || !oky {
		return NoTypeID, false
	}

	if tx.Base == Uint && isNumericOrBool(ty.Base) {
		return y, true
	}
	if ty.Base == Uint && isNumericOrBool(tx.Base) {
		return x, true
	}

	if tx.Base == ty.Base {
		switch tx.Base {
		case Float, Uint, Int:
			if tx.SubSize <= ty.SubSize {
				return x, true
			}
			return y, true
		case Bool, Void, String, AccelStruct, RayQuery:
			return x, true
		case Array:
			if tx.SubSize != ty.SubSize {
				return NoTypeID, false
			}
			elem, ok := a.Unify(tx.SubElement, ty.SubElement)
			if !ok {
				return NoTypeID, false
			}
			return a.Array(elem, tx.SubSize), true
		}
	}
	return NoTypeID, false
}

func isNumericOrBool(b Base) bool {
	switch b {
	case Float, Uint, Int, Bool:
		return true
	default:
		return false
	}
}
