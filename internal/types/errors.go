package types

import "fmt"

type invariantError struct {
	msg string
}

func (e *invariantError) Error() string { return e.msg }

func errInvalidType(id TypeID) error {
	return &invariantError{fmt.Sprintf("types: invalid TypeID %d", id)}
}

func errFieldNameMismatch(id TypeID) error {
	return &invariantError{fmt.Sprintf("types: struct %d has mismatched field/name counts", id)}
}

func errBadWidth(id TypeID, width uint32) error {
	return &invariantError{fmt.Sprintf("types: primitive %d has invalid width %d", id, width)}
}

func errNullPointee(id TypeID) error {
	return &invariantError{fmt.Sprintf("types: pointer %d has null pointee", id)}
}

func errNullElement(id TypeID) error {
	return &invariantError{fmt.Sprintf("types: array %d has null element", id)}
}
