package ifail

import (
	"errors"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := New(TypeMismatch, "expected %s got %s", "uint", "float")
	target := &Error{Kind: TypeMismatch}
	if !errors.Is(err, target) {
		t.Fatalf("expected errors.Is to match on Kind")
	}
	other := &Error{Kind: Arithmetic}
	if errors.Is(err, other) {
		t.Fatalf("expected errors.Is to reject a different Kind")
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("division by zero")
	err := Wrap(Arithmetic, cause, "OpSDiv")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestAtOpcodeAttachesContext(t *testing.T) {
	err := New(ReferenceOutOfRange, "id %d undefined", 42).AtOpcode(61, 2)
	if err.Opcode != 61 || err.OperandIndex != 2 {
		t.Fatalf("expected opcode/operand index to be recorded, got %+v", err)
	}
}

func TestKindStringNamesAllTwelve(t *testing.T) {
	kinds := []Kind{
		InvalidBinary, UnsupportedOpcode, MalformedOperands, TypeMismatch,
		ReferenceOutOfRange, UndefinedDecoration, MissingInterfaceInput,
		InputShapeMismatch, RaytraceStateCorrupt, SubstageContract,
		IndexOutOfBounds, Arithmetic,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		if seen[s] {
			t.Fatalf("duplicate Kind name %q", s)
		}
		seen[s] = true
	}
	if len(seen) != 12 {
		t.Fatalf("expected 12 distinct Kind names, got %d", len(seen))
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("bound exceeded")
	err := Wrap(IndexOutOfBounds, cause, "array index 9")
	msg := err.Error()
	if msg == "" {
		t.Fatalf("expected non-empty message")
	}
}
