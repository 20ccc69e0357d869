// Package ifail is the interpreter's closed error-kind vocabulary (spec §7):
// every failure the decoder, instruction dispatcher, data manager, and
// acceleration structure can raise boils down to one of twelve Kinds.
//
// Grounded in the teacher's internal/vm/panic.go (PanicCode/VMError): the
// same "stable numeric code + message + builder methods" shape, with the
// teacher's compiler-panic codes (UseBeforeInit, UseAfterMove, ...) replaced
// by this interpreter's runtime-fault codes.
package ifail

import "fmt"

// Kind is the closed set of error categories this interpreter raises.
// Stable values — do not renumber.
type Kind int

const (
	InvalidBinary Kind = 1 + iota
	UnsupportedOpcode
	MalformedOperands
	TypeMismatch
	ReferenceOutOfRange
	UndefinedDecoration
	MissingInterfaceInput
	InputShapeMismatch
	RaytraceStateCorrupt
	SubstageContract
	IndexOutOfBounds
	Arithmetic
)

func (k Kind) String() string {
	switch k {
	case InvalidBinary:
		return "InvalidBinary"
	case UnsupportedOpcode:
		return "UnsupportedOpcode"
	case MalformedOperands:
		return "MalformedOperands"
	case TypeMismatch:
		return "TypeMismatch"
	case ReferenceOutOfRange:
		return "ReferenceOutOfRange"
	case UndefinedDecoration:
		return "UndefinedDecoration"
	case MissingInterfaceInput:
		return "MissingInterfaceInput"
	case InputShapeMismatch:
		return "InputShapeMismatch"
	case RaytraceStateCorrupt:
		return "RaytraceStateCorrupt"
	case SubstageContract:
		return "SubstageContract"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case Arithmetic:
		return "Arithmetic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a Kind-tagged failure carrying the opcode and operand index that
// raised it (when applicable) and a wrapped cause.
//
// Grounded in panic.go's VMError (Code + Message + wrapped cause idiom);
// Opcode/OperandIndex replace the teacher's source.Span since this
// interpreter's "location" is an instruction index, not a text span.
type Error struct {
	Kind         Kind
	Opcode       uint16
	OperandIndex int
	Message      string
	Cause        error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is implements errors.Is against another *Error by Kind, letting call
// sites write errors.Is(err, ifail.New(ifail.TypeMismatch, "")) style
// checks without caring about the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// AtOpcode attaches opcode/operand-index context to an existing Error,
// used by the instruction dispatcher when it catches a lower-level error
// (e.g. from value.CopyFrom) and needs to report which instruction failed.
func (e *Error) AtOpcode(opcode uint16, operandIndex int) *Error {
	e.Opcode = opcode
	e.OperandIndex = operandIndex
	return e
}
