package token

import (
	"fmt"
	"math"
)

// Kind names an operand token type from spec §4.1's schema.
type Kind int

const (
	KindConst Kind = iota
	KindUint
	KindInt
	KindFloat
	KindString
	KindRef
)

// Value is one decoded operand: exactly one of the typed fields is valid,
// selected by Kind.
type Value struct {
	Kind Kind
	U    uint32
	I    int32
	F    float32
	S    string
	Ref  uint32
}

// Reader walks an instruction's operand words left to right, consuming one
// token at a time per the schema the caller (internal/instruction) drives.
type Reader struct {
	words []uint32
	pos   int
}

func NewReader(words []uint32) *Reader {
	return &Reader{words: words}
}

func (r *Reader) Remaining() int { return len(r.words) - r.pos }

func (r *Reader) Done() bool { return r.pos >= len(r.words) }

func (r *Reader) take() (uint32, error) {
	if r.pos >= len(r.words) {
		return 0, fmt.Errorf("token: short operand list")
	}
	w := r.words[r.pos]
	r.pos++
	return w, nil
}

// Const, Uint, and Ref all take one word as an unsigned value (spec §4.1).
func (r *Reader) Const() (Value, error) {
	w, err := r.take()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindConst, U: w}, nil
}

func (r *Reader) Uint() (Value, error) {
	w, err := r.take()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindUint, U: w}, nil
}

func (r *Reader) Ref() (Value, error) {
	w, err := r.take()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindRef, Ref: w}, nil
}

// Int and Float bit-cast one word.
func (r *Reader) Int() (Value, error) {
	w, err := r.take()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindInt, I: int32(w)}, nil
}

func (r *Reader) Float() (Value, error) {
	w, err := r.take()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindFloat, F: math.Float32frombits(w)}, nil
}

// String decodes a null-terminated, 4-bytes-per-word UTF-8 string,
// consuming one or more words (spec §4.1).
func (r *Reader) String() (Value, error) {
	var b []byte
	for {
		w, err := r.take()
		if err != nil {
			return Value{}, fmt.Errorf("token: unterminated string")
		}
		bytes := [4]byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
		terminated := false
		for _, c := range bytes {
			if c == 0 {
				terminated = true
				break
			}
			b = append(b, c)
		}
		if terminated {
			break
		}
	}
	return Value{Kind: KindString, S: string(b)}, nil
}

// RestAsRefs reads every remaining word as a Ref token, used by variadic
// tail operand lists (e.g. OpEntryPoint's interface id list).
func (r *Reader) RestAsRefs() []uint32 {
	out := make([]uint32, 0, r.Remaining())
	for !r.Done() {
		w, _ := r.take()
		out = append(out, w)
	}
	return out
}
