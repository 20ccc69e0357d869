// Package token implements the word-level SPIR-V binary decoder (spec
// §4.1): magic/endianness detection, the 5-word module header, and
// unpacking each instruction's (word_count, opcode) pair into a typed
// operand token stream.
package token

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

const magicLE = 0x07230203

// Header is the fixed 5-word SPIR-V module header.
type Header struct {
	Magic      uint32
	Version    uint32
	Generator  uint32
	Bound      uint32
	Schema     uint32 // reserved, must be 0
}

// Order is the word endianness a module was encoded in, inferred from
// whether the first word matches the canonical magic directly or
// byte-reversed.
type Order int

const (
	LittleEndian Order = iota
	BigEndian
)

// DetectOrder inspects the first 4 bytes of a SPIR-V binary and returns the
// word order that makes them equal the canonical magic 0x07230203.
func DetectOrder(b []byte) (Order, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("token: input shorter than one word")
	}
	if binary.LittleEndian.Uint32(b) == magicLE {
		return LittleEndian, nil
	}
	if binary.BigEndian.Uint32(b) == magicLE {
		return BigEndian, nil
	}
	return 0, fmt.Errorf("token: not a SPIR-V module (bad magic)")
}

// Words reinterprets a decoded byte slice as native 32-bit words per the
// detected order.
func Words(b []byte, order Order) ([]uint32, error) {
	n := len(b) / 4
	if n*4 != len(b) {
		return nil, fmt.Errorf("token: input length %d is not a multiple of 4", len(b))
	}
	out := make([]uint32, n)
	bo := byteOrderFor(order)
	for i := 0; i < n; i++ {
		out[i] = bo.Uint32(b[i*4:])
	}
	return out, nil
}

func byteOrderFor(order Order) binary.ByteOrder {
	if order == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ParseHeader reads the 5-word module header from the front of words.
func ParseHeader(words []uint32) (Header, error) {
	const headerWords = 5
	if len(words) < headerWords {
		return Header{}, fmt.Errorf("token: module too short for header (%d words)", len(words))
	}
	if words[0] != magicLE {
		return Header{}, fmt.Errorf("token: invalid magic %#08x", words[0])
	}
	return Header{
		Magic:     words[0],
		Version:   words[1],
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}, nil
}

// WordCountAndOpcode unpacks a packed instruction word into its word count
// (high 16 bits) and opcode (low 16 bits), per spec §4.1.
func WordCountAndOpcode(packed uint32) (wordCount uint16, opcode uint16) {
	return uint16(packed >> 16), uint16(packed & 0xFFFF)
}

// MustU16 narrows an int known to fit in 16 bits (panics otherwise), used
// by callers that have already range-checked via WordCountAndOpcode.
func MustU16(n int) uint16 {
	v, err := safecast.Conv[uint16](n)
	if err != nil {
		panic(fmt.Errorf("token: index overflow: %w", err))
	}
	return v
}
