package token

import "fmt"

// Instruction is one decoded opcode word plus its raw operand words, sliced
// straight out of the module's word stream (spec §4.1: "the decoder slices
// off word_count - 1 operand words").
type Instruction struct {
	// Index is this instruction's position in the linear instruction
	// stream (not a word offset) — labels and functions reference each
	// other by this index (spec §4.2).
	Index    int
	Opcode   uint16
	Operands []uint32
}

// Split walks the post-header word stream and slices it into Instructions.
// It validates that each instruction's declared word count does not run
// past the end of the stream ("Short operand list") and that the final
// instruction consumes exactly the remaining words ("Extra operand words").
func Split(words []uint32) ([]Instruction, error) {
	var out []Instruction
	i := 0
	for i < len(words) {
		wordCount, opcode := WordCountAndOpcode(words[i])
		if wordCount == 0 {
			return nil, fmt.Errorf("token: instruction at word %d has zero word count", i)
		}
		end := i + int(wordCount)
		if end > len(words) {
			return nil, fmt.Errorf("token: short operand list for opcode %d at word %d", opcode, i)
		}
		out = append(out, Instruction{
			Index:    len(out),
			Opcode:   opcode,
			Operands: words[i+1 : end],
		})
		i = end
	}
	if i != len(words) {
		return nil, fmt.Errorf("token: extra operand words after last instruction")
	}
	return out, nil
}
