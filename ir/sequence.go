package ir

// Sequence is an ordered, indexable run of instructions. Sub-ranges fetched
// from a Manager are independent Sequences.
type Sequence []Instruction

// Len returns the number of instructions.
func (s Sequence) Len() int { return len(s) }

// At returns the instruction at index i.
func (s Sequence) At(i int) Instruction { return s[i] }

// Slice returns an independent copy of s[from:to].
func (s Sequence) Slice(from, to int) Sequence {
	out := make(Sequence, to-from)
	copy(out, s[from:to])
	return out
}

// Depth returns the maximum nesting depth of structured blocks in s.
func (s Sequence) Depth() int {
	depth, max := 0, 0
	for _, in := range s {
		switch {
		case in.Opcode().IsOpener():
			depth++
			if depth > max {
				max = depth
			}
		case in.Opcode() == OpEnd:
			depth--
		}
	}
	return max
}
