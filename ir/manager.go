package ir

// Manager is a cursor over a Sequence. It supports linear advance and
// extraction of structured sub-ranges (the body of an if, a loop, a block
// literal, ...).
//
// The interpreter uses the Manager's cursor as its instruction pointer, so
// skipping a block at run time and fetching it at generation time go
// through the same scan and always agree on where the block ends.
type Manager struct {
	seq Sequence
	ip  int
}

// NewManager creates a manager positioned at the first instruction.
func NewManager(seq Sequence) *Manager {
	return &Manager{seq: seq}
}

// Sequence returns the managed instructions.
func (m *Manager) Sequence() Sequence { return m.seq }

// IP returns the index of the next instruction to be advanced over.
func (m *Manager) IP() int { return m.ip }

// SetIP repositions the cursor.
func (m *Manager) SetIP(ip int) { m.ip = ip }

// Done reports whether every instruction has been consumed.
func (m *Manager) Done() bool { return m.ip >= len(m.seq) }

// Peek returns the next instruction without consuming it, or nil at the end.
func (m *Manager) Peek() Instruction {
	if m.Done() {
		return nil
	}
	return m.seq[m.ip]
}

// Advance returns the instruction at the cursor and moves past it.
// Advancing past the end is a structural error.
func (m *Manager) Advance() Instruction {
	if m.Done() {
		panic(&StructuralError{
			Pos:      m.ip,
			Expected: "an instruction",
			Found:    "end of instructions",
			Err:      ErrUnexpectedEnd,
		})
	}
	in := m.seq[m.ip]
	m.ip++
	return in
}

// Walk advances over every remaining instruction, calling fn for each.
// fn may itself move the cursor (by fetching or skipping blocks).
func (m *Manager) Walk(fn func(Instruction)) {
	for !m.Done() {
		fn(m.Advance())
	}
}

// BlockEnd scans forward from the cursor and returns the index of the
// marker that closes the current block: the first marker at nesting depth
// zero. Markers of inner blocks are skipped. The marker found must be until
// and, for end and else markers, carry label unless label is NoLabel.
// The cursor is not moved.
func (m *Manager) BlockEnd(until Opcode, label Label) int {
	depth := 0
	for i := m.ip; i < len(m.seq); i++ {
		in := m.seq[i]
		op := in.Opcode()
		switch {
		case op.IsOpener():
			depth++
		case op == OpEnd && depth > 0:
			depth--
		case op.IsMarker() && depth == 0:
			if op != until {
				panic(&StructuralError{Pos: i, Expected: describe(until, label), Found: in.String()})
			}
			if label != NoLabel && (op == OpEnd || op == OpElse) && labelOf(in) != label {
				panic(&StructuralError{Pos: i, Expected: describe(until, label), Found: in.String()})
			}
			return i
		}
	}
	panic(&StructuralError{
		Pos:      len(m.seq),
		Expected: describe(until, label),
		Found:    "end of instructions",
		Err:      ErrUnexpectedEnd,
	})
}

// FetchBlock returns everything between the cursor and the closing marker
// as an independent Sequence and leaves the cursor just past the marker.
func (m *Manager) FetchBlock(until Opcode, label Label) Sequence {
	end := m.BlockEnd(until, label)
	body := m.seq.Slice(m.ip, end)
	m.ip = end + 1
	return body
}

// SkipBlock moves the cursor just past the closing marker without copying
// the block.
func (m *Manager) SkipBlock(until Opcode, label Label) {
	m.ip = m.BlockEnd(until, label) + 1
}

func describe(until Opcode, label Label) string {
	if label == NoLabel || (until != OpEnd && until != OpElse) {
		return until.Name()
	}
	return until.Name() + " " + string(label)
}
