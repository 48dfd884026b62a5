package ir

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of seq, indented by block
// nesting depth.
func Disassemble(seq Sequence, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions, max depth %d\n", len(seq), seq.Depth()))

	depth := 0
	for i, in := range seq {
		op := in.Opcode()
		indent := depth
		if op.IsMarker() && indent > 0 {
			// markers line up with their opener
			indent--
		}
		sb.WriteString(fmt.Sprintf("%04d  %s%s\n", i, strings.Repeat("  ", indent), in.String()))

		switch {
		case op.IsOpener():
			depth++
		case op == OpEnd && depth > 0:
			depth--
		}
	}

	return sb.String()
}
