package ir

import (
	"errors"
	"fmt"
)

// ErrUnexpectedEnd is wrapped by a StructuralError when the instruction
// stream runs out while a block is still open.
var ErrUnexpectedEnd = errors.New("unexpected end of instructions")

// StructuralError reports a block whose closing marker is missing,
// mismatched, or wrongly labeled. It means the upstream lowering pass (or
// this back end) is broken; it is never recovered from.
type StructuralError struct {
	Pos      int    // index of the offending instruction
	Expected string // what the scan was looking for
	Found    string // what it found instead
	Err      error  // optional cause
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("structural error at %d: expected %s, found %s", e.Pos, e.Expected, e.Found)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StructuralError) Unwrap() error { return e.Err }

// StackError reports a pop or peek on an empty stack: some instruction
// pushed or popped the wrong number of operands.
type StackError struct {
	Pos   int    // index of the instruction being processed, -1 if unknown
	Instr string // disassembly of that instruction
}

func (e *StackError) Error() string {
	if e.Instr == "" {
		return "ran out of stack"
	}
	return fmt.Sprintf("ran out of stack at %d (%s)", e.Pos, e.Instr)
}

// RecoverFatal converts a StructuralError or StackError panic into *err.
// It must be deferred directly by the public entry point:
//
//	defer ir.RecoverFatal(&err)
//
// Any other panic is re-raised.
func RecoverFatal(err *error) {
	r := recover()
	if r == nil {
		return
	}
	switch e := r.(type) {
	case *StructuralError:
		*err = e
	case *StackError:
		*err = e
	default:
		panic(r)
	}
}
