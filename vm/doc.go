// Package vm interprets an instruction stream directly.
//
// The interpreter shares the instruction manager with the code generator:
// its cursor is the instruction pointer, and block literals are skipped at
// definition and replayed on call using the same end-marker scan that the
// generator uses to fetch them. A block value is therefore just a start
// index, the receiver and scope it captured, and an arity.
//
// Control-bearing instructions (if, while, try) run their arms through
// nested invocations of the run loop; a return inside an arm unwinds those
// invocations back to the enclosing call. Runtime errors are *Exception
// values signaled with panic and caught by try or by Run.
package vm
