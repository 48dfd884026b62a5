package ir

import (
	"fmt"
	"strconv"
)

// Instruction is one operation of the lowered program. The set of variants
// is closed: code generation and interpretation both switch over it
// exhaustively, so a new variant has to be handled in both places.
type Instruction interface {
	Opcode() Opcode
	String() string
	instruction()
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

type PushInt struct{ Value int64 }
type PushFloat struct{ Value float64 }
type PushString struct{ Value string }
type PushSymbol struct{ Name string }
type PushNil struct{}
type PushTrue struct{}
type PushFalse struct{}
type PushSelf struct{}

// PushArg pushes the argument at Index of the current call.
type PushArg struct{ Index int }

// PushArgc pushes the number of arguments of the current call.
type PushArgc struct{}

// PushRange pops end and begin and pushes a range.
type PushRange struct{ ExcludeEnd bool }

// ---------------------------------------------------------------------------
// Stack and data
// ---------------------------------------------------------------------------

type Pop struct{}
type Dup struct{}

// CreateArray pops Count values (first pushed is first element).
type CreateArray struct{ Count int }

// Binary pops rhs then lhs and pushes the result of lhs Operator rhs.
type Binary struct{ Operator Operator }

type Not struct{}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

type VariableGet struct{ Name string }

// VariableSet pops the value to store. It pushes nothing.
type VariableSet struct{ Name string }

// ---------------------------------------------------------------------------
// Message sends
// ---------------------------------------------------------------------------

// Send pops an optional block, Argc arguments and the receiver, and pushes
// the result. When ToSelf is set no receiver is popped; the message goes to
// the current self.
type Send struct {
	Message   string
	Argc      int
	WithBlock bool
	ToSelf    bool
}

// Yield calls the block passed to the current frame with Argc arguments.
type Yield struct{ Argc int }

// ---------------------------------------------------------------------------
// Structured control flow
// ---------------------------------------------------------------------------

type If struct{}
type While struct{}

// DefineBlock opens a block literal whose body closes with an end marker
// labeled define_block.
type DefineBlock struct{ Arity int }

// DefineMethod opens a method body on the current self.
type DefineMethod struct {
	Name  string
	Arity int
}

type Try struct{}

type Else struct{ Label Label }
type WhileBody struct{}
type Catch struct{}
type End struct{ Label Label }

// ---------------------------------------------------------------------------
// Exceptions and returns
// ---------------------------------------------------------------------------

type PushException struct{}
type Raise struct{}
type Return struct{}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func Add() Binary { return Binary{Operator: OperatorAdd} }
func Sub() Binary { return Binary{Operator: OperatorSub} }
func Mul() Binary { return Binary{Operator: OperatorMul} }
func Div() Binary { return Binary{Operator: OperatorDiv} }
func Eq() Binary  { return Binary{Operator: OperatorEq} }
func Lt() Binary  { return Binary{Operator: OperatorLt} }
func Gt() Binary  { return Binary{Operator: OperatorGt} }

// EndOf returns the end marker that closes opener.
func EndOf(opener Opcode) End { return End{Label: LabelFor(opener)} }

// ---------------------------------------------------------------------------
// Instruction interface
// ---------------------------------------------------------------------------

func (PushInt) Opcode() Opcode       { return OpPushInt }
func (PushFloat) Opcode() Opcode     { return OpPushFloat }
func (PushString) Opcode() Opcode    { return OpPushString }
func (PushSymbol) Opcode() Opcode    { return OpPushSymbol }
func (PushNil) Opcode() Opcode       { return OpPushNil }
func (PushTrue) Opcode() Opcode      { return OpPushTrue }
func (PushFalse) Opcode() Opcode     { return OpPushFalse }
func (PushSelf) Opcode() Opcode      { return OpPushSelf }
func (PushArg) Opcode() Opcode       { return OpPushArg }
func (PushArgc) Opcode() Opcode      { return OpPushArgc }
func (PushRange) Opcode() Opcode     { return OpPushRange }
func (Pop) Opcode() Opcode           { return OpPop }
func (Dup) Opcode() Opcode           { return OpDup }
func (CreateArray) Opcode() Opcode   { return OpCreateArray }
func (Binary) Opcode() Opcode        { return OpBinary }
func (Not) Opcode() Opcode           { return OpNot }
func (VariableGet) Opcode() Opcode   { return OpVariableGet }
func (VariableSet) Opcode() Opcode   { return OpVariableSet }
func (Send) Opcode() Opcode          { return OpSend }
func (Yield) Opcode() Opcode         { return OpYield }
func (If) Opcode() Opcode            { return OpIf }
func (While) Opcode() Opcode         { return OpWhile }
func (DefineBlock) Opcode() Opcode   { return OpDefineBlock }
func (DefineMethod) Opcode() Opcode  { return OpDefineMethod }
func (Try) Opcode() Opcode           { return OpTry }
func (Else) Opcode() Opcode          { return OpElse }
func (WhileBody) Opcode() Opcode     { return OpWhileBody }
func (Catch) Opcode() Opcode         { return OpCatch }
func (End) Opcode() Opcode           { return OpEnd }
func (PushException) Opcode() Opcode { return OpPushException }
func (Raise) Opcode() Opcode         { return OpRaise }
func (Return) Opcode() Opcode        { return OpReturn }

func (PushInt) instruction()       {}
func (PushFloat) instruction()     {}
func (PushString) instruction()    {}
func (PushSymbol) instruction()    {}
func (PushNil) instruction()       {}
func (PushTrue) instruction()      {}
func (PushFalse) instruction()     {}
func (PushSelf) instruction()      {}
func (PushArg) instruction()       {}
func (PushArgc) instruction()      {}
func (PushRange) instruction()     {}
func (Pop) instruction()           {}
func (Dup) instruction()           {}
func (CreateArray) instruction()   {}
func (Binary) instruction()        {}
func (Not) instruction()           {}
func (VariableGet) instruction()   {}
func (VariableSet) instruction()   {}
func (Send) instruction()          {}
func (Yield) instruction()         {}
func (If) instruction()            {}
func (While) instruction()         {}
func (DefineBlock) instruction()   {}
func (DefineMethod) instruction()  {}
func (Try) instruction()           {}
func (Else) instruction()          {}
func (WhileBody) instruction()     {}
func (Catch) instruction()         {}
func (End) instruction()           {}
func (PushException) instruction() {}
func (Raise) instruction()         {}
func (Return) instruction()        {}

// ---------------------------------------------------------------------------
// Disassembly forms
// ---------------------------------------------------------------------------

func (i PushInt) String() string    { return "push_int " + strconv.FormatInt(i.Value, 10) }
func (i PushFloat) String() string  { return "push_float " + strconv.FormatFloat(i.Value, 'g', -1, 64) }
func (i PushString) String() string { return "push_string " + strconv.Quote(i.Value) }
func (i PushSymbol) String() string { return "push_symbol :" + i.Name }
func (PushNil) String() string      { return "push_nil" }
func (PushTrue) String() string     { return "push_true" }
func (PushFalse) String() string    { return "push_false" }
func (PushSelf) String() string     { return "push_self" }
func (i PushArg) String() string    { return fmt.Sprintf("push_arg %d", i.Index) }
func (PushArgc) String() string     { return "push_argc" }

func (i PushRange) String() string {
	if i.ExcludeEnd {
		return "push_range exclusive"
	}
	return "push_range"
}

func (Pop) String() string           { return "pop" }
func (Dup) String() string           { return "dup" }
func (i CreateArray) String() string { return fmt.Sprintf("create_array %d", i.Count) }
func (i Binary) String() string      { return i.Operator.Name() }
func (Not) String() string           { return "not" }
func (i VariableGet) String() string { return "variable_get " + i.Name }
func (i VariableSet) String() string { return "variable_set " + i.Name }

func (i Send) String() string {
	s := fmt.Sprintf("send %s %d", i.Message, i.Argc)
	if i.ToSelf {
		s += " to_self"
	}
	if i.WithBlock {
		s += " with_block"
	}
	return s
}

func (i Yield) String() string        { return fmt.Sprintf("yield %d", i.Argc) }
func (If) String() string             { return "if" }
func (While) String() string          { return "while" }
func (i DefineBlock) String() string  { return fmt.Sprintf("define_block %d", i.Arity) }
func (i DefineMethod) String() string { return fmt.Sprintf("define_method %s %d", i.Name, i.Arity) }
func (Try) String() string            { return "try" }
func (i Else) String() string         { return labeled("else", i.Label) }
func (WhileBody) String() string      { return "while_body" }
func (Catch) String() string          { return "catch" }
func (i End) String() string          { return labeled("end", i.Label) }
func (PushException) String() string  { return "push_exception" }
func (Raise) String() string          { return "raise" }
func (Return) String() string         { return "return" }

func labeled(name string, l Label) string {
	if l == NoLabel {
		return name
	}
	return name + " " + string(l)
}

// labelOf returns the label carried by a marker, if any.
func labelOf(in Instruction) Label {
	switch m := in.(type) {
	case End:
		return m.Label
	case Else:
		return m.Label
	}
	return NoLabel
}
