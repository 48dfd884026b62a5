package ir

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies the kind of an instruction.
type Opcode byte

// Push Constants
const (
	OpPushInt    Opcode = 0x10 // push integer literal
	OpPushFloat  Opcode = 0x11 // push float literal
	OpPushString Opcode = 0x12 // push string literal
	OpPushSymbol Opcode = 0x13 // push symbol literal
	OpPushNil    Opcode = 0x14 // push nil
	OpPushTrue   Opcode = 0x15 // push true
	OpPushFalse  Opcode = 0x16 // push false
	OpPushSelf   Opcode = 0x17 // push the current receiver
	OpPushArg    Opcode = 0x18 // push argument by index
	OpPushArgc   Opcode = 0x19 // push argument count
	OpPushRange  Opcode = 0x1A // pop end, begin; push range
)

// Stack and Data Operations
const (
	OpPop         Opcode = 0x20 // discard top of stack (evaluated for side effects)
	OpDup         Opcode = 0x21 // duplicate top of stack
	OpCreateArray Opcode = 0x22 // pop n values, push array
	OpBinary      Opcode = 0x23 // pop rhs, lhs; push lhs <op> rhs
	OpNot         Opcode = 0x24 // logical negation
)

// Variable Operations
const (
	OpVariableGet Opcode = 0x30 // push local variable
	OpVariableSet Opcode = 0x31 // pop into local variable
)

// Message Sends
const (
	OpSend  Opcode = 0x40 // send message to receiver
	OpYield Opcode = 0x41 // invoke the block passed to the current frame
)

// Control Flow (openers)
const (
	OpIf           Opcode = 0x50 // if ... else ... end
	OpWhile        Opcode = 0x51 // while cond while_body body end
	OpDefineBlock  Opcode = 0x52 // block literal body end
	OpDefineMethod Opcode = 0x53 // method body end
	OpTry          Opcode = 0x54 // try body catch handler end
)

// Control Flow (markers)
const (
	OpElse      Opcode = 0x60 // separates the arms of an if
	OpWhileBody Opcode = 0x61 // separates loop condition from loop body
	OpCatch     Opcode = 0x62 // separates try body from handler
	OpEnd       Opcode = 0x63 // closes the innermost opener
)

// Exceptions and Returns
const (
	OpPushException Opcode = 0x70 // push the exception being handled
	OpRaise         Opcode = 0x71 // pop message, raise RuntimeError
	OpReturn        Opcode = 0x72 // return top of stack from the current body
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name   string // wire and disassembly name
	Opener bool   // opens a structured block closed by OpEnd
	Marker bool   // delimits a structured block
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpPushInt:    {"push_int", false, false},
	OpPushFloat:  {"push_float", false, false},
	OpPushString: {"push_string", false, false},
	OpPushSymbol: {"push_symbol", false, false},
	OpPushNil:    {"push_nil", false, false},
	OpPushTrue:   {"push_true", false, false},
	OpPushFalse:  {"push_false", false, false},
	OpPushSelf:   {"push_self", false, false},
	OpPushArg:    {"push_arg", false, false},
	OpPushArgc:   {"push_argc", false, false},
	OpPushRange:  {"push_range", false, false},

	OpPop:         {"pop", false, false},
	OpDup:         {"dup", false, false},
	OpCreateArray: {"create_array", false, false},
	OpBinary:      {"binary", false, false},
	OpNot:         {"not", false, false},

	OpVariableGet: {"variable_get", false, false},
	OpVariableSet: {"variable_set", false, false},

	OpSend:  {"send", false, false},
	OpYield: {"yield", false, false},

	OpIf:           {"if", true, false},
	OpWhile:        {"while", true, false},
	OpDefineBlock:  {"define_block", true, false},
	OpDefineMethod: {"define_method", true, false},
	OpTry:          {"try", true, false},

	OpElse:      {"else", false, true},
	OpWhileBody: {"while_body", false, true},
	OpCatch:     {"catch", false, true},
	OpEnd:       {"end", false, true},

	OpPushException: {"push_exception", false, false},
	OpRaise:         {"raise", false, false},
	OpReturn:        {"return", false, false},
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		m[info.Name] = op
	}
	return m
}()

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("unknown_%02x", byte(op))}
}

// Name returns the wire name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// IsOpener reports whether op opens a block closed by OpEnd.
func (op Opcode) IsOpener() bool {
	return op.Info().Opener
}

// IsMarker reports whether op delimits a block.
func (op Opcode) IsMarker() bool {
	return op.Info().Marker
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// LookupOpcode returns the opcode with the given wire name.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

// Label tags an end or else marker with the construct it closes.
type Label string

const (
	NoLabel           Label = ""
	LabelIf           Label = "if"
	LabelWhile        Label = "while"
	LabelDefineBlock  Label = "define_block"
	LabelDefineMethod Label = "define_method"
	LabelTry          Label = "try"
)

// LabelFor returns the label an opener's end marker carries.
func LabelFor(op Opcode) Label {
	switch op {
	case OpIf:
		return LabelIf
	case OpWhile:
		return LabelWhile
	case OpDefineBlock:
		return LabelDefineBlock
	case OpDefineMethod:
		return LabelDefineMethod
	case OpTry:
		return LabelTry
	}
	return NoLabel
}

// ---------------------------------------------------------------------------
// Binary operators
// ---------------------------------------------------------------------------

// Operator is the operation performed by a Binary instruction.
type Operator byte

const (
	OperatorAdd Operator = iota
	OperatorSub
	OperatorMul
	OperatorDiv
	OperatorEq
	OperatorLt
	OperatorGt
)

var operatorNames = [...]struct{ name, symbol string }{
	OperatorAdd: {"add", "+"},
	OperatorSub: {"sub", "-"},
	OperatorMul: {"mul", "*"},
	OperatorDiv: {"div", "/"},
	OperatorEq:  {"eq", "=="},
	OperatorLt:  {"lt", "<"},
	OperatorGt:  {"gt", ">"},
}

// Name returns the wire name of the operator ("add").
func (o Operator) Name() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o].name
	}
	return fmt.Sprintf("operator_%d", byte(o))
}

// Symbol returns the message the operator sends ("+").
func (o Operator) Symbol() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o].symbol
	}
	return "?"
}

// LookupOperator returns the operator with the given wire name.
func LookupOperator(name string) (Operator, bool) {
	for i, n := range operatorNames {
		if n.name == name {
			return Operator(i), true
		}
	}
	return 0, false
}
