package vm

import (
	"fmt"

	"github.com/chazu/ember/ir"
)

// Frame is one activation of a block or method. The root frame has a
// ReturnIP of -1.
type Frame struct {
	ReturnIP int     // where execution resumes when the frame is popped
	Args     []Value // arguments passed to the call
	Self     Value   // receiver inside the frame
	Scope    *Scope  // local variables of the call
	Block    *Block  // block passed to the call, nil if none

	base int // operand stack depth at entry
}

// Arg returns argument i, or nil when fewer were passed.
func (f *Frame) Arg(i int) Value {
	if i < 0 || i >= len(f.Args) {
		return Nil
	}
	return f.Args[i]
}

// Block is a closure over a body in the running sequence. It holds the
// index of the body's first instruction, not the instructions themselves;
// calling it jumps there and runs to the closing end marker.
type Block struct {
	Self  Value       // receiver captured at definition
	Start int         // first instruction of the body
	Arity int         // declared parameter count
	Scope *Scope      // scope captured at definition
	Code  ir.Sequence // copy of the body, for inspection
}

func (b *Block) Inspect() string {
	return fmt.Sprintf("#<Proc:%d arity=%d>", b.Start, b.Arity)
}

func (*Block) Truthy() bool { return true }

// Method is a user method defined by define_method. Methods are global:
// any receiver responds to them.
type Method struct {
	Name  string
	Start int
	Arity int
	Scope *Scope
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

// Scope is one frame of local variables. Lookups fall through to the
// parent, the scope a block or method was defined in.
type Scope struct {
	vars   map[string]Value
	parent *Scope
}

// NewScope creates a scope nested in parent, which may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]Value), parent: parent}
}

// Get resolves name through the chain.
func (s *Scope) Get(name string) (Value, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set assigns to the nearest scope that defines name, or defines it here.
func (s *Scope) Set(name string, v Value) {
	for f := s; f != nil; f = f.parent {
		if _, ok := f.vars[name]; ok {
			f.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope { return s.parent }
