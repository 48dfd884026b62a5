package codegen

// Slot locates a variable inside its scope frame.
type Slot struct {
	Index int
}

// Env is one frame of the lexical scope chain used while generating code.
// The parent pointer is a non-owning back reference: a frame never outlives
// the Transform that created it and never writes to its parent.
type Env struct {
	vars   map[string]Slot
	parent *Env
}

// NewEnv creates a frame whose free variables resolve through parent.
// A nil parent makes a root frame.
func NewEnv(parent *Env) *Env {
	return &Env{vars: make(map[string]Slot), parent: parent}
}

// Parent returns the enclosing frame, or nil for the root.
func (e *Env) Parent() *Env { return e.parent }

// Declare introduces name in this frame and returns its slot. Declaring a
// name twice returns the existing slot.
func (e *Env) Declare(name string) Slot {
	if s, ok := e.vars[name]; ok {
		return s
	}
	s := Slot{Index: len(e.vars)}
	e.vars[name] = s
	return s
}

// Lookup resolves name through the chain. depth is the number of frames
// walked outward (0 for this frame).
func (e *Env) Lookup(name string) (slot Slot, depth int, ok bool) {
	for f := e; f != nil; f = f.parent {
		if s, found := f.vars[name]; found {
			return s, depth, true
		}
		depth++
	}
	return Slot{}, 0, false
}

// Vars returns a copy of this frame's variables.
func (e *Env) Vars() map[string]Slot {
	out := make(map[string]Slot, len(e.vars))
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}
