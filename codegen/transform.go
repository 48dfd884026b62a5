package codegen

import (
	"strings"

	"github.com/chazu/ember/ir"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ember.codegen")

// Transform turns one instruction sequence into C++ statements. It keeps a
// stack of value handles: each handle is a C++ expression, usually a
// temporary, standing for the value an instruction produced. The void
// handle "" stands for "no value" and is never emitted.
//
// A Transform owns its stack and statement buffer. The Context is shared
// with every Transform of the same unit, and the Env may be shared with
// siblings created by WithSameScope.
type Transform struct {
	instructions *ir.Manager
	stack        []string
	code         []string
	ctx          *Context
	env          *Env
	current      ir.Instruction
}

// New creates the root Transform of a compilation unit.
func New(seq ir.Sequence, ctx *Context) *Transform {
	return newTransform(seq, ctx, NewEnv(nil), nil)
}

func newTransform(seq ir.Sequence, ctx *Context, env *Env, stack []string) *Transform {
	return &Transform{
		instructions: ir.NewManager(seq),
		stack:        stack,
		ctx:          ctx,
		env:          env,
	}
}

// ---------------------------------------------------------------------------
// Driving
// ---------------------------------------------------------------------------

// Generate walks every instruction and pops the final handle. It returns
// the accumulated statements and that handle separately.
func (t *Transform) Generate() (code string, result string) {
	t.instructions.Walk(func(in ir.Instruction) {
		t.current = in
		t.generate(in)
	})
	result = t.Pop()
	return joinLines(t.code...), result
}

// Run walks every instruction and folds the statements and the final
// handle into one block of code. When resultPrefix is non-empty the final
// handle is emitted as "<resultPrefix> <handle>;" (for example "return" or
// "if3 =").
func (t *Transform) Run(resultPrefix string) string {
	code, result := t.Generate()
	if result == "" {
		return code
	}
	if resultPrefix != "" {
		result = resultPrefix + " " + result
	}
	return joinLines(code, Terminate(result))
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Exec appends statements to the buffer. Void handles are dropped.
func (t *Transform) Exec(lines ...string) {
	for _, line := range lines {
		if line == "" {
			continue
		}
		t.code = append(t.code, Terminate(line))
	}
}

// Memoize binds code to a fresh temporary and returns its name.
func (t *Transform) Memoize(hint, code string) string {
	name := t.Temp(hint)
	t.Exec("auto " + name + " = " + code)
	return name
}

// ExecAndPush memoizes code and pushes the temporary.
func (t *Transform) ExecAndPush(hint, code string) {
	t.Push(t.Memoize(hint, code))
}

// Terminate adds a semicolon unless the line already ends a statement or
// opens or closes a brace block.
func Terminate(line string) string {
	line = strings.TrimRight(line, " \t\n")
	if line == "" {
		return line
	}
	switch line[len(line)-1] {
	case ';', '{', '}':
		return line
	}
	return line + ";"
}

// joinLines joins the non-empty lines.
func joinLines(lines ...string) string {
	var out []string
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// ---------------------------------------------------------------------------
// Value stack
// ---------------------------------------------------------------------------

// Push pushes a handle.
func (t *Transform) Push(handle string) {
	t.stack = append(t.stack, handle)
}

// Pop removes and returns the top handle. An empty stack is fatal.
func (t *Transform) Pop() string {
	if len(t.stack) == 0 {
		panic(t.stackError())
	}
	h := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return h
}

// PopN pops n handles and returns them in push order.
func (t *Transform) PopN(n int) []string {
	if n < 0 || n > len(t.stack) {
		panic(t.stackError())
	}
	out := make([]string, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = t.Pop()
	}
	return out
}

// Peek returns the top handle without removing it.
func (t *Transform) Peek() string {
	if len(t.stack) == 0 {
		panic(t.stackError())
	}
	return t.stack[len(t.stack)-1]
}

// Depth returns the number of handles on the stack.
func (t *Transform) Depth() int { return len(t.stack) }

func (t *Transform) stackError() *ir.StackError {
	if t.current == nil {
		return &ir.StackError{Pos: -1}
	}
	return &ir.StackError{Pos: t.instructions.IP() - 1, Instr: t.current.String()}
}

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

// Env returns the current scope frame.
func (t *Transform) Env() *Env { return t.env }

// Vars returns a copy of the current frame's variables.
func (t *Transform) Vars() map[string]Slot { return t.env.Vars() }

// PushScope enters a fresh frame nested in the current one.
func (t *Transform) PushScope() { t.env = NewEnv(t.env) }

// PopScope returns to the enclosing frame. Popping the root is a no-op.
func (t *Transform) PopScope() {
	if t.env.parent != nil {
		t.env = t.env.parent
	}
}

// FetchBlock extracts the instructions up to the closing marker.
func (t *Transform) FetchBlock(until ir.Opcode, label ir.Label) ir.Sequence {
	return t.instructions.FetchBlock(until, label)
}

// WithNewScope runs fn on a child Transform over seq. The child starts with
// an empty stack and a frame nested in the current one.
func (t *Transform) WithNewScope(seq ir.Sequence, fn func(*Transform)) {
	fn(newTransform(seq, t.ctx, NewEnv(t.env), nil))
}

// WithSameScope runs fn on a sibling Transform over seq. The sibling shares
// the current frame and starts with a copy of the current stack, so what it
// pops is invisible here.
func (t *Transform) WithSameScope(seq ir.Sequence, fn func(*Transform)) {
	stack := make([]string, len(t.stack))
	copy(stack, t.stack)
	fn(newTransform(seq, t.ctx, t.env, stack))
}

// Top hoists lines, joined, as one top-level declaration.
func (t *Transform) Top(lines ...string) {
	t.ctx.Hoist(joinLines(lines...))
}

// Temp returns a fresh temporary name.
func (t *Transform) Temp(hint string) string { return t.ctx.Temp(hint) }

// Context returns the unit's shared state.
func (t *Transform) Context() *Context { return t.ctx }
