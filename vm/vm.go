package vm

import (
	"io"
	"os"

	"github.com/chazu/ember/ir"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ember.vm")

// DefaultMaxFrames bounds call depth when no limit is configured.
const DefaultMaxFrames = 10000

// VM interprets an instruction sequence directly. The manager's cursor is
// the instruction pointer.
type VM struct {
	instructions *ir.Manager
	stack        []Value
	frames       []*Frame
	self         Value
	scope        *Scope
	root         *Scope // top-level scope, kept across runs
	methods      map[string]*Method
	builtins     map[kind]map[string]builtin
	exception    *Exception // exception being handled by the innermost catch arm

	Out       io.Writer
	MaxFrames int
	Main      *Object
}

// Option configures a VM.
type Option func(*VM)

// WithOutput directs puts and p to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.Out = w }
}

// WithMaxFrames sets the call depth at which SystemStackError is raised.
func WithMaxFrames(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.MaxFrames = n
		}
	}
}

// New creates a VM for seq.
func New(seq ir.Sequence, opts ...Option) *VM {
	vm := &VM{
		instructions: ir.NewManager(seq),
		methods:      make(map[string]*Method),
		Out:          os.Stdout,
		MaxFrames:    DefaultMaxFrames,
		Main:         &Object{Name: "main"},
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.self = vm.Main
	vm.root = NewScope(nil)
	vm.scope = vm.root
	vm.registerBuiltins()
	return vm
}

// Run executes the sequence from the start and returns the value left on
// top of the operand stack, or nil when the stack is empty. Structural and
// stack errors are returned as *ir.StructuralError and *ir.StackError; an
// exception nothing caught is returned as *Exception.
func (vm *VM) Run() (result Value, err error) {
	defer recoverRun(&err)

	vm.instructions.SetIP(0)
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.self = vm.Main
	vm.scope = vm.root
	vm.exception = nil
	vm.PushCall(&Frame{ReturnIP: -1, Self: vm.Main, Scope: vm.scope})

	log.Debugf("run: %d instructions", vm.instructions.Sequence().Len())
	sig := vm.run()
	if sig != sigDone && sig != sigReturn {
		vm.strayMarker()
	}
	if len(vm.stack) == 0 {
		return Nil, nil
	}
	return vm.stack[len(vm.stack)-1], nil
}

func recoverRun(err *error) {
	r := recover()
	if r == nil {
		return
	}
	switch e := r.(type) {
	case *Exception:
		log.Debugf("unhandled %s", e)
		*err = e
	case *ir.StructuralError:
		*err = e
	case *ir.StackError:
		*err = e
	default:
		panic(r)
	}
}

// ---------------------------------------------------------------------------
// Registers
// ---------------------------------------------------------------------------

// IP returns the index of the next instruction.
func (vm *VM) IP() int { return vm.instructions.IP() }

// SetIP moves the instruction pointer.
func (vm *VM) SetIP(ip int) { vm.instructions.SetIP(ip) }

// Self returns the current receiver.
func (vm *VM) Self() Value { return vm.self }

// SetSelf replaces the current receiver.
func (vm *VM) SetSelf(v Value) { vm.self = v }

// Scope returns the current local scope.
func (vm *VM) Scope() *Scope { return vm.scope }

// SkipBlock moves the instruction pointer past the block closed by until.
func (vm *VM) SkipBlock(until ir.Opcode, label ir.Label) {
	vm.instructions.SkipBlock(until, label)
}

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

func (vm *VM) Push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) Pop() Value {
	if len(vm.stack) == 0 {
		panic(vm.stackError())
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) Peek() Value {
	if len(vm.stack) == 0 {
		panic(vm.stackError())
	}
	return vm.stack[len(vm.stack)-1]
}

// PopN pops n values and returns them in push order.
func (vm *VM) PopN(n int) []Value {
	if n < 0 || n > len(vm.stack) {
		panic(vm.stackError())
	}
	out := make([]Value, n)
	copy(out, vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
	return out
}

// StackDepth returns the number of values on the operand stack.
func (vm *VM) StackDepth() int { return len(vm.stack) }

func (vm *VM) stackError() *ir.StackError {
	ip := vm.IP() - 1
	seq := vm.instructions.Sequence()
	if ip < 0 || ip >= seq.Len() {
		return &ir.StackError{Pos: -1}
	}
	return &ir.StackError{Pos: ip, Instr: seq.At(ip).String()}
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// PushCall pushes a frame. Exceeding MaxFrames raises SystemStackError.
func (vm *VM) PushCall(f *Frame) {
	if len(vm.frames) >= vm.MaxFrames {
		raise("SystemStackError", "stack level too deep")
	}
	f.base = len(vm.stack)
	vm.frames = append(vm.frames, f)
}

// PopCall pops and returns the current frame.
func (vm *VM) PopCall() *Frame {
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	return f
}

// Frame returns the current frame.
func (vm *VM) Frame() *Frame { return vm.frames[len(vm.frames)-1] }

// FrameDepth returns the number of active frames, the root included.
func (vm *VM) FrameDepth() int { return len(vm.frames) }

// Methods returns the names of the user-defined methods.
func (vm *VM) Methods() []string {
	names := make([]string, 0, len(vm.methods))
	for name := range vm.methods {
		names = append(names, name)
	}
	return names
}
