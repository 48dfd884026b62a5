package vm

import (
	"fmt"

	"github.com/chazu/ember/ir"
)

// signal tells a caller of run why the loop stopped.
type signal int

const (
	sigNone      signal = iota // keep going
	sigDone                    // ran off the end of the sequence
	sigEnd                     // hit an end marker
	sigElse                    // hit an else marker
	sigWhileBody               // hit a while_body marker
	sigCatch                   // hit a catch marker
	sigReturn                  // executed return; the value is on the stack
)

// run executes instructions until a marker, a return, or the end of the
// sequence.
func (vm *VM) run() signal {
	for !vm.instructions.Done() {
		if sig := vm.execute(vm.instructions.Advance()); sig != sigNone {
			return sig
		}
	}
	return sigDone
}

// runUntil runs the block that starts at the cursor and is closed by
// until. The closing marker is located first, with the same scan that
// SkipBlock and FetchBlock use, so a malformed block fails before any of
// it runs. It returns sigReturn if the block returned, sigNone otherwise.
func (vm *VM) runUntil(until ir.Opcode, label ir.Label) signal {
	end := vm.instructions.BlockEnd(until, label)
	sig := vm.run()
	if sig == sigReturn {
		return sig
	}
	if vm.IP() != end+1 {
		panic(&ir.StructuralError{
			Pos:      vm.IP() - 1,
			Expected: fmt.Sprintf("the marker at %d", end),
			Found:    vm.lastInstruction(),
		})
	}
	return sigNone
}

func (vm *VM) lastInstruction() string {
	ip := vm.IP() - 1
	if ip < 0 || ip >= vm.instructions.Sequence().Len() {
		return "end of instructions"
	}
	return vm.instructions.Sequence().At(ip).String()
}

func (vm *VM) strayMarker() {
	panic(&ir.StructuralError{
		Pos:      vm.IP() - 1,
		Expected: "an instruction",
		Found:    vm.lastInstruction(),
	})
}

func (vm *VM) execute(in ir.Instruction) signal {
	switch in := in.(type) {

	// Literals
	case ir.PushInt:
		vm.Push(Integer(in.Value))
	case ir.PushFloat:
		vm.Push(Float(in.Value))
	case ir.PushString:
		vm.Push(NewString(in.Value))
	case ir.PushSymbol:
		vm.Push(Symbol(in.Name))
	case ir.PushNil:
		vm.Push(Nil)
	case ir.PushTrue:
		vm.Push(Bool(true))
	case ir.PushFalse:
		vm.Push(Bool(false))
	case ir.PushSelf:
		vm.Push(vm.self)
	case ir.PushArg:
		vm.Push(vm.Frame().Arg(in.Index))
	case ir.PushArgc:
		vm.Push(Integer(len(vm.Frame().Args)))
	case ir.PushRange:
		last := vm.Pop()
		first := vm.Pop()
		vm.Push(&Range{Begin: first, End: last, ExcludeEnd: in.ExcludeEnd})

	// Stack and operators
	case ir.Pop:
		vm.Pop()
	case ir.Dup:
		vm.Push(vm.Peek())
	case ir.CreateArray:
		vm.Push(NewArray(vm.PopN(in.Count)...))
	case ir.Binary:
		rhs := vm.Pop()
		lhs := vm.Pop()
		vm.Push(vm.Send(lhs, in.Operator.Symbol(), []Value{rhs}, nil))
	case ir.Not:
		vm.Push(Bool(!vm.Pop().Truthy()))

	// Variables
	case ir.VariableGet:
		v, ok := vm.scope.Get(in.Name)
		if !ok {
			raise("NameError", "undefined local variable '%s'", in.Name)
		}
		vm.Push(v)
	case ir.VariableSet:
		vm.scope.Set(in.Name, vm.Pop())

	// Calls
	case ir.Send:
		var blk *Block
		if in.WithBlock {
			blk = blockArg(vm.Pop())
		}
		args := vm.PopN(in.Argc)
		recv := vm.self
		if !in.ToSelf {
			recv = vm.Pop()
		}
		vm.Push(vm.Send(recv, in.Message, args, blk))
	case ir.Yield:
		args := vm.PopN(in.Argc)
		blk := vm.Frame().Block
		if blk == nil {
			raise("LocalJumpError", "no block given (yield)")
		}
		vm.Push(vm.CallBlock(blk, args, nil))

	// Structured control
	case ir.If:
		return vm.executeIf()
	case ir.While:
		return vm.executeWhile()
	case ir.DefineBlock:
		start := vm.IP()
		vm.SkipBlock(ir.OpEnd, ir.LabelDefineBlock)
		vm.Push(&Block{
			Self:  vm.self,
			Start: start,
			Arity: in.Arity,
			Scope: vm.scope,
			Code:  vm.instructions.Sequence().Slice(start, vm.IP()-1),
		})
	case ir.DefineMethod:
		start := vm.IP()
		vm.SkipBlock(ir.OpEnd, ir.LabelDefineMethod)
		vm.methods[in.Name] = &Method{Name: in.Name, Start: start, Arity: in.Arity, Scope: vm.scope}
		log.Debugf("defined method %s/%d at %d", in.Name, in.Arity, start)
		vm.Push(Symbol(in.Name))
	case ir.Try:
		return vm.executeTry()

	// Exceptions and returns
	case ir.PushException:
		if vm.exception == nil {
			vm.Push(Nil)
		} else {
			vm.Push(vm.exception)
		}
	case ir.Raise:
		v := vm.Pop()
		if e, ok := v.(*Exception); ok {
			panic(e)
		}
		raise("RuntimeError", "%s", ToS(v))
	case ir.Return:
		return sigReturn

	// Markers end the innermost running block
	case ir.End:
		return sigEnd
	case ir.Else:
		return sigElse
	case ir.WhileBody:
		return sigWhileBody
	case ir.Catch:
		return sigCatch

	default:
		panic(fmt.Sprintf("vm: unhandled instruction %T", in))
	}
	return sigNone
}

func (vm *VM) executeIf() signal {
	if vm.Pop().Truthy() {
		if sig := vm.runUntil(ir.OpElse, ir.LabelIf); sig == sigReturn {
			return sig
		}
		vm.SkipBlock(ir.OpEnd, ir.LabelIf)
		return sigNone
	}
	vm.SkipBlock(ir.OpElse, ir.LabelIf)
	return vm.runUntil(ir.OpEnd, ir.LabelIf)
}

func (vm *VM) executeWhile() signal {
	start := vm.IP()
	for {
		vm.SetIP(start)
		if sig := vm.runUntil(ir.OpWhileBody, ir.NoLabel); sig == sigReturn {
			return sig
		}
		if !vm.Pop().Truthy() {
			vm.SkipBlock(ir.OpEnd, ir.LabelWhile)
			vm.Push(Nil)
			return sigNone
		}
		if sig := vm.runUntil(ir.OpEnd, ir.LabelWhile); sig == sigReturn {
			return sig
		}
		vm.Pop()
	}
}

func (vm *VM) executeTry() signal {
	stackDepth, frameDepth := len(vm.stack), len(vm.frames)
	self, scope := vm.self, vm.scope
	handler := vm.instructions.BlockEnd(ir.OpCatch, ir.NoLabel) + 1

	sig, exc := catchException(func() signal {
		return vm.runUntil(ir.OpCatch, ir.NoLabel)
	})
	if exc == nil {
		if sig == sigReturn {
			return sig
		}
		vm.SkipBlock(ir.OpEnd, ir.LabelTry)
		return sigNone
	}

	log.Debugf("rescued %s, unwinding %d frames", exc, len(vm.frames)-frameDepth)
	vm.stack = vm.stack[:stackDepth]
	vm.frames = vm.frames[:frameDepth]
	vm.self, vm.scope = self, scope
	vm.SetIP(handler)

	outer := vm.exception
	vm.exception = exc
	defer func() { vm.exception = outer }()
	return vm.runUntil(ir.OpEnd, ir.LabelTry)
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// CallBlock invokes b with args. The receiver, scope and instruction
// pointer are saved, the body runs in a fresh scope nested in the one b
// captured, and everything is restored before the result is returned.
// Blocks may be called any number of times, including re-entrantly.
func (vm *VM) CallBlock(b *Block, args []Value, blk *Block) Value {
	return vm.invoke(b.Start, ir.LabelDefineBlock, b.Self, b.Scope, args, blk)
}

func (vm *VM) callMethod(m *Method, recv Value, args []Value, blk *Block) Value {
	if len(args) != m.Arity {
		raise("ArgumentError", "wrong number of arguments calling '%s' (given %d, expected %d)", m.Name, len(args), m.Arity)
	}
	return vm.invoke(m.Start, ir.LabelDefineMethod, recv, m.Scope, args, blk)
}

func (vm *VM) invoke(start int, label ir.Label, self Value, captured *Scope, args []Value, blk *Block) Value {
	savedSelf, savedScope := vm.self, vm.scope
	frame := &Frame{
		ReturnIP: vm.IP(),
		Args:     args,
		Self:     self,
		Scope:    NewScope(captured),
		Block:    blk,
	}
	vm.PushCall(frame)
	vm.self, vm.scope = self, frame.Scope
	vm.SetIP(start)

	vm.runUntil(ir.OpEnd, label)

	vm.PopCall()
	vm.SetIP(frame.ReturnIP)
	vm.self, vm.scope = savedSelf, savedScope

	var result Value = Nil
	if len(vm.stack) > frame.base {
		result = vm.stack[len(vm.stack)-1]
	}
	vm.stack = vm.stack[:frame.base]
	return result
}

func blockArg(v Value) *Block {
	switch v := v.(type) {
	case *Block:
		return v
	case NilType:
		return nil
	}
	raise("TypeError", "wrong argument type %s (expected Proc)", ClassName(v))
	return nil
}
