package vm

import (
	"fmt"
	"strings"
)

// builtin implements a method of the host runtime.
type builtin func(vm *VM, recv Value, args []Value, blk *Block) Value

// kind groups receivers that share a builtin method table.
type kind int

const (
	kindObject kind = iota // methods every receiver answers
	kindInteger
	kindFloat
	kindString
	kindArray
	kindRange
	kindBlock
	kindException
)

func kindOf(v Value) kind {
	switch v.(type) {
	case Integer:
		return kindInteger
	case Float:
		return kindFloat
	case *String:
		return kindString
	case *Array:
		return kindArray
	case *Range:
		return kindRange
	case *Block:
		return kindBlock
	case *Exception:
		return kindException
	}
	return kindObject
}

func (vm *VM) define(k kind, name string, fn builtin) {
	if vm.builtins[k] == nil {
		vm.builtins[k] = make(map[string]builtin)
	}
	vm.builtins[k][name] = fn
}

// Send dispatches a message. Builtins of the receiver's own type win, then
// user methods, then the methods every object answers.
func (vm *VM) Send(recv Value, name string, args []Value, blk *Block) Value {
	if k := kindOf(recv); k != kindObject {
		if fn, ok := vm.builtins[k][name]; ok {
			return fn(vm, recv, args, blk)
		}
	}
	if m, ok := vm.methods[name]; ok {
		return vm.callMethod(m, recv, args, blk)
	}
	if fn, ok := vm.builtins[kindObject][name]; ok {
		return fn(vm, recv, args, blk)
	}
	raise("NoMethodError", "undefined method '%s' for an instance of %s", name, ClassName(recv))
	return nil
}

func (vm *VM) registerBuiltins() {
	vm.builtins = make(map[kind]map[string]builtin)
	vm.registerObjectBuiltins()
	vm.registerNumericBuiltins()
	vm.registerStringBuiltins()
	vm.registerArrayBuiltins()
	vm.registerRangeBuiltins()
	vm.registerBlockBuiltins()
}

func checkArgs(name string, args []Value, n int) {
	if len(args) != n {
		raise("ArgumentError", "wrong number of arguments calling '%s' (given %d, expected %d)", name, len(args), n)
	}
}

func needBlock(name string, blk *Block) {
	if blk == nil {
		raise("LocalJumpError", "no block given (%s)", name)
	}
}

// ---------------------------------------------------------------------------
// Object
// ---------------------------------------------------------------------------

func (vm *VM) registerObjectBuiltins() {
	vm.define(kindObject, "inspect", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("inspect", args, 0)
		return NewString(recv.Inspect())
	})
	vm.define(kindObject, "to_s", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("to_s", args, 0)
		return NewString(ToS(recv))
	})
	vm.define(kindObject, "==", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("==", args, 1)
		return Bool(Equal(recv, args[0]))
	})
	vm.define(kindObject, "nil?", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("nil?", args, 0)
		return Bool(recv == Nil)
	})
	vm.define(kindObject, "puts", func(vm *VM, _ Value, args []Value, _ *Block) Value {
		if len(args) == 0 {
			fmt.Fprintln(vm.Out)
		}
		for _, a := range args {
			vm.puts(a)
		}
		return Nil
	})
	vm.define(kindObject, "p", func(vm *VM, _ Value, args []Value, _ *Block) Value {
		for _, a := range args {
			fmt.Fprintln(vm.Out, a.Inspect())
		}
		switch len(args) {
		case 0:
			return Nil
		case 1:
			return args[0]
		}
		return NewArray(args...)
	})
}

func (vm *VM) puts(v Value) {
	if a, ok := v.(*Array); ok {
		if len(a.Items) == 0 {
			fmt.Fprintln(vm.Out)
		}
		for _, item := range a.Items {
			vm.puts(item)
		}
		return
	}
	s := ToS(v)
	if strings.HasSuffix(s, "\n") {
		fmt.Fprint(vm.Out, s)
		return
	}
	fmt.Fprintln(vm.Out, s)
}

// ---------------------------------------------------------------------------
// Integer and Float
// ---------------------------------------------------------------------------

func (vm *VM) registerNumericBuiltins() {
	for _, op := range []string{"+", "-", "*", "/"} {
		arith := func(_ *VM, recv Value, args []Value, _ *Block) Value {
			checkArgs(op, args, 1)
			return arithmetic(op, recv, args[0])
		}
		vm.define(kindInteger, op, arith)
		vm.define(kindFloat, op, arith)
	}
	for _, op := range []string{"<", ">"} {
		cmp := func(_ *VM, recv Value, args []Value, _ *Block) Value {
			checkArgs(op, args, 1)
			return compare(op, recv, args[0])
		}
		vm.define(kindInteger, op, cmp)
		vm.define(kindFloat, op, cmp)
	}

	vm.define(kindInteger, "times", func(vm *VM, recv Value, args []Value, blk *Block) Value {
		checkArgs("times", args, 0)
		needBlock("times", blk)
		for i := Integer(0); i < recv.(Integer); i++ {
			vm.CallBlock(blk, []Value{i}, nil)
		}
		return recv
	})
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Integer:
		return float64(v), true
	case Float:
		return float64(v), true
	}
	return 0, false
}

func arithmetic(op string, lhs, rhs Value) Value {
	if a, ok := lhs.(Integer); ok {
		if b, ok := rhs.(Integer); ok {
			switch op {
			case "+":
				return a + b
			case "-":
				return a - b
			case "*":
				return a * b
			case "/":
				if b == 0 {
					raise("ZeroDivisionError", "divided by 0")
				}
				q := a / b
				if (a%b != 0) && ((a < 0) != (b < 0)) {
					q--
				}
				return q
			}
		}
	}
	a, _ := toFloat(lhs)
	b, ok := toFloat(rhs)
	if !ok {
		raise("TypeError", "%s can't be coerced into %s", ClassName(rhs), ClassName(lhs))
	}
	switch op {
	case "+":
		return Float(a + b)
	case "-":
		return Float(a - b)
	case "*":
		return Float(a * b)
	}
	return Float(a / b)
}

func compare(op string, lhs, rhs Value) Value {
	a, _ := toFloat(lhs)
	b, ok := toFloat(rhs)
	if !ok {
		raise("ArgumentError", "comparison of %s with %s failed", ClassName(lhs), rhs.Inspect())
	}
	if op == "<" {
		return Bool(a < b)
	}
	return Bool(a > b)
}

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

func (vm *VM) registerStringBuiltins() {
	vm.define(kindString, "+", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("+", args, 1)
		other, ok := args[0].(*String)
		if !ok {
			raise("TypeError", "no implicit conversion of %s into String", ClassName(args[0]))
		}
		return NewString(recv.(*String).S + other.S)
	})
	vm.define(kindString, "size", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("size", args, 0)
		return Integer(len([]rune(recv.(*String).S)))
	})
	vm.define(kindString, "upcase", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("upcase", args, 0)
		return NewString(strings.ToUpper(recv.(*String).S))
	})
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

func (vm *VM) registerArrayBuiltins() {
	vm.define(kindArray, "size", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("size", args, 0)
		return Integer(len(recv.(*Array).Items))
	})
	vm.define(kindArray, "first", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("first", args, 0)
		return arrayAt(recv.(*Array), 0)
	})
	vm.define(kindArray, "last", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("last", args, 0)
		return arrayAt(recv.(*Array), -1)
	})
	vm.define(kindArray, "[]", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("[]", args, 1)
		i, ok := args[0].(Integer)
		if !ok {
			raise("TypeError", "no implicit conversion of %s into Integer", ClassName(args[0]))
		}
		return arrayAt(recv.(*Array), int(i))
	})
	push := func(_ *VM, recv Value, args []Value, _ *Block) Value {
		a := recv.(*Array)
		a.Items = append(a.Items, args...)
		return a
	}
	vm.define(kindArray, "push", push)
	vm.define(kindArray, "<<", func(vm *VM, recv Value, args []Value, blk *Block) Value {
		checkArgs("<<", args, 1)
		return push(vm, recv, args, blk)
	})
	vm.define(kindArray, "each", func(vm *VM, recv Value, args []Value, blk *Block) Value {
		checkArgs("each", args, 0)
		needBlock("each", blk)
		for _, item := range recv.(*Array).Items {
			vm.CallBlock(blk, []Value{item}, nil)
		}
		return recv
	})
	vm.define(kindArray, "map", func(vm *VM, recv Value, args []Value, blk *Block) Value {
		checkArgs("map", args, 0)
		needBlock("map", blk)
		items := recv.(*Array).Items
		out := make([]Value, len(items))
		for i, item := range items {
			out[i] = vm.CallBlock(blk, []Value{item}, nil)
		}
		return NewArray(out...)
	})
}

func arrayAt(a *Array, i int) Value {
	if i < 0 {
		i += len(a.Items)
	}
	if i < 0 || i >= len(a.Items) {
		return Nil
	}
	return a.Items[i]
}

// ---------------------------------------------------------------------------
// Range
// ---------------------------------------------------------------------------

func (vm *VM) registerRangeBuiltins() {
	vm.define(kindRange, "begin", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("begin", args, 0)
		return recv.(*Range).Begin
	})
	vm.define(kindRange, "end", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("end", args, 0)
		return recv.(*Range).End
	})
	vm.define(kindRange, "exclude_end?", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("exclude_end?", args, 0)
		return Bool(recv.(*Range).ExcludeEnd)
	})
	vm.define(kindRange, "to_a", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("to_a", args, 0)
		var items []Value
		if n := rangeLen(recv.(*Range)); n > maxRangeArray {
			raise("RangeError", "cannot convert a range of %d elements to an array", n)
		}
		eachInRange(recv.(*Range), func(i Integer) { items = append(items, i) })
		return NewArray(items...)
	})
	vm.define(kindRange, "each", func(vm *VM, recv Value, args []Value, blk *Block) Value {
		checkArgs("each", args, 0)
		needBlock("each", blk)
		eachInRange(recv.(*Range), func(i Integer) {
			vm.CallBlock(blk, []Value{i}, nil)
		})
		return recv
	})
}

// maxRangeArray bounds Range#to_a.
const maxRangeArray = 1 << 24

// rangeBounds returns the inclusive integer bounds of r; ok is false for
// an empty range.
func rangeBounds(r *Range) (first, last Integer, ok bool) {
	first, ok1 := r.Begin.(Integer)
	last, ok2 := r.End.(Integer)
	if !ok1 || !ok2 {
		raise("TypeError", "can't iterate from %s", ClassName(r.Begin))
	}
	if r.ExcludeEnd {
		if last <= first {
			return 0, 0, false
		}
		last--
	}
	return first, last, first <= last
}

// rangeLen counts the elements of r, saturating at the largest uint64.
func rangeLen(r *Range) uint64 {
	first, last, ok := rangeBounds(r)
	if !ok {
		return 0
	}
	span := uint64(last) - uint64(first)
	if span == ^uint64(0) {
		return span
	}
	return span + 1
}

// eachInRange calls fn for every element of r in order. The loop stops on
// reaching last rather than testing i <= last, so MaxInt64 terminates.
func eachInRange(r *Range, fn func(Integer)) {
	first, last, ok := rangeBounds(r)
	if !ok {
		return
	}
	for i := first; ; i++ {
		fn(i)
		if i == last {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Block and Exception
// ---------------------------------------------------------------------------

func (vm *VM) registerBlockBuiltins() {
	vm.define(kindBlock, "call", func(vm *VM, recv Value, args []Value, blk *Block) Value {
		return vm.CallBlock(recv.(*Block), args, blk)
	})
	vm.define(kindBlock, "arity", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("arity", args, 0)
		return Integer(recv.(*Block).Arity)
	})
	vm.define(kindException, "message", func(_ *VM, recv Value, args []Value, _ *Block) Value {
		checkArgs("message", args, 0)
		return NewString(recv.(*Exception).Message)
	})
}
