package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/ember/ir"
)

// blockSignature is shared by hoisted block and method bodies.
const blockSignature = "(Env *env, Value self, size_t argc, Value *args, Block *block)"

func (t *Transform) generate(in ir.Instruction) {
	switch in := in.(type) {

	// Literals
	case ir.PushInt:
		t.Push(fmt.Sprintf("Value::integer(%d)", in.Value))
	case ir.PushFloat:
		t.Push("Value::floatingpoint(" + strconv.FormatFloat(in.Value, 'g', -1, 64) + ")")
	case ir.PushString:
		t.Push("new StringObject(" + strconv.Quote(in.Value) + ")")
	case ir.PushSymbol:
		t.Push(symbol(in.Name))
	case ir.PushNil:
		t.Push("Value::nil()")
	case ir.PushTrue:
		t.Push("Value::True()")
	case ir.PushFalse:
		t.Push("Value::False()")
	case ir.PushSelf:
		t.Push("self")
	case ir.PushArg:
		t.Push(fmt.Sprintf("args[%d]", in.Index))
	case ir.PushArgc:
		t.Push("Value::integer(argc)")
	case ir.PushRange:
		last := t.Pop()
		first := t.Pop()
		t.ExecAndPush("range", fmt.Sprintf("new RangeObject(%s, %s, %t)", first, last, in.ExcludeEnd))

	// Stack and operators
	case ir.Pop:
		t.Exec(t.Pop())
	case ir.Dup:
		v := t.Pop()
		if !isIdentifier(v) {
			v = t.Memoize("dup", v)
		}
		t.Push(v)
		t.Push(v)
	case ir.CreateArray:
		items := t.PopN(in.Count)
		if len(items) == 0 {
			t.ExecAndPush("array", "new ArrayObject()")
			break
		}
		t.ExecAndPush("array", "new ArrayObject({ "+strings.Join(items, ", ")+" })")
	case ir.Binary:
		rhs := t.Pop()
		lhs := t.Pop()
		t.ExecAndPush(in.Operator.Name(), send(lhs, in.Operator.Symbol(), []string{rhs}, ""))
	case ir.Not:
		t.Push(fmt.Sprintf("bool_object(!%s.is_truthy())", t.Pop()))

	// Variables
	case ir.VariableGet:
		slot, depth, ok := t.env.Lookup(in.Name)
		if !ok {
			panic(&ir.StructuralError{
				Pos:      t.instructions.IP() - 1,
				Expected: "a declared variable",
				Found:    in.String(),
			})
		}
		t.ExecAndPush(in.Name, fmt.Sprintf("%s->var_get(%s, %d)", envAt(depth), strconv.Quote(in.Name), slot.Index))
	case ir.VariableSet:
		v := t.Pop()
		slot, depth, ok := t.env.Lookup(in.Name)
		if !ok {
			slot, depth = t.env.Declare(in.Name), 0
		}
		t.Exec(fmt.Sprintf("%s->var_set(%s, %d, true, %s)", envAt(depth), strconv.Quote(in.Name), slot.Index, v))

	// Calls
	case ir.Send:
		blk := "nullptr"
		if in.WithBlock {
			blk = t.Pop()
		}
		args := t.PopN(in.Argc)
		recv := "self"
		if !in.ToSelf {
			recv = t.Pop()
		}
		t.ExecAndPush(in.Message, send(recv, in.Message, args, blk))
	case ir.Yield:
		args := t.PopN(in.Argc)
		t.ExecAndPush("yield", fmt.Sprintf("block->run(env, %s, nullptr)", argList(args)))

	// Structured control
	case ir.If:
		t.generateIf()
	case ir.While:
		t.generateWhile()
	case ir.DefineBlock:
		fn := t.hoistBody("block", t.FetchBlock(ir.OpEnd, ir.LabelDefineBlock))
		t.Push(fmt.Sprintf("(new Block(env, self, %s, %d))", fn, in.Arity))
	case ir.DefineMethod:
		fn := t.hoistBody("method", t.FetchBlock(ir.OpEnd, ir.LabelDefineMethod))
		t.Exec(fmt.Sprintf("self->define_method(env, %s_s, %s, %d)", strconv.Quote(in.Name), fn, in.Arity))
		t.Push(symbol(in.Name))
	case ir.Try:
		t.generateTry()

	// Exceptions and returns
	case ir.PushException:
		t.Push("Value(exception)")
	case ir.Raise:
		t.Exec(fmt.Sprintf(`env->raise("RuntimeError", %s)`, t.Pop()))
		t.Push("Value::nil()")
	case ir.Return:
		t.Exec("return " + t.Pop())
		t.Push("")

	case ir.Else, ir.WhileBody, ir.Catch, ir.End:
		panic(&ir.StructuralError{
			Pos:      t.instructions.IP() - 1,
			Expected: "an instruction",
			Found:    in.String(),
		})

	default:
		panic(fmt.Sprintf("codegen: unhandled instruction %T", in))
	}
}

func (t *Transform) generateIf() {
	cond := t.Pop()
	thenArm := t.FetchBlock(ir.OpElse, ir.LabelIf)
	elseArm := t.FetchBlock(ir.OpEnd, ir.LabelIf)

	result := t.Temp("if")
	var thenCode, elseCode string
	t.WithSameScope(thenArm, func(c *Transform) { thenCode = c.Run(result + " =") })
	t.WithSameScope(elseArm, func(c *Transform) { elseCode = c.Run(result + " =") })

	t.Exec("Value " + result)
	t.Exec(joinLines(
		fmt.Sprintf("if (%s.is_truthy()) {", cond),
		thenCode,
		"} else {",
		elseCode,
		"}",
	))
	t.Push(result)
}

func (t *Transform) generateWhile() {
	condSeq := t.FetchBlock(ir.OpWhileBody, ir.NoLabel)
	bodySeq := t.FetchBlock(ir.OpEnd, ir.LabelWhile)

	var condCode, cond, bodyCode string
	t.WithSameScope(condSeq, func(c *Transform) { condCode, cond = c.Generate() })
	t.WithSameScope(bodySeq, func(c *Transform) { bodyCode = c.Run("") })

	t.Exec(joinLines(
		"while (true) {",
		condCode,
		fmt.Sprintf("if (!%s.is_truthy()) break;", cond),
		bodyCode,
		"}",
	))
	t.Push("Value::nil()")
}

func (t *Transform) generateTry() {
	bodySeq := t.FetchBlock(ir.OpCatch, ir.NoLabel)
	handlerSeq := t.FetchBlock(ir.OpEnd, ir.LabelTry)

	result := t.Temp("try")
	var bodyCode, handlerCode string
	t.WithSameScope(bodySeq, func(c *Transform) { bodyCode = c.Run(result + " =") })
	t.WithSameScope(handlerSeq, func(c *Transform) { handlerCode = c.Run(result + " =") })

	t.Exec("Value " + result)
	t.Exec(joinLines(
		"try {",
		bodyCode,
		"} catch (ExceptionObject *exception) {",
		handlerCode,
		"}",
	))
	t.Push(result)
}

// hoistBody generates body in a fresh nested scope, hoists it as a function
// definition and returns the function's name. Functions nested in body are
// hoisted first.
func (t *Transform) hoistBody(hint string, body ir.Sequence) string {
	fn := t.Temp(hint)
	t.WithNewScope(body, func(c *Transform) {
		code := c.Run("return")
		t.Top("Value "+fn+blockSignature+" {", code, "}")
	})
	log.Debugf("hoisted %s (%d instructions)", fn, len(body))
	return fn
}

// ---------------------------------------------------------------------------
// Rendering helpers
// ---------------------------------------------------------------------------

func symbol(name string) string {
	return "Value(" + strconv.Quote(name) + "_s)"
}

// send renders a message send. An empty blk omits the block argument.
func send(recv, message string, args []string, blk string) string {
	call := fmt.Sprintf("%s.send(env, %s_s, %s", recv, strconv.Quote(message), argList(args))
	if blk != "" {
		call += ", " + blk
	}
	return call + ")"
}

func argList(args []string) string {
	if len(args) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(args, ", ") + " }"
}

// envAt renders the frame depth levels out from the current one.
func envAt(depth int) string {
	return "env" + strings.Repeat("->outer()", depth)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		switch {
		case ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
		case i > 0 && ch >= '0' && ch <= '9':
		default:
			return false
		}
	}
	return true
}
