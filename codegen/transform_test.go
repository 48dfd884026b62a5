package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/ember/ir"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Context and Env
// ---------------------------------------------------------------------------

func TestContext_TempIsUnique(t *testing.T) {
	ctx := NewContext("ember_")
	require.Equal(t, "ember_ab1", ctx.Temp("a+b"))
	require.Equal(t, "ember_ab2", ctx.Temp("a+b"))
	require.Equal(t, "ember_3", ctx.Temp("?!"))
	require.Equal(t, 3, ctx.VarNum)
}

func TestContext_HoistKeepsOrder(t *testing.T) {
	ctx := NewContext("")
	ctx.Hoist("a")
	ctx.Hoist("b")
	top := ctx.Top()
	require.Equal(t, []string{"a", "b"}, top)

	top[0] = "z"
	require.Equal(t, "a", ctx.Top()[0])
}

func TestEnv_LookupWalksChain(t *testing.T) {
	root := NewEnv(nil)
	root.Declare("x")
	root.Declare("y")
	child := NewEnv(root)
	child.Declare("z")

	slot, depth, ok := child.Lookup("y")
	require.True(t, ok)
	require.Equal(t, 1, depth)
	require.Equal(t, 1, slot.Index)

	slot, depth, ok = child.Lookup("z")
	require.True(t, ok)
	require.Equal(t, 0, depth)
	require.Equal(t, 0, slot.Index)

	_, _, ok = root.Lookup("z")
	require.False(t, ok, "parents never see child variables")

	require.Equal(t, Slot{Index: 0}, root.Declare("x"), "redeclaring returns the existing slot")
	require.Same(t, root, child.Parent())
}

func TestEnv_VarsIsACopy(t *testing.T) {
	e := NewEnv(nil)
	e.Declare("a")
	vars := e.Vars()
	vars["b"] = Slot{Index: 9}
	_, _, ok := e.Lookup("b")
	require.False(t, ok)
}

func TestTerminate(t *testing.T) {
	require.Equal(t, "x;", Terminate("x"))
	require.Equal(t, "x;", Terminate("x;"))
	require.Equal(t, "if (c) {", Terminate("if (c) {"))
	require.Equal(t, "}", Terminate("}  "))
	require.Equal(t, "", Terminate(""))
}

// ---------------------------------------------------------------------------
// Stack discipline
// ---------------------------------------------------------------------------

func TestTransform_AddAndReturn(t *testing.T) {
	tr := New(ir.Sequence{
		ir.PushInt{Value: 1},
		ir.PushInt{Value: 2},
		ir.Add(),
		ir.Return{},
	}, NewContext(""))

	out := tr.Run("")
	require.Equal(t,
		"auto add1 = Value::integer(1).send(env, \"+\"_s, { Value::integer(2) });\n"+
			"return add1;",
		out)
	require.Equal(t, 0, tr.Depth())
}

func TestTransform_StackBalance(t *testing.T) {
	tr := New(ir.Sequence{
		ir.PushInt{Value: 1},
		ir.Pop{},
		ir.PushTrue{},
		ir.Not{},
	}, NewContext(""))

	out := tr.Run("return")
	require.Equal(t, "Value::integer(1);\nreturn bool_object(!Value::True().is_truthy());", out)
	require.Equal(t, 0, tr.Depth())
}

func TestTransform_PopEmptyPanics(t *testing.T) {
	tr := New(nil, NewContext(""))
	require.PanicsWithError(t, "ran out of stack", func() { tr.Pop() })
	require.Panics(t, func() { tr.Peek() })
}

func TestTransform_SameScopeIsolation(t *testing.T) {
	tr := New(nil, NewContext(""))
	tr.Push("x")
	tr.Push("y")

	var out string
	tr.WithSameScope(ir.Sequence{ir.Pop{}, ir.Pop{}, ir.PushNil{}}, func(c *Transform) {
		out = c.Run("")
		require.Same(t, tr.Env(), c.Env())
	})

	require.Equal(t, "y;\nx;\nValue::nil();", out)
	require.Equal(t, 2, tr.Depth(), "sibling pops do not reach the parent")
	require.Equal(t, "y", tr.Peek())
}

func TestTransform_NewScopeNests(t *testing.T) {
	tr := New(nil, NewContext(""))
	tr.Push("x")
	tr.WithNewScope(nil, func(c *Transform) {
		require.Equal(t, 0, c.Depth())
		require.Same(t, tr.Env(), c.Env().Parent())
		require.Same(t, tr.Context(), c.Context())
	})
}

func TestTransform_PushPopScope(t *testing.T) {
	tr := New(nil, NewContext(""))
	root := tr.Env()
	tr.PushScope()
	require.Same(t, root, tr.Env().Parent())
	tr.PopScope()
	require.Same(t, root, tr.Env())
	tr.PopScope()
	require.Same(t, root, tr.Env(), "popping the root is a no-op")
}

func TestTransform_Dup(t *testing.T) {
	out := New(ir.Sequence{
		ir.PushString{Value: "a"},
		ir.Dup{},
		ir.Pop{},
		ir.Return{},
	}, NewContext("")).Run("")

	require.Equal(t, "auto dup1 = new StringObject(\"a\");\ndup1;\nreturn dup1;", out)
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func TestTransform_If(t *testing.T) {
	out := New(ir.Sequence{
		ir.PushTrue{},
		ir.If{},
		ir.PushInt{Value: 1},
		ir.Else{Label: ir.LabelIf},
		ir.PushInt{Value: 2},
		ir.End{Label: ir.LabelIf},
		ir.Return{},
	}, NewContext("")).Run("")

	require.Equal(t, strings.Join([]string{
		"Value if1;",
		"if (Value::True().is_truthy()) {",
		"if1 = Value::integer(1);",
		"} else {",
		"if1 = Value::integer(2);",
		"}",
		"return if1;",
	}, "\n"), out)
}

func TestTransform_While(t *testing.T) {
	out := New(ir.Sequence{
		ir.PushInt{Value: 0},
		ir.VariableSet{Name: "i"},
		ir.While{},
		ir.VariableGet{Name: "i"},
		ir.PushInt{Value: 3},
		ir.Lt(),
		ir.WhileBody{},
		ir.VariableGet{Name: "i"},
		ir.PushInt{Value: 1},
		ir.Add(),
		ir.VariableSet{Name: "i"},
		ir.PushNil{},
		ir.End{Label: ir.LabelWhile},
		ir.Pop{},
		ir.VariableGet{Name: "i"},
		ir.Return{},
	}, NewContext("")).Run("")

	require.Contains(t, out, `env->var_set("i", 0, true, Value::integer(0));`)
	require.Contains(t, out, "while (true) {\nauto i1 = env->var_get(\"i\", 0);")
	require.Contains(t, out, "if (!lt2.is_truthy()) break;")
	require.Contains(t, out, `env->var_set("i", 0, true, add4);`)
	require.True(t, strings.HasSuffix(out, "return i5;"), out)
}

func TestTransform_Try(t *testing.T) {
	out := New(ir.Sequence{
		ir.Try{},
		ir.PushString{Value: "boom"},
		ir.Raise{},
		ir.Catch{},
		ir.PushException{},
		ir.End{Label: ir.LabelTry},
		ir.Return{},
	}, NewContext("")).Run("")

	require.Equal(t, strings.Join([]string{
		"Value try1;",
		"try {",
		`env->raise("RuntimeError", new StringObject("boom"));`,
		"try1 = Value::nil();",
		"} catch (ExceptionObject *exception) {",
		"try1 = Value(exception);",
		"}",
		"return try1;",
	}, "\n"), out)
}

func TestTransform_SendAndYield(t *testing.T) {
	out := New(ir.Sequence{
		ir.PushSelf{},
		ir.PushInt{Value: 1},
		ir.Send{Message: "puts", Argc: 1},
		ir.Pop{},
		ir.PushArgc{},
		ir.Yield{Argc: 1},
		ir.PushSymbol{Name: "k"},
		ir.Send{Message: "fetch", Argc: 1, ToSelf: true},
		ir.CreateArray{Count: 2},
	}, NewContext("")).Run("return")

	require.Equal(t, strings.Join([]string{
		`auto puts1 = self.send(env, "puts"_s, { Value::integer(1) }, nullptr);`,
		"puts1;",
		"auto yield2 = block->run(env, { Value::integer(argc) }, nullptr);",
		`auto fetch3 = self.send(env, "fetch"_s, { Value("k"_s) }, nullptr);`,
		"auto array4 = new ArrayObject({ yield2, fetch3 });",
		"return array4;",
	}, "\n"), out)
}

// ---------------------------------------------------------------------------
// Scoped variables
// ---------------------------------------------------------------------------

func TestTransform_VariablesResolveThroughScopes(t *testing.T) {
	ctx := NewContext("ember_")
	tr := New(ir.Sequence{
		ir.PushInt{Value: 1},
		ir.VariableSet{Name: "x"},
		ir.DefineBlock{Arity: 0},
		ir.VariableGet{Name: "x"},
		ir.VariableSet{Name: "y"},
		ir.VariableGet{Name: "y"},
		ir.End{Label: ir.LabelDefineBlock},
		ir.Return{},
	}, ctx)
	out := tr.Run("")

	require.Equal(t, strings.Join([]string{
		`env->var_set("x", 0, true, Value::integer(1));`,
		"return (new Block(env, self, ember_block1, 0));",
	}, "\n"), out)

	top := ctx.Top()
	require.Len(t, top, 1)
	require.Contains(t, top[0], `auto ember_x2 = env->outer()->var_get("x", 0);`)
	require.Contains(t, top[0], `env->var_set("y", 0, true, ember_x2);`)
	require.Contains(t, top[0], `auto ember_y3 = env->var_get("y", 0);`)

	require.Equal(t, map[string]Slot{"x": {Index: 0}}, tr.Vars(), "block locals stay in the block frame")
}

// ---------------------------------------------------------------------------
// Fatal errors
// ---------------------------------------------------------------------------

func TestCompile_UndeclaredVariable(t *testing.T) {
	prog, err := Compile(ir.Sequence{ir.VariableGet{Name: "nope"}}, Options{})
	require.Nil(t, prog)
	var se *ir.StructuralError
	require.True(t, errors.As(err, &se), "got %v", err)
	require.Equal(t, "variable_get nope", se.Found)
}

func TestCompile_StackUnderflow(t *testing.T) {
	prog, err := Compile(ir.Sequence{ir.Add()}, Options{})
	require.Nil(t, prog)
	var se *ir.StackError
	require.True(t, errors.As(err, &se), "got %v", err)
	require.Equal(t, 0, se.Pos)
	require.Equal(t, "add", se.Instr)
}
