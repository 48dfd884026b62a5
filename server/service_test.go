package server

import (
	"testing"

	"github.com/chazu/ember/ir"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Compile
// ---------------------------------------------------------------------------

func TestCompile_YAMLStream(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Compile(bg(), yamlCompile(addStream))
	require.NoError(t, err)
	require.True(t, resp.Success, resp.ErrorMessage)
	require.NotEmpty(t, resp.Unit)
	require.False(t, resp.Cached)
	require.Contains(t, resp.Source, "Value EVAL(Env *env, Value self) {")
	require.Contains(t, resp.Source, `auto ember_add1 = Value::integer(1).send(env, "+"_s, { Value::integer(2) });`)
	require.Contains(t, resp.Source, "return ember_add1;")
}

func TestCompile_CBORStream(t *testing.T) {
	svc := newTestService(t)

	data, err := ir.Marshal(ir.Sequence{ir.PushInt{Value: 5}, ir.Return{}})
	require.NoError(t, err)
	resp, err := svc.Compile(bg(), &CompileRequest{Format: "cbor", Stream: data})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.ErrorMessage)
	require.Contains(t, resp.Source, "return Value::integer(5);")
}

func TestCompile_SecondCallIsCached(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Compile(bg(), yamlCompile(addStream))
	require.NoError(t, err)
	second, err := svc.Compile(bg(), yamlCompile(addStream))
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Unit, second.Unit)
	require.Equal(t, first.Source, second.Source)
}

func TestCompile_Overrides(t *testing.T) {
	svc := newTestService(t)

	req := yamlCompile(addStream)
	req.VarPrefix = "t_"
	req.Entry = "main_unit"
	resp, err := svc.Compile(bg(), req)
	require.NoError(t, err)
	require.True(t, resp.Success, resp.ErrorMessage)
	require.Contains(t, resp.Source, "Value main_unit(Env *env, Value self) {")
	require.Contains(t, resp.Source, "return t_add1;")
}

func TestCompile_StructuralErrorIsReported(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Compile(bg(), yamlCompile("- push_true\n- if\n- push_int: 1\n- end: while\n"))
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Empty(t, resp.Source)
	require.Contains(t, resp.ErrorMessage, "while")
}

func TestCompile_InvalidRequests(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name string
		req  *CompileRequest
	}{
		{"empty stream", &CompileRequest{Format: "yaml"}},
		{"unknown format", &CompileRequest{Format: "xml", Stream: []byte("<x/>")}},
		{"unknown opcode", yamlCompile("- frobnicate\n")},
		{"bad cbor", &CompileRequest{Format: "cbor", Stream: []byte{0xff}}},
		{"negative count", yamlCompile("- create_array: -1\n- return\n")},
		{"negative argc", yamlCompile("- send: {message: p, argc: -1}\n")},
		{"var prefix not an identifier", &CompileRequest{Format: "yaml", Stream: []byte(addStream), VarPrefix: "9x"}},
		{"entry not an identifier", &CompileRequest{Format: "yaml", Stream: []byte(addStream), Entry: "a(); system(\"x\"); Value b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Compile(bg(), tt.req)
			require.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_Stream(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Run(bg(), yamlRun(addStream))
	require.NoError(t, err)
	require.True(t, resp.Success, resp.ErrorMessage)
	require.Equal(t, "3", resp.Result)
}

func TestRun_CapturesOutput(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Run(bg(), yamlRun(putsStream))
	require.NoError(t, err)
	require.True(t, resp.Success, resp.ErrorMessage)
	require.Equal(t, "hello\n", resp.Output)
	require.Equal(t, "7", resp.Result)
}

func TestRun_CompiledUnit(t *testing.T) {
	svc := newTestService(t)

	compiled, err := svc.Compile(bg(), yamlCompile(addStream))
	require.NoError(t, err)

	resp, err := svc.Run(bg(), &RunRequest{Unit: compiled.Unit})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.ErrorMessage)
	require.Equal(t, "3", resp.Result)
}

func TestRun_UnknownUnit(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Run(bg(), &RunRequest{Unit: "nope"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRun_NegativeOperand(t *testing.T) {
	svc := newTestService(t)

	var err error
	require.NotPanics(t, func() { _, err = svc.Run(bg(), yamlRun("- create_array: -1\n- return\n")) })
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRun_UnhandledException(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.Run(bg(), yamlRun(divideByZeroStream))
	require.NoError(t, err)
	require.False(t, resp.Success)
	require.Equal(t, "ZeroDivisionError: divided by 0", resp.ErrorMessage)
}
