package ir

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func nestedStream() Sequence {
	return Sequence{
		DefineMethod{Name: "twice", Arity: 1},
		PushArg{Index: 0},
		PushInt{Value: 2},
		Mul(),
		End{Label: LabelDefineMethod},
		Pop{},
		PushInt{Value: 1},
		PushInt{Value: 3},
		PushRange{ExcludeEnd: true},
		DefineBlock{Arity: 1},
		PushArg{Index: 0},
		Send{Message: "twice", Argc: 1, ToSelf: true},
		End{Label: LabelDefineBlock},
		Send{Message: "map", Argc: 0, WithBlock: true},
		VariableSet{Name: "xs"},
		PushFloat{Value: 1.5},
		PushString{Value: "hi\n"},
		PushSymbol{Name: "sym"},
		CreateArray{Count: 3},
		Pop{},
		VariableGet{Name: "xs"},
		Return{},
	}
}

func TestWire_RoundTrip(t *testing.T) {
	seq := nestedStream()

	data, err := Marshal(seq)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, seq, back)
}

func TestWire_HashIsStable(t *testing.T) {
	h1, err := Hash(nestedStream())
	require.NoError(t, err)
	h2, err := Hash(nestedStream())
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	other := append(nestedStream(), Pop{})
	h3, err := Hash(other)
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestWire_RejectsUnknownOpcode(t *testing.T) {
	data, err := cborEncMode.Marshal(wireStream{
		Version:      WireVersion,
		Instructions: []Record{{Op: "teleport"}},
	})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.ErrorContains(t, err, `unknown opcode "teleport"`)
}

func TestWire_RejectsVersion(t *testing.T) {
	data, err := cborEncMode.Marshal(wireStream{Version: 99})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.ErrorContains(t, err, "unsupported stream version 99")
}

func TestWire_NegativeZeroKeepsSign(t *testing.T) {
	negZero := math.Copysign(0, -1)

	data, err := Marshal(Sequence{PushFloat{Value: negZero}})
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, back, 1)
	require.True(t, math.Signbit(back[0].(PushFloat).Value))

	hNeg, err := Hash(Sequence{PushFloat{Value: negZero}})
	require.NoError(t, err)
	hPos, err := Hash(Sequence{PushFloat{Value: 0}})
	require.NoError(t, err)
	require.NotEqual(t, hNeg, hPos)

	back, err = Unmarshal(mustMarshal(t, Sequence{PushFloat{Value: 0}}))
	require.NoError(t, err)
	require.False(t, math.Signbit(back[0].(PushFloat).Value))
}

func TestWire_RejectsNegativeOperands(t *testing.T) {
	tests := []Record{
		{Op: "create_array", Int: -1},
		{Op: "send", Str: "p", Int: -1},
		{Op: "yield", Int: -2},
		{Op: "define_block", Int: -1},
		{Op: "define_method", Str: "f", Int: -1},
		{Op: "push_arg", Int: -1},
	}
	for _, r := range tests {
		t.Run(r.Op, func(t *testing.T) {
			_, err := FromRecord(r)
			require.ErrorContains(t, err, "must not be negative")
		})
	}

	in, err := FromRecord(Record{Op: "push_int", Int: -5})
	require.NoError(t, err)
	require.Equal(t, PushInt{Value: -5}, in)

	_, err = DecodeYAML([]byte("- create_array: -1\n- return\n"))
	require.ErrorContains(t, err, "line 1")
}

func mustMarshal(t *testing.T, seq Sequence) []byte {
	t.Helper()
	data, err := Marshal(seq)
	require.NoError(t, err)
	return data
}

// ---------------------------------------------------------------------------
// YAML
// ---------------------------------------------------------------------------

func TestYAML_Decode(t *testing.T) {
	src := `
- push_int: 1
- push_int: 2
- add
- define_block: 1
- push_arg: 0
- end: define_block
- send: {message: each, argc: 0, block: true}
- push_range: true
- define_method: {name: foo, arity: 2}
- push_nil:
- end: define_method
- return
`
	seq, err := DecodeYAML([]byte(src))
	require.NoError(t, err)
	require.Equal(t, Sequence{
		PushInt{Value: 1},
		PushInt{Value: 2},
		Add(),
		DefineBlock{Arity: 1},
		PushArg{Index: 0},
		End{Label: LabelDefineBlock},
		Send{Message: "each", WithBlock: true},
		PushRange{ExcludeEnd: true},
		DefineMethod{Name: "foo", Arity: 2},
		PushNil{},
		End{Label: LabelDefineMethod},
		Return{},
	}, seq)
}

func TestYAML_RoundTrip(t *testing.T) {
	seq := nestedStream()
	data, err := EncodeYAML(seq)
	require.NoError(t, err)

	back, err := DecodeYAML(data)
	require.NoError(t, err)
	require.Equal(t, seq, back)
}

func TestYAML_Errors(t *testing.T) {
	_, err := DecodeYAML([]byte("- pop: 3\n"))
	require.ErrorContains(t, err, "pop takes no operands")

	_, err = DecodeYAML([]byte("- {push_int: 1, pop: ~}\n"))
	require.ErrorContains(t, err, "single opcode")

	_, err = DecodeYAML([]byte("- frobnicate\n"))
	require.ErrorContains(t, err, `unknown opcode "frobnicate"`)
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "prog.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- push_int: 7\n- return\n"), 0644))
	seq, err := Load(yamlPath)
	require.NoError(t, err)
	require.Equal(t, Sequence{PushInt{Value: 7}, Return{}}, seq)

	data, err := Marshal(seq)
	require.NoError(t, err)
	cborPath := filepath.Join(dir, "prog.cbor")
	require.NoError(t, os.WriteFile(cborPath, data, 0644))
	back, err := Load(cborPath)
	require.NoError(t, err)
	require.Equal(t, seq, back)

	_, err = Load(filepath.Join(dir, "prog.txt"))
	require.ErrorContains(t, err, "cannot tell stream format")
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

func TestDisassemble(t *testing.T) {
	out := Disassemble(Sequence{
		If{},
		PushInt{Value: 1},
		Else{Label: LabelIf},
		PushString{Value: "no"},
		End{Label: LabelIf},
	}, "main")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Equal(t, "; === main ===", lines[0])
	require.Equal(t, "; 5 instructions, max depth 1", lines[1])
	require.Equal(t, "0000  if", lines[2])
	require.Equal(t, "0001    push_int 1", lines[3])
	require.Equal(t, "0002  else if", lines[4])
	require.Equal(t, `0003    push_string "no"`, lines[5])
	require.Equal(t, "0004  end if", lines[6])
}
