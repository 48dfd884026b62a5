package ir

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// WireVersion is the version stamped on every encoded stream.
const WireVersion = 1

// cborEncMode uses canonical encoding so that equal streams always encode
// to equal bytes (and therefore hash equally).
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Record is the flat, serializable form of one instruction. Which fields
// are meaningful depends on Op.
type Record struct {
	Op    string   `cbor:"op"`
	Int   int64    `cbor:"i,omitempty"`
	Float *float64 `cbor:"f,omitempty"` // nil unless Op is push_float
	Str   string   `cbor:"s,omitempty"`
	Label string   `cbor:"l,omitempty"`
	Flag  bool     `cbor:"b,omitempty"`
	Self  bool     `cbor:"t,omitempty"`
}

type wireStream struct {
	Version      int      `cbor:"v"`
	Instructions []Record `cbor:"ins"`
}

// Marshal encodes a stream to canonical CBOR.
func Marshal(seq Sequence) ([]byte, error) {
	ws := wireStream{Version: WireVersion, Instructions: make([]Record, len(seq))}
	for i, in := range seq {
		ws.Instructions[i] = ToRecord(in)
	}
	return cborEncMode.Marshal(ws)
}

// Unmarshal decodes a stream produced by Marshal.
func Unmarshal(data []byte) (Sequence, error) {
	var ws wireStream
	if err := cbor.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("ir: unmarshal stream: %w", err)
	}
	if ws.Version != WireVersion {
		return nil, fmt.Errorf("ir: unsupported stream version %d", ws.Version)
	}
	seq := make(Sequence, len(ws.Instructions))
	for i, r := range ws.Instructions {
		in, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("ir: instruction %d: %w", i, err)
		}
		seq[i] = in
	}
	return seq, nil
}

// Hash returns the SHA-256 of the canonical encoding of seq.
func Hash(seq Sequence) ([32]byte, error) {
	data, err := Marshal(seq)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// ToRecord flattens an instruction.
func ToRecord(in Instruction) Record {
	r := Record{Op: in.Opcode().Name()}
	switch i := in.(type) {
	case PushInt:
		r.Int = i.Value
	case PushFloat:
		v := i.Value
		r.Float = &v
	case PushString:
		r.Str = i.Value
	case PushSymbol:
		r.Str = i.Name
	case PushArg:
		r.Int = int64(i.Index)
	case PushRange:
		r.Flag = i.ExcludeEnd
	case CreateArray:
		r.Int = int64(i.Count)
	case Binary:
		r.Op = i.Operator.Name()
	case VariableGet:
		r.Str = i.Name
	case VariableSet:
		r.Str = i.Name
	case Send:
		r.Str = i.Message
		r.Int = int64(i.Argc)
		r.Flag = i.WithBlock
		r.Self = i.ToSelf
	case Yield:
		r.Int = int64(i.Argc)
	case DefineBlock:
		r.Int = int64(i.Arity)
	case DefineMethod:
		r.Str = i.Name
		r.Int = int64(i.Arity)
	case Else:
		r.Label = string(i.Label)
	case End:
		r.Label = string(i.Label)
	}
	return r
}

// FromRecord rebuilds an instruction from its flat form.
func FromRecord(r Record) (Instruction, error) {
	if o, ok := LookupOperator(r.Op); ok {
		return Binary{Operator: o}, nil
	}
	op, ok := LookupOpcode(r.Op)
	if !ok || op == OpBinary {
		return nil, fmt.Errorf("unknown opcode %q", r.Op)
	}
	if r.Int < 0 && op != OpPushInt {
		return nil, fmt.Errorf("%s: operand must not be negative, got %d", r.Op, r.Int)
	}
	switch op {
	case OpPushInt:
		return PushInt{Value: r.Int}, nil
	case OpPushFloat:
		if r.Float == nil {
			return PushFloat{}, nil
		}
		return PushFloat{Value: *r.Float}, nil
	case OpPushString:
		return PushString{Value: r.Str}, nil
	case OpPushSymbol:
		return PushSymbol{Name: r.Str}, nil
	case OpPushNil:
		return PushNil{}, nil
	case OpPushTrue:
		return PushTrue{}, nil
	case OpPushFalse:
		return PushFalse{}, nil
	case OpPushSelf:
		return PushSelf{}, nil
	case OpPushArg:
		return PushArg{Index: int(r.Int)}, nil
	case OpPushArgc:
		return PushArgc{}, nil
	case OpPushRange:
		return PushRange{ExcludeEnd: r.Flag}, nil
	case OpPop:
		return Pop{}, nil
	case OpDup:
		return Dup{}, nil
	case OpCreateArray:
		return CreateArray{Count: int(r.Int)}, nil
	case OpNot:
		return Not{}, nil
	case OpVariableGet:
		return VariableGet{Name: r.Str}, nil
	case OpVariableSet:
		return VariableSet{Name: r.Str}, nil
	case OpSend:
		return Send{Message: r.Str, Argc: int(r.Int), WithBlock: r.Flag, ToSelf: r.Self}, nil
	case OpYield:
		return Yield{Argc: int(r.Int)}, nil
	case OpIf:
		return If{}, nil
	case OpWhile:
		return While{}, nil
	case OpDefineBlock:
		return DefineBlock{Arity: int(r.Int)}, nil
	case OpDefineMethod:
		return DefineMethod{Name: r.Str, Arity: int(r.Int)}, nil
	case OpTry:
		return Try{}, nil
	case OpElse:
		return Else{Label: Label(r.Label)}, nil
	case OpWhileBody:
		return WhileBody{}, nil
	case OpCatch:
		return Catch{}, nil
	case OpEnd:
		return End{Label: Label(r.Label)}, nil
	case OpPushException:
		return PushException{}, nil
	case OpRaise:
		return Raise{}, nil
	case OpReturn:
		return Return{}, nil
	}
	return nil, fmt.Errorf("unknown opcode %q", r.Op)
}
