package ir

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The YAML form of a stream is a list whose items are either a bare opcode
// name or a one-key map from opcode name to operands:
//
//	- push_int: 1
//	- push_int: 2
//	- add
//	- define_block: 1
//	- push_arg: 0
//	- end: define_block
//	- send: {message: map, argc: 0, block: true}

type yamlSend struct {
	Message string `yaml:"message"`
	Argc    int    `yaml:"argc"`
	Block   bool   `yaml:"block,omitempty"`
	Self    bool   `yaml:"self,omitempty"`
}

type yamlMethod struct {
	Name  string `yaml:"name"`
	Arity int    `yaml:"arity"`
}

// DecodeYAML parses a YAML instruction listing.
func DecodeYAML(data []byte) (Sequence, error) {
	var items []yaml.Node
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("ir: parse yaml: %w", err)
	}
	seq := make(Sequence, 0, len(items))
	for i := range items {
		r, err := recordFromNode(&items[i])
		if err != nil {
			return nil, fmt.Errorf("ir: line %d: %w", items[i].Line, err)
		}
		in, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("ir: line %d: %w", items[i].Line, err)
		}
		seq = append(seq, in)
	}
	return seq, nil
}

func recordFromNode(n *yaml.Node) (Record, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return Record{Op: n.Value}, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return Record{}, fmt.Errorf("expected a single opcode per item, got %d keys", len(n.Content)/2)
		}
	default:
		return Record{}, fmt.Errorf("expected an opcode name or a one-key map")
	}

	r := Record{Op: n.Content[0].Value}
	val := n.Content[1]
	var err error
	switch r.Op {
	case "push_int", "push_arg", "create_array", "yield", "define_block":
		err = val.Decode(&r.Int)
	case "push_float":
		var f float64
		err = val.Decode(&f)
		r.Float = &f
	case "push_string", "push_symbol", "variable_get", "variable_set":
		err = val.Decode(&r.Str)
	case "push_range":
		err = val.Decode(&r.Flag)
	case "end", "else":
		err = val.Decode(&r.Label)
	case "send":
		var s yamlSend
		err = val.Decode(&s)
		r.Str, r.Int, r.Flag, r.Self = s.Message, int64(s.Argc), s.Block, s.Self
	case "define_method":
		var m yamlMethod
		err = val.Decode(&m)
		r.Str, r.Int = m.Name, int64(m.Arity)
	default:
		if val.Tag != "!!null" {
			err = fmt.Errorf("%s takes no operands", r.Op)
		}
	}
	return r, err
}

// EncodeYAML renders seq in the form accepted by DecodeYAML.
func EncodeYAML(seq Sequence) ([]byte, error) {
	items := make([]any, len(seq))
	for i, in := range seq {
		items[i] = yamlItem(in)
	}
	return yaml.Marshal(items)
}

func yamlItem(in Instruction) any {
	r := ToRecord(in)
	switch i := in.(type) {
	case PushInt, PushArg, CreateArray, Yield, DefineBlock:
		return map[string]any{r.Op: r.Int}
	case PushFloat:
		return map[string]any{r.Op: i.Value}
	case PushString, PushSymbol, VariableGet, VariableSet:
		return map[string]any{r.Op: r.Str}
	case PushRange:
		return map[string]any{r.Op: i.ExcludeEnd}
	case Send:
		return map[string]any{r.Op: yamlSend{Message: i.Message, Argc: i.Argc, Block: i.WithBlock, Self: i.ToSelf}}
	case DefineMethod:
		return map[string]any{r.Op: yamlMethod{Name: i.Name, Arity: i.Arity}}
	case End, Else:
		if r.Label != "" {
			return map[string]any{r.Op: r.Label}
		}
	}
	return r.Op
}
