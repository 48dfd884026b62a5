package codegen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/ember/ir"
	"github.com/google/uuid"
)

// ErrUnbalancedStack is returned by Compile when handles are left over
// after the entry body produced its result.
var ErrUnbalancedStack = errors.New("unbalanced value stack")

// Options control program assembly.
type Options struct {
	VarPrefix string // prefix for generated identifiers
	Header    string // runtime header included by the unit
	Entry     string // name of the entry function
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		VarPrefix: "ember_",
		Header:    "natalie.hpp",
		Entry:     "EVAL",
	}
}

// WithDefaults fills unset fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.VarPrefix == "" {
		o.VarPrefix = d.VarPrefix
	}
	if o.Header == "" {
		o.Header = d.Header
	}
	if o.Entry == "" {
		o.Entry = d.Entry
	}
	return o
}

// Program is one compiled unit.
type Program struct {
	Unit   uuid.UUID
	Top    []string // hoisted declarations, in order
	Body   string   // statements of the entry function
	Header string
	Entry  string
}

// Compile generates the C++ translation of seq. Structural and stack errors
// are returned as *ir.StructuralError and *ir.StackError; nothing is
// returned on failure.
func Compile(seq ir.Sequence, opts Options) (prog *Program, err error) {
	defer ir.RecoverFatal(&err)

	opts = opts.WithDefaults()
	ctx := NewContext(opts.VarPrefix)
	t := New(seq, ctx)
	body := t.Run("return")
	if n := t.Depth(); n != 0 {
		return nil, fmt.Errorf("%w: %d handles left", ErrUnbalancedStack, n)
	}

	log.Infof("compiled unit %s: %d instructions, %d hoisted, %d temporaries",
		ctx.ID, len(seq), len(ctx.top), ctx.VarNum)
	return &Program{
		Unit:   ctx.ID,
		Top:    ctx.Top(),
		Body:   body,
		Header: opts.Header,
		Entry:  opts.Entry,
	}, nil
}

// Source renders the complete translation unit.
func (p *Program) Source() string {
	var sb strings.Builder
	writeLine := func(format string, args ...any) {
		fmt.Fprintf(&sb, format, args...)
		sb.WriteByte('\n')
	}

	writeLine("// Code generated by ember. DO NOT EDIT.")
	writeLine("// unit %s", p.Unit)
	writeLine("")
	writeLine("#include %q", p.Header)
	writeLine("")
	writeLine("using namespace Natalie;")
	writeLine("")
	for _, decl := range p.Top {
		writeLine("%s", decl)
		writeLine("")
	}
	writeLine("Value %s(Env *env, Value self) {", p.Entry)
	if p.Body != "" {
		writeLine("%s", indent(p.Body))
	}
	writeLine("}")
	return sb.String()
}

func indent(code string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "    " + l
		}
	}
	return strings.Join(lines, "\n")
}
