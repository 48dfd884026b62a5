package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a runtime value. Only nil and false are falsy.
type Value interface {
	Inspect() string
	Truthy() bool
}

// NilType is the type of Nil.
type NilType struct{}

// Nil is the nil value.
var Nil = NilType{}

type (
	Bool    bool
	Integer int64
	Float   float64
	Symbol  string
)

// String is a mutable string object. Each evaluation of a string literal
// makes a new one.
type String struct {
	S string
}

// Array is an ordered, growable list.
type Array struct {
	Items []Value
}

// Range spans Begin to End, excluding End when ExcludeEnd is set.
type Range struct {
	Begin      Value
	End        Value
	ExcludeEnd bool
}

// Object is a plain receiver with no state. The top-level self is the
// Object named "main".
type Object struct {
	Name string
}

func (NilType) Inspect() string { return "nil" }
func (NilType) Truthy() bool     { return false }

func (b Bool) Inspect() string { return strconv.FormatBool(bool(b)) }
func (b Bool) Truthy() bool     { return bool(b) }

func (i Integer) Inspect() string { return strconv.FormatInt(int64(i), 10) }
func (Integer) Truthy() bool       { return true }

func (f Float) Inspect() string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
func (Float) Truthy() bool { return true }

func (s Symbol) Inspect() string { return ":" + string(s) }
func (Symbol) Truthy() bool       { return true }

func (s *String) Inspect() string { return strconv.Quote(s.S) }
func (*String) Truthy() bool       { return true }

func (a *Array) Inspect() string {
	parts := make([]string, len(a.Items))
	for i, v := range a.Items {
		parts[i] = v.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (*Array) Truthy() bool { return true }

func (r *Range) Inspect() string {
	dots := ".."
	if r.ExcludeEnd {
		dots = "..."
	}
	return r.Begin.Inspect() + dots + r.End.Inspect()
}
func (*Range) Truthy() bool { return true }

func (o *Object) Inspect() string { return o.Name }
func (*Object) Truthy() bool       { return true }

// NewString wraps s in a fresh String.
func NewString(s string) *String { return &String{S: s} }

// NewArray wraps items in a fresh Array.
func NewArray(items ...Value) *Array { return &Array{Items: items} }

// ToS returns the to_s form of v: strings unquoted, nil empty, everything
// else its inspect form.
func ToS(v Value) string {
	switch v := v.(type) {
	case *String:
		return v.S
	case NilType:
		return ""
	case *Exception:
		return v.Message
	}
	return v.Inspect()
}

// Equal reports value equality. Numbers compare across Integer and Float;
// strings and arrays compare by content; everything else by identity.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Integer:
		switch b := b.(type) {
		case Integer:
			return a == b
		case Float:
			return Float(a) == b
		}
		return false
	case Float:
		switch b := b.(type) {
		case Integer:
			return a == Float(b)
		case Float:
			return a == b
		}
		return false
	case *String:
		bs, ok := b.(*String)
		return ok && a.S == bs.S
	case *Array:
		ba, ok := b.(*Array)
		if !ok || len(a.Items) != len(ba.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], ba.Items[i]) {
				return false
			}
		}
		return true
	case *Range:
		br, ok := b.(*Range)
		return ok && a.ExcludeEnd == br.ExcludeEnd && Equal(a.Begin, br.Begin) && Equal(a.End, br.End)
	}
	return a == b
}

// ClassName returns the Ruby-style class name of v, used in error messages.
func ClassName(v Value) string {
	switch v := v.(type) {
	case NilType:
		return "NilClass"
	case Bool:
		if v {
			return "TrueClass"
		}
		return "FalseClass"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Symbol:
		return "Symbol"
	case *String:
		return "String"
	case *Array:
		return "Array"
	case *Range:
		return "Range"
	case *Block:
		return "Proc"
	case *Exception:
		return v.Class
	case *Object:
		return "Object"
	}
	return fmt.Sprintf("%T", v)
}
