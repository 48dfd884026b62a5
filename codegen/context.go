package codegen

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Context is the state shared by every Transform of one compilation unit:
// the temporary-name counter and the accumulator of hoisted top-level
// declarations. It is not synchronized; compile units that run
// concurrently must each have their own Context.
type Context struct {
	VarPrefix string    // prefix of every generated identifier
	VarNum    int       // last number handed out by Temp
	ID        uuid.UUID // names the unit in logs and cache rows

	top []string
}

// NewContext creates a Context for one compilation unit.
func NewContext(varPrefix string) *Context {
	return &Context{
		VarPrefix: varPrefix,
		ID:        uuid.New(),
	}
}

// Temp returns a fresh identifier built from hint. Characters outside
// [a-zA-Z_] are dropped from the hint; the counter suffix keeps every name
// unique within the unit even for identical hints.
func (c *Context) Temp(hint string) string {
	c.VarNum++
	return c.VarPrefix + sanitizeHint(hint) + strconv.Itoa(c.VarNum)
}

// Hoist appends a top-level declaration. Order is preserved: a declaration
// is always hoisted before the code that refers to it.
func (c *Context) Hoist(code string) {
	c.top = append(c.top, code)
}

// Top returns the hoisted declarations in order.
func (c *Context) Top() []string {
	out := make([]string, len(c.top))
	copy(out, c.top)
	return out
}

// sanitizeHint keeps only the characters a temporary name may contain.
func sanitizeHint(hint string) string {
	var sb strings.Builder
	for _, ch := range hint {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}
