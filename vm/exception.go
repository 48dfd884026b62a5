package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Host exceptions
// ---------------------------------------------------------------------------

// Exception is a raised runtime error. It is signaled by panicking with
// the *Exception and caught by the nearest enclosing try, or by Run.
type Exception struct {
	Class   string
	Message string
}

// NewException creates an exception of the given class.
func NewException(class, format string, args ...any) *Exception {
	return &Exception{Class: class, Message: fmt.Sprintf(format, args...)}
}

func (e *Exception) Error() string {
	return e.Class + ": " + e.Message
}

func (e *Exception) Inspect() string {
	return fmt.Sprintf("#<%s: %s>", e.Class, e.Message)
}

func (*Exception) Truthy() bool { return true }

// raise signals e.
func raise(class, format string, args ...any) {
	panic(NewException(class, format, args...))
}

// catchException runs fn and returns the exception it raised, if any.
// Panics that are not exceptions keep unwinding.
func catchException(fn func() signal) (sig signal, exc *Exception) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Exception)
			if !ok {
				panic(r)
			}
			exc = e
		}
	}()
	return fn(), nil
}
