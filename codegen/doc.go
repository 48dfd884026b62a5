// Package codegen translates an instruction stream into C++ source for the
// Natalie runtime.
//
// Generation is a symbolic evaluation of the stream: a Transform keeps a
// stack of C++ expressions in place of runtime values, emits statements as
// side effects, and binds results to fresh temporaries. Block literals and
// method bodies are generated by child Transforms in nested scopes and
// hoisted as top-level function definitions; if, while and try arms run
// in sibling Transforms that share the enclosing scope.
package codegen
