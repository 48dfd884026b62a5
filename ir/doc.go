// Package ir defines the lowered instruction stream consumed by the Ember
// back end.
//
// A stream is a flat Sequence of Instructions. Constructs with a nested
// body (conditionals, loops, block literals, method bodies, exception
// handlers) are not trees: an opener instruction is followed by its body
// and a labeled end marker, possibly with middle markers in between:
//
//	if           <then>  else if     <else>  end if
//	while        <cond>  while_body  <body>  end while
//	define_block <body>  end define_block
//	define_method <body> end define_method
//	try          <body>  catch       <handler> end try
//
// A Manager walks a Sequence and extracts these sub-ranges. Streams
// arrive well-formed from the lowering passes; a missing or mismatched
// marker is a StructuralError, which is fatal.
//
// Streams can be encoded as canonical CBOR (Marshal, Unmarshal, Hash) or as
// a YAML listing (DecodeYAML, EncodeYAML) for fixtures and hand-written
// programs.
package ir
