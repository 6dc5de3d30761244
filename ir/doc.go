// Package ir is a read-only view over an NIR-style shader graph.
//
// The graph is made of intrusive lists: every record (function, variable,
// control flow node, instruction, phi source, use) embeds a link node, and a
// list walk turns node addresses back into records without copying anything.
// The views are designed to be:
//   - Zero-copy: iteration yields pointers into the graph itself
//   - Typed: each list is bound to its element type at compile time
//   - Closed: instructions and control flow nodes are sum types whose
//     variant is fixed when the record is built
//
// # Structure
//
// A Shader holds Functions and Variables. A Function may own a
// FunctionImpl, whose body is a list of control flow nodes:
//   - Block: a straight-line list of instructions with up to two successors
//   - If: a condition plus then and else lists
//   - Loop: a body list
//
// Every control flow list starts and ends with a Block, and blocks alternate
// with If and Loop nodes. Instructions are one of Alu, Jump, Tex, Intrinsic,
// LoadConst, Undef and Phi. Most of them produce a single SSA Def, consumed
// through Src sites that are linked into the Def's use list.
//
// # Producing graphs
//
// Views never mutate. Graphs are produced with a Builder, which also owns
// the few editing operations (removing and moving instructions). Edits must
// not overlap with live iterators. Validate walks a whole shader and checks
// the structural invariants the views rely on; it is a debugging aid and is
// never called on a traversal path.
//
// # Contract violations
//
// Asking for something the graph structurally guarantees (the first block
// of a loop, an index an intrinsic does not carry, a constant of an
// unsupported width) panics. Asking whether something is present (is this an
// Alu, is this value constant) never does.
package ir
