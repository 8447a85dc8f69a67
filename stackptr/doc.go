// Package stackptr infers which mutable i32 global of a WebAssembly module
// serves as its shadow stack pointer.
//
// The inference uses usage frequencies alone. Collect tallies global.get and
// global.set on every candidate, Classify picks the candidate with the largest
// reads × writes area among those used more than a few times each, and
// CountFunctionsUsing counts the function bodies that touch the winner.
// Analyzer chains the three and produces a Record.
package stackptr
