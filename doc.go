// Package sct implements a deterministic systematic concurrency tester: it
// interprets a concurrent computation built from a small set of primitives
// (threads, mutable cells, MVars, software transactional memory,
// asynchronous exceptions) and exhaustively explores its possible thread
// interleavings via dynamic partial-order reduction, surfacing every
// distinct outcome together with a trace that reproduces it.
//
// A computation is written against Prog, the package's continuation-passing
// action tree, using the builder functions in action.go (Fork, NewCell,
// PutMVar, Atomic, and so on) together with Bind and Return. Explore drives
// a Prog to completion under every schedule the dependency oracle considers
// worth trying, honoring configured memory-model, bound, and outcome-policy
// Options, and returns the resulting []Outcome.
package sct
