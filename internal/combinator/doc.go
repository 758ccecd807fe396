// Package combinator implements the contract algebra and its evaluator.
//
// A contract is a strict tree of Nodes. Each node is one of ten kinds
// (zero, one, and, or, truncate, scale, give, then, get, anytime) and
// carries the same two pieces of mutable state, its Details: the time it
// was acquired and whether it has fully settled.
//
// Nodes never outlive an evaluation event. The tree is rebuilt from its
// persisted integer encoding (Deserialize), mutated by Acquire and Update,
// and written back (Serialize). Values supplied after construction
// (or-choices, observable values, anytime acquisitions) are read through
// the Inputs interface so the tree itself stays a pure function of its
// encoding.
//
// Two encodings exist:
//
//	definition  [tag, params..., children...]           DecodeDefinition
//	persisted   [tag, acq|-1, fu, params..., children...] Serialize / Deserialize
//
// Decoding a definition allocates or-choice, observable and anytime slots
// through a TableBuilder in pre-order.
package combinator
