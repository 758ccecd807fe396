// Package storage is the persistent key/value contract the controller runs
// against.
//
// A Backend executes one evaluation event at a time inside a namespace
// (one contract instance). Update runs its function in a transaction: if
// the function returns an error, none of its writes become visible. View
// runs a read-only function.
//
// Values are sequences of signed integers. Storage layers typed access
// over a KV:
//
//	scalar     Int / SetInt, Bool / SetBool, Address / SetAddress
//	sequence   Seq / SetSeq (whole-sequence read/write)
//	vector     Vec: Len, Push, Get, Set (bounds-checked, append-only)
//
// Implementations: MemoryBackend (tests, replay) and BadgerBackend
// (embedded durable store). The SQLite backend lives in package store.
package storage
