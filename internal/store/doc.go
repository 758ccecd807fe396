// Package store provides SQLite-backed durable storage for contract state
// and the evaluation-event journal.
//
// The store holds three tables:
//   - kv: per-contract key/value state (storage.Backend implementation)
//   - contracts: registry of deployed contract instances
//   - events: append-only journal of every evaluation event, committed or not
//
// # Critical Patterns
//
// Atomic events
//   - Store.Update runs one evaluation event in one SQL transaction
//   - A failing event rolls back every write it made
//
// Logical ordering
//   - Journal ordering uses seq INTEGER assigned on append, never host time
//   - All journal queries include ORDER BY seq ASC
//
// Canonical arguments
//   - Event args are stored as canonical JSON so replay and digests are
//     byte-stable
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
