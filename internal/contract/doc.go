// Package contract is the evaluator: it holds one persisted combinator
// tree per contract instance and reconciles settlement against the holder
// and counter-party balances.
//
// Every public operation is one evaluation event. It runs inside a single
// storage.Backend transaction: the tree and external-input tables are
// loaded, mutated in memory, written back, and the transaction commits.
// Any error aborts the event and leaves the store exactly as it was.
// Nothing is retained in memory between events.
//
// Lifecycle:
//
//	Deploy ─▶ Active ──(root fully updated, or expired unacquired)──▶ Concluded
//	           │  ▲
//	           └──┘ Acquire, Update, SetOrChoice, SetObsValue,
//	                AcquireAnytime, Stake, Withdraw
//
// Host facts (caller, timestamp, attached value, payment capability) are
// passed in an explicit Env on every call.
package contract
