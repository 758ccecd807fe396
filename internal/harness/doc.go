// Package harness runs contract scenarios: a contract, a timed sequence
// of evaluation events, and assertions on the outcome.
//
// Every scenario runs against a fresh in-memory backend with a
// deterministic host clock, contract ID and payment sink, so the same
// scenario always produces the same trace. Traces can be compared
// against golden files.
//
// # Scenario Format
//
//	name: fx_forward
//	description: "Holder receives the EUR/USD fixing at maturity"
//	contract: 'truncate 10 scale obs(0x..b3, "EUR/USD") one'
//	holder: "0x..a1"
//	counter_party: "0x..c2"
//	parties:
//	  fixer: "0x..b3"
//	setup:
//	  - op: stake
//	    caller: counter_party
//	    value: 100
//	flow:
//	  - op: acquire
//	    caller: holder
//	    at: 1
//	    expect: {outcome: ok, delta: 0}
//	  - op: set_obs_value
//	    caller: fixer
//	    index: 0
//	    obs_value: 7
//	assertions:
//	  - type: balance
//	    party: holder
//	    value: 7
//
// The contract is given either in prefix notation (contract) or as a CUE
// document (contract_cue, resolved relative to the scenario file).
// Callers name a party: holder, counter_party, a key of parties, or a
// literal address.
//
// # Assertion Types
//
//	balance            party's balance equals value
//	paid               total paid out to party equals value
//	concluded          Concluded(at) equals expected
//	acquisition_times  AcquisitionTimes equals values
//	or_choices         OrChoices equals values
//	outcome_count      number of events with outcome equals count
//	conservation       balances sum to everything staked minus everything paid
//	replay             replaying the journal reproduces every event and the final state
package harness
