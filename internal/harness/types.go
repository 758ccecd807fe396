package harness

import "github.com/roach88/smartfin/internal/contract"

// TraceEvent is one journaled evaluation event as seen by a scenario.
// Caller is the party name rather than the raw address.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Op      string         `json:"op"`
	Caller  string         `json:"caller"`
	Time    int64          `json:"time"`
	Value   uint64         `json:"value,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Delta   int64          `json:"delta"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every event, committed or aborted, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final contract view.
	State contract.State `json:"state"`

	// Staked and Paid total the funds moved in and out per party name.
	Staked map[string]uint64 `json:"staked"`
	Paid   map[string]uint64 `json:"paid"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Staked: map[string]uint64{},
		Paid:   map[string]uint64{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
