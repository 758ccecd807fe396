package ir

// Operation names recorded in the event journal.
const (
	OpDeploy         = "deploy"
	OpAcquire        = "acquire"
	OpUpdate         = "update"
	OpSetOrChoice    = "set_or_choice"
	OpSetObsValue    = "set_obs_value"
	OpAcquireAnytime = "acquire_anytime"
	OpStake          = "stake"
	OpWithdraw       = "withdraw"
)

// OutcomeOK marks a committed event in the journal. Failed events record
// their error code instead.
const OutcomeOK = "ok"

// Event is one evaluation event as recorded in the journal.
//
// Seq is assigned by the journal and orders events per store. Events are
// recorded whether they committed or aborted so the journal doubles as an
// audit trail; replay reproduces both.
type Event struct {
	Seq        int64     `json:"seq"`
	ContractID string    `json:"contract_id"`
	Op         string    `json:"op"`
	Caller     Address   `json:"-"`
	Time       int64     `json:"time"`
	Value      uint64    `json:"value"`
	Args       EventArgs `json:"args"`
	Outcome    string    `json:"outcome"`
	Delta      int64     `json:"delta"`
}

// EventArgs carries the operation-specific inputs of an Event.
// Only the fields relevant to Op are set.
type EventArgs struct {
	Definition []int64 `json:"definition,omitempty"`
	Holder     string  `json:"holder,omitempty"`
	UseFee     bool    `json:"use_fee,omitempty"`
	Index      int64   `json:"index,omitempty"`
	Choice     bool    `json:"choice,omitempty"`
	ObsValue   int64   `json:"obs_value,omitempty"`
	Amount     uint64  `json:"amount,omitempty"`
}

// CanonicalMap returns the args as a map for MarshalCanonical. Zero values
// are omitted, matching the JSON tags.
func (a EventArgs) CanonicalMap() map[string]any {
	m := map[string]any{}
	if len(a.Definition) > 0 {
		m["definition"] = a.Definition
	}
	if a.Holder != "" {
		m["holder"] = a.Holder
	}
	if a.UseFee {
		m["use_fee"] = true
	}
	if a.Index != 0 {
		m["index"] = a.Index
	}
	if a.Choice {
		m["choice"] = true
	}
	if a.ObsValue != 0 {
		m["obs_value"] = a.ObsValue
	}
	if a.Amount != 0 {
		m["amount"] = a.Amount
	}
	return m
}
