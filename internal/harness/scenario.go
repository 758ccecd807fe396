package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/smartfin/internal/ir"
)

// Scenario defines a contract scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Contract is the contract in prefix notation.
	Contract string `yaml:"contract,omitempty"`

	// ContractCUE is a path to a CUE document with a top-level contract
	// field. Relative paths are resolved against the scenario file.
	ContractCUE string `yaml:"contract_cue,omitempty"`

	// Holder and CounterParty are the two party addresses. The counter-party
	// deploys the contract.
	Holder       string `yaml:"holder"`
	CounterParty string `yaml:"counter_party"`

	// Parties names further addresses, typically observable arbiters.
	Parties map[string]string `yaml:"parties,omitempty"`

	// UseFee deploys the contract in fee mode.
	UseFee bool `yaml:"use_fee,omitempty"`

	// TxFee overrides the transaction fee. Zero keeps the default.
	TxFee int64 `yaml:"tx_fee,omitempty"`

	// Start is the host time of deployment.
	Start int64 `yaml:"start,omitempty"`

	// ContractID is the fixed contract ID. Defaults to "scenario-contract".
	ContractID string `yaml:"contract_id,omitempty"`

	// Setup steps run before the flow and must all succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the main sequence of evaluation events.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one evaluation event.
type Step struct {
	// Op is the operation: acquire, update, set_or_choice, set_obs_value,
	// acquire_anytime, stake, withdraw.
	Op string `yaml:"op"`

	// Caller names the calling party.
	Caller string `yaml:"caller"`

	// At moves the host clock to an absolute time before the step.
	At *int64 `yaml:"at,omitempty"`

	// Advance moves the host clock forward before the step.
	Advance int64 `yaml:"advance,omitempty"`

	// Value is the amount attached to a stake.
	Value uint64 `yaml:"value,omitempty"`

	// Index selects the or-choice, observable or anytime slot.
	Index int `yaml:"index,omitempty"`

	// First is the or-choice preference: true selects the first branch.
	First bool `yaml:"first,omitempty"`

	// ObsValue is the value an arbiter sets.
	ObsValue int64 `yaml:"obs_value,omitempty"`

	// Amount is the requested withdrawal.
	Amount uint64 `yaml:"amount,omitempty"`

	// RefusePayment makes the payment sink refuse this step's payment.
	RefusePayment bool `yaml:"refuse_payment,omitempty"`

	// Expect validates the step's outcome. If nil, any outcome is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected result of a step.
type ExpectClause struct {
	// Outcome is "ok" or an error code such as "UNAUTHORIZED".
	Outcome string `yaml:"outcome"`

	// Delta is the expected settlement delta, or balance change for
	// stake and withdraw. If nil, it is not checked.
	Delta *int64 `yaml:"delta,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Party names the party (balance, paid).
	Party string `yaml:"party,omitempty"`

	// Value is the expected amount (balance, paid).
	Value int64 `yaml:"value,omitempty"`

	// At is the evaluation time (concluded).
	At int64 `yaml:"at,omitempty"`

	// Expected is the expected flag (concluded).
	Expected bool `yaml:"expected,omitempty"`

	// Values is the expected vector (acquisition_times, or_choices).
	Values []int64 `yaml:"values,omitempty"`

	// Outcome and Count are used by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance          = "balance"
	AssertPaid             = "paid"
	AssertConcluded        = "concluded"
	AssertAcquisitionTimes = "acquisition_times"
	AssertOrChoices        = "or_choices"
	AssertOutcomeCount     = "outcome_count"
	AssertConservation     = "conservation"
	AssertReplay           = "replay"
)

// Operations a step may invoke. Deployment is implicit.
var stepOps = map[string]bool{
	ir.OpAcquire:        true,
	ir.OpUpdate:         true,
	ir.OpSetOrChoice:    true,
	ir.OpSetObsValue:    true,
	ir.OpAcquireAnytime: true,
	ir.OpStake:          true,
	ir.OpWithdraw:       true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.ContractCUE != "" && !filepath.IsAbs(scenario.ContractCUE) {
		scenario.ContractCUE = filepath.Join(filepath.Dir(path), scenario.ContractCUE)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Contract == "") == (s.ContractCUE == "") {
		return fmt.Errorf("exactly one of contract or contract_cue is required")
	}
	if s.ContractCUE != "" {
		if _, err := os.Stat(s.ContractCUE); os.IsNotExist(err) {
			return fmt.Errorf("contract file not found: %s", s.ContractCUE)
		}
	}
	if _, err := ir.ParseAddress(s.Holder); err != nil {
		return fmt.Errorf("holder: %w", err)
	}
	if _, err := ir.ParseAddress(s.CounterParty); err != nil {
		return fmt.Errorf("counter_party: %w", err)
	}
	for name, addr := range s.Parties {
		if _, err := ir.ParseAddress(addr); err != nil {
			return fmt.Errorf("parties.%s: %w", name, err)
		}
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), &step); err != nil {
			return err
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, st *Step) error {
	if !stepOps[st.Op] {
		return fmt.Errorf("%s: unknown op %q", where, st.Op)
	}
	if st.Caller == "" {
		return fmt.Errorf("%s: caller is required", where)
	}
	if st.At != nil && st.Advance != 0 {
		return fmt.Errorf("%s: at and advance are mutually exclusive", where)
	}
	if st.Advance < 0 {
		return fmt.Errorf("%s: advance must be non-negative", where)
	}
	if st.Expect != nil && st.Expect.Outcome == "" {
		return fmt.Errorf("%s.expect: outcome is required", where)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertBalance, AssertPaid:
		if a.Party == "" {
			return fmt.Errorf("assertions[%d]: party is required for %s", index, a.Type)
		}
	case AssertAcquisitionTimes, AssertOrChoices:
		if a.Values == nil {
			return fmt.Errorf("assertions[%d]: values is required for %s", index, a.Type)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for outcome_count", index)
		}
	case AssertConcluded, AssertConservation, AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
