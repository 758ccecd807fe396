package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/contract"
)

func TestEvaluateAssertions_StateOnly(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Seq: 1, Op: "deploy", Caller: "counter_party", Outcome: "ok"},
		{Seq: 2, Op: "acquire", Caller: "holder", Time: 4, Outcome: "UNSET_DEPENDENCY"},
		{Seq: 3, Op: "acquire", Caller: "holder", Time: 5, Outcome: "ok", Delta: 2},
	}
	result.State = contract.State{
		HolderBalance:       2,
		CounterPartyBalance: 8,
		AcquisitionTimes:    []int64{5, -1},
		OrChoices:           []int64{1, 2},
	}
	result.Staked["counter_party"] = 10

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"balance holds", Assertion{Type: AssertBalance, Party: "holder", Value: 2}, ""},
		{"balance differs", Assertion{Type: AssertBalance, Party: "counter_party", Value: 1}, "counter_party balance 1"},
		{"balance of extra party", Assertion{Type: AssertBalance, Party: "fixer"}, "party must be holder or counter_party"},
		{"paid nothing", Assertion{Type: AssertPaid, Party: "holder", Value: 0}, ""},
		{"paid differs", Assertion{Type: AssertPaid, Party: "holder", Value: 3}, "3 paid to holder"},
		{"times hold", Assertion{Type: AssertAcquisitionTimes, Values: []int64{5, -1}}, ""},
		{"times differ", Assertion{Type: AssertAcquisitionTimes, Values: []int64{5}}, "acquisition times [5]"},
		{"choices hold", Assertion{Type: AssertOrChoices, Values: []int64{1, 2}}, ""},
		{"choices differ", Assertion{Type: AssertOrChoices, Values: []int64{0, 2}}, "or-choices [0 2]"},
		{"outcome count holds", Assertion{Type: AssertOutcomeCount, Outcome: "ok", Count: 2}, ""},
		{"outcome count differs", Assertion{Type: AssertOutcomeCount, Outcome: "UNSET_DEPENDENCY", Count: 0}, "0 events with outcome UNSET_DEPENDENCY"},
		{"conservation holds", Assertion{Type: AssertConservation}, ""},
		{"unknown type", Assertion{Type: "trace_contains"}, `unknown assertion type "trace_contains"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion}, nil)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]")
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_Conservation(t *testing.T) {
	result := NewResult()
	result.Staked["holder"] = 100
	result.Paid["holder"] = 40
	result.State.HolderBalance = 50

	// Ten units left both balances without being paid out.
	errs := EvaluateAssertions(result, []Assertion{{Type: AssertConservation}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "balances sum to 100 staked minus 40 paid")

	// In fee mode the difference is the fees collected.
	result.State.UseFee = true
	assert.Empty(t, EvaluateAssertions(result, []Assertion{{Type: AssertConservation}}, nil))

	// Balances can never exceed what was staked.
	result.State.HolderBalance = 70
	assert.Len(t, EvaluateAssertions(result, []Assertion{{Type: AssertConservation}}, nil), 1)
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertBalance,
		Expected: "holder balance 1",
		Actual:   "0",
		Trace: []TraceEvent{
			{Seq: 1, Time: 3, Op: "acquire", Caller: "holder", Outcome: "ok", Delta: 1},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: balance")
	assert.Contains(t, msg, "Expected: holder balance 1")
	assert.Contains(t, msg, "Actual: 0")
	assert.Contains(t, msg, "[1] t=3 acquire by holder: ok (delta 1)")
}
