package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	holderAddr       = "0x00000000000000000000000000000000000000a1"
	counterPartyAddr = "0x00000000000000000000000000000000000000c2"
	strangerAddr     = "0x00000000000000000000000000000000000000d4"
)

func at(t int64) *int64 { return &t }

func delta(d int64) *int64 { return &d }

func minimalScenario(contract string, flow ...Step) *Scenario {
	return &Scenario{
		Name:         "minimal",
		Description:  "Minimal test scenario",
		Contract:     contract,
		Holder:       holderAddr,
		CounterParty: counterPartyAddr,
		Flow:         flow,
		Assertions:   []Assertion{{Type: AssertReplay}},
	}
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := minimalScenario("one", Step{
		Op:     "acquire",
		Caller: "holder",
		At:     at(3),
		Expect: &ExpectClause{Outcome: "ok", Delta: delta(1)},
	})

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	// Deployment is journaled ahead of the flow.
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "deploy", result.Trace[0].Op)
	assert.Equal(t, "counter_party", result.Trace[0].Caller)
	assert.Equal(t, holderAddr, result.Trace[0].Args["holder"])
	assert.Equal(t, "acquire", result.Trace[1].Op)
	assert.Equal(t, "holder", result.Trace[1].Caller)
	assert.Equal(t, int64(3), result.Trace[1].Time)
	assert.Equal(t, int64(1), result.Trace[1].Delta)

	assert.Equal(t, int64(1), result.State.HolderBalance)
	assert.Equal(t, int64(-1), result.State.CounterPartyBalance)
	assert.Equal(t, DefaultContractID, result.State.ID)
}

func TestRun_ContractID(t *testing.T) {
	scenario := minimalScenario("zero", Step{Op: "acquire", Caller: "holder"})
	scenario.ContractID = "swap-7"

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "swap-7", result.State.ID)
}

func TestRun_ExpectOutcomeMismatch(t *testing.T) {
	scenario := minimalScenario("one", Step{
		Op:     "acquire",
		Caller: "counter_party",
		Expect: &ExpectClause{Outcome: "ok"},
	})

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[0] acquire: expected outcome ok, got UNAUTHORIZED")
}

func TestRun_ExpectDeltaMismatch(t *testing.T) {
	scenario := minimalScenario("scale 4 one", Step{
		Op:     "acquire",
		Caller: "holder",
		Expect: &ExpectClause{Outcome: "ok", Delta: delta(2)},
	})

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected delta 2, got 4")
}

func TestRun_AssertionFailure(t *testing.T) {
	scenario := minimalScenario("one", Step{Op: "acquire", Caller: "holder"})
	scenario.Assertions = []Assertion{
		{Type: AssertBalance, Party: "holder", Value: 5},
		{Type: AssertBalance, Party: "counter_party", Value: -1},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "holder balance 5")
}

func TestRun_SetupFailureAborts(t *testing.T) {
	scenario := minimalScenario("one", Step{Op: "acquire", Caller: "holder"})
	scenario.Setup = []Step{{Op: "stake", Caller: strangerAddr, Value: 10}}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup step 0 (stake): outcome UNAUTHORIZED")
}

func TestRun_CompileError(t *testing.T) {
	_, err := Run(minimalScenario("scale one", Step{Op: "acquire", Caller: "holder"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile contract")
}

func TestRun_UnknownCaller(t *testing.T) {
	_, err := Run(minimalScenario("one", Step{Op: "acquire", Caller: "nobody"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `caller "nobody"`)
}

func TestRun_LiteralAddressCaller(t *testing.T) {
	scenario := minimalScenario("one", Step{
		Op:     "stake",
		Caller: strangerAddr,
		Value:  5,
		Expect: &ExpectClause{Outcome: "UNAUTHORIZED"},
	})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, strangerAddr, result.Trace[1].Caller)
	assert.Equal(t, uint64(5), result.Trace[1].Value)
	assert.Empty(t, result.Staked)
}

func TestRun_ClockCannotMoveBackwards(t *testing.T) {
	_, err := Run(minimalScenario("one",
		Step{Op: "update", Caller: "holder", At: at(5)},
		Step{Op: "acquire", Caller: "holder", At: at(3)},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow step 1")
	assert.Contains(t, err.Error(), "backwards")
}

func TestRun_AdvanceMovesClock(t *testing.T) {
	scenario := minimalScenario("one", Step{Op: "acquire", Caller: "holder", Advance: 4})
	scenario.Start = 10

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.Trace[0].Time)
	assert.Equal(t, int64(14), result.Trace[1].Time)
	assert.Equal(t, []int64{14}, result.State.AcquisitionTimes)
}

func TestRun_RefusedPaymentRollsBack(t *testing.T) {
	scenario := minimalScenario("zero",
		Step{Op: "stake", Caller: "holder", Value: 20},
		Step{Op: "withdraw", Caller: "holder", Amount: 5, RefusePayment: true,
			Expect: &ExpectClause{Outcome: "PAYMENT_FAILED"}},
		Step{Op: "withdraw", Caller: "holder", Amount: 5,
			Expect: &ExpectClause{Outcome: "ok", Delta: delta(-5)}},
	)
	scenario.Assertions = append(scenario.Assertions,
		Assertion{Type: AssertBalance, Party: "holder", Value: 15},
		Assertion{Type: AssertPaid, Party: "holder", Value: 5},
		Assertion{Type: AssertConservation},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]uint64{"holder": 20}, result.Staked)
	assert.Equal(t, map[string]uint64{"holder": 5}, result.Paid)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/fx_forward.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.State.Digest, second.State.Digest)
}
