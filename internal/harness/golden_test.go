package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/ir"
)

// TestDemoScenarios runs the scenarios under testdata/scenarios and
// compares their traces with the golden files.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -run TestDemoScenarios -update
func TestDemoScenarios(t *testing.T) {
	tests := []string{
		"one_pays_holder",
		"fx_forward",
		"fee_withdraw",
		"american_option",
		"choice_swap",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err, "failed to load scenario %s", name)

			assert.Equal(t, name, scenario.Name, "scenario name mismatch")
			assert.NotEmpty(t, scenario.Description, "scenario should have description")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err, "scenario execution failed")
			require.NotNil(t, result)

			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)
			assert.NotEmpty(t, result.Trace, "trace should not be empty")
			t.Logf("Scenario %s: %d trace events", name, len(result.Trace))
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/one_pays_holder.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	err = AssertGolden(t, "one_pays_holder", result)
	require.NoError(t, err)
}

func TestCanonicalJSONDeterminism(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "determinism_test",
		Trace: []TraceEvent{
			{
				Seq:     1,
				Op:      ir.OpStake,
				Caller:  "holder",
				Time:    2,
				Value:   9,
				Outcome: ir.OutcomeOK,
				Delta:   9,
			},
			{
				Seq:     2,
				Op:      ir.OpSetOrChoice,
				Caller:  "holder",
				Time:    3,
				Args:    map[string]any{"index": int64(1), "choice": true},
				Outcome: "ALREADY_SET",
			},
		},
		Result: &Result{State: contract.State{HolderBalance: 9, LastUpdated: -1}},
	}

	first, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
		require.NoError(t, err)
		require.Equal(t, first, again, "run %d produced different JSON", i)
	}

	want := `{"final":{"acquisition_times":[],"concluded":false,"counter_party_balance":0,"holder_balance":9,"last_updated":-1,"or_choices":[]},` +
		`"scenario_name":"determinism_test","trace":[` +
		`{"caller":"holder","delta":9,"op":"stake","outcome":"ok","seq":1,"time":2,"value":9},` +
		`{"args":{"choice":true,"index":1},"caller":"holder","delta":0,"op":"set_or_choice","outcome":"ALREADY_SET","seq":2,"time":3}]}`
	assert.Equal(t, want, string(first))
}
