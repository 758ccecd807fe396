package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/smartfin/internal/ir"
)

// TraceSnapshot captures the trace and final balances of a scenario
// execution. It serializes with canonical JSON for deterministic
// comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Result       *Result
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, maps and slices.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"op":      ev.Op,
			"caller":  ev.Caller,
			"time":    ev.Time,
			"outcome": ev.Outcome,
			"delta":   ev.Delta,
		}
		if ev.Value != 0 {
			m["value"] = ev.Value
		}
		if ev.Args != nil {
			m["args"] = ev.Args
		}
		traceList[i] = m
	}

	st := s.Result.State
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"final": map[string]any{
			"holder_balance":        st.HolderBalance,
			"counter_party_balance": st.CounterPartyBalance,
			"acquisition_times":     nonNil(st.AcquisitionTimes),
			"or_choices":            nonNil(st.OrChoices),
			"concluded":             st.Concluded,
			"last_updated":          st.LastUpdated,
		},
	}
}

func nonNil(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := GoldenBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}

// GoldenBytes returns the canonical JSON stored in a scenario's golden
// file.
func GoldenBytes(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Result:       result,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}
