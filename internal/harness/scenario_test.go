package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioHeader = `
name: test_scenario
description: "Test scenario for validation"
holder: "0x00000000000000000000000000000000000000a1"
counter_party: "0x00000000000000000000000000000000000000c2"
`

// writeScenario writes content to a scenario file in a temp dir.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, scenarioHeader+`
contract: scale 3 one
parties:
  fixer: "0x00000000000000000000000000000000000000b3"
setup:
  - op: stake
    caller: counter_party
    value: 10
flow:
  - op: acquire
    caller: holder
    at: 4
    expect:
      outcome: ok
      delta: 3
assertions:
  - type: balance
    party: holder
    value: 3
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "scale 3 one", scenario.Contract)
	assert.Equal(t, "0x00000000000000000000000000000000000000b3", scenario.Parties["fixer"])
	require.Len(t, scenario.Setup, 1)
	assert.Equal(t, uint64(10), scenario.Setup[0].Value)
	require.Len(t, scenario.Flow, 1)
	require.NotNil(t, scenario.Flow[0].At)
	assert.Equal(t, int64(4), *scenario.Flow[0].At)
	require.NotNil(t, scenario.Flow[0].Expect)
	require.NotNil(t, scenario.Flow[0].Expect.Delta)
	assert.Equal(t, int64(3), *scenario.Flow[0].Expect.Delta)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_ContractCUERelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.cue"), []byte(`contract: one: {}`), 0644))
	path := filepath.Join(dir, "test.yaml")
	content := scenarioHeader + `
contract_cue: c.cue
flow:
  - op: acquire
    caller: holder
assertions:
  - type: replay
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "c.cue"), scenario.ContractCUE)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, scenarioHeader+`
contract: one
flow:
  - op: acquire
    caller: holder
assertion:
  - type: replay
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	flow := `
flow:
  - op: acquire
    caller: holder
`
	assertions := `
assertions:
  - type: replay
`
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
contract: one
holder: "0x00000000000000000000000000000000000000a1"
counter_party: "0x00000000000000000000000000000000000000c2"
` + flow + assertions,
			wantErr: "name is required",
		},
		{
			name:    "no contract",
			content: scenarioHeader + flow + assertions,
			wantErr: "exactly one of contract or contract_cue",
		},
		{
			name:    "both contracts",
			content: scenarioHeader + "contract: one\ncontract_cue: x.cue\n" + flow + assertions,
			wantErr: "exactly one of contract or contract_cue",
		},
		{
			name:    "missing cue file",
			content: scenarioHeader + "contract_cue: missing.cue\n" + flow + assertions,
			wantErr: "contract file not found",
		},
		{
			name: "bad holder",
			content: `
name: n
description: d
contract: one
holder: "0xa1"
counter_party: "0x00000000000000000000000000000000000000c2"
` + flow + assertions,
			wantErr: "holder",
		},
		{
			name:    "bad party",
			content: scenarioHeader + "contract: one\nparties:\n  fixer: nope\n" + flow + assertions,
			wantErr: "parties.fixer",
		},
		{
			name:    "empty flow",
			content: scenarioHeader + "contract: one\nflow: []\n" + assertions,
			wantErr: "flow list is required",
		},
		{
			name:    "no assertions",
			content: scenarioHeader + "contract: one\n" + flow,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown op",
			content: scenarioHeader + `
contract: one
flow:
  - op: deploy
    caller: holder
` + assertions,
			wantErr: `flow[0]: unknown op "deploy"`,
		},
		{
			name: "missing caller",
			content: scenarioHeader + `
contract: one
setup:
  - op: stake
    value: 1
` + flow + assertions,
			wantErr: "setup[0]: caller is required",
		},
		{
			name: "at and advance",
			content: scenarioHeader + `
contract: one
flow:
  - op: acquire
    caller: holder
    at: 1
    advance: 1
` + assertions,
			wantErr: "mutually exclusive",
		},
		{
			name: "expect without outcome",
			content: scenarioHeader + `
contract: one
flow:
  - op: acquire
    caller: holder
    expect:
      delta: 1
` + assertions,
			wantErr: "flow[0].expect: outcome is required",
		},
		{
			name: "balance without party",
			content: scenarioHeader + "contract: one\n" + flow + `
assertions:
  - type: balance
    value: 1
`,
			wantErr: "party is required for balance",
		},
		{
			name: "times without values",
			content: scenarioHeader + "contract: one\n" + flow + `
assertions:
  - type: acquisition_times
`,
			wantErr: "values is required for acquisition_times",
		},
		{
			name: "unknown assertion",
			content: scenarioHeader + "contract: one\n" + flow + `
assertions:
  - type: trace_contains
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "test.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
