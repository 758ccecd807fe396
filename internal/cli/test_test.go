package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	demoScenarios = filepath.Join("..", "harness", "testdata", "scenarios")
	demoGolden    = filepath.Join("..", "harness", "testdata", "golden")
)

func runTestCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommand_DemoScenarios(t *testing.T) {
	output, err := runTestCmd(t, "text", demoScenarios, "--golden-dir", demoGolden)
	require.NoError(t, err, output)

	assert.Contains(t, output, "✓ one_pays_holder")
	assert.Contains(t, output, "✓ choice_swap")
	assert.Contains(t, output, "Test Summary: 5 passed, 0 failed, 5 total")
	assert.Contains(t, output, "✓ All scenarios passed")
}

func TestTestCommand_JSON(t *testing.T) {
	output, err := runTestCmd(t, "json", demoScenarios, "--golden-dir", demoGolden)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 5, resp.Data.Total)
	assert.Equal(t, 5, resp.Data.Passed)
}

func TestTestCommand_Filter(t *testing.T) {
	output, err := runTestCmd(t, "text", demoScenarios, "--golden-dir", demoGolden, "--filter", "f*")
	require.NoError(t, err)

	assert.Contains(t, output, "✓ fee_withdraw")
	assert.Contains(t, output, "✓ fx_forward")
	assert.Contains(t, output, "2 total")
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	goldenDir := t.TempDir()
	scenario := filepath.Join(demoScenarios, "one_pays_holder.yaml")

	output, err := runTestCmd(t, "text", scenario, "--golden-dir", goldenDir, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "(golden updated)")

	written, err := os.ReadFile(filepath.Join(goldenDir, "one_pays_holder.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(demoGolden, "one_pays_holder.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(written))

	_, err = runTestCmd(t, "text", scenario, "--golden-dir", goldenDir)
	require.NoError(t, err)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	goldenDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "one_pays_holder.golden"), []byte("{}"), 0644))

	output, err := runTestCmd(t, "text", filepath.Join(demoScenarios, "one_pays_holder.yaml"), "--golden-dir", goldenDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "trace does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wrong.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: wrong
description: expects the wrong delta
contract: one
holder: "`+holderAddr+`"
counter_party: "`+counterPartyAddr+`"
flow:
  - op: acquire
    caller: holder
    at: 1
    expect:
      outcome: ok
      delta: 2
assertions:
  - type: balance
    party: holder
    value: 1
`), 0644))

	output, err := runTestCmd(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Error  *CLIError  `json:"error"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))

	output, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, output, "✗ broken.yaml")
	assert.Contains(t, output, "failed to load scenario")
}

func TestTestCommand_PathErrors(t *testing.T) {
	_, err := runTestCmd(t, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runTestCmd(t, "text", demoScenarios, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoScenarios(t *testing.T) {
	output, err := runTestCmd(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found.")
}
