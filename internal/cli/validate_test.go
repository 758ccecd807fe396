package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/compiler"
)

func runValidateCmd(t *testing.T, format, arg string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{arg})
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateValidContract(t *testing.T) {
	output, err := runValidateCmd(t, "text", "or (and one give scale 2 one) zero")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ Contract is valid")
}

func TestValidateCUEFile(t *testing.T) {
	path := writeFile(t, "swap.cue", swapCUE)

	output, err := runValidateCmd(t, "json", path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Findings)
}

func TestValidateWarningsAreValid(t *testing.T) {
	output, err := runValidateCmd(t, "json", "then one one")
	require.NoError(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Findings, 1)
	assert.Equal(t, compiler.ErrUnreachableBranch, resp.Data.Findings[0].Code)
	assert.Equal(t, compiler.SeverityWarning, resp.Data.Findings[0].Severity)
}

func TestValidateErrorFindings(t *testing.T) {
	tests := []struct {
		name     string
		contract string
		wantCode string
	}{
		{"negative deadline", "truncate -5 one", compiler.ErrNegativeDeadline},
		{"zero arbiter", `scale obs(0x0000000000000000000000000000000000000000, "X") one`, compiler.ErrZeroArbiter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := runValidateCmd(t, "json", tt.contract)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			var resp struct {
				Status string                     `json:"status"`
				Error  *CLIError                  `json:"error"`
				Data   []compiler.ValidationError `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(output), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, ErrCodeValidation, resp.Error.Code)
			require.NotEmpty(t, resp.Data)
			assert.Equal(t, tt.wantCode, resp.Data[0].Code)
		})
	}
}

func TestValidateTextErrors(t *testing.T) {
	output, err := runValidateCmd(t, "text", "truncate -5 one")
	require.Error(t, err)
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "error [E103]")
}

func TestValidateParseError(t *testing.T) {
	output, err := runValidateCmd(t, "text", "and one")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, output, "Error [E002]")
}
