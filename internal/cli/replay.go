package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/contract"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// ReplayContractResult holds the replay result for a single contract.
type ReplayContractResult struct {
	ContractID    string              `json:"contract_id"`
	Events        int                 `json:"events"`
	Digest        string              `json:"digest"`
	Deterministic bool                `json:"deterministic"`
	Mismatches    []contract.Mismatch `json:"mismatches"`
	Error         string              `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Contracts        []ReplayContractResult `json:"contracts"`
	TotalContracts   int                    `json:"total_contracts"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [contract-id...]",
		Short: "Replay journals and verify determinism",
		Long: `Re-execute each contract's journal against a fresh in-memory backend and
check every event's outcome and delta, then compare the replayed state
digest with the live contract. Without arguments every registered
contract is replayed.

Exit codes:
  0 - All contracts are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  smartfin replay
  smartfin replay loan-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(ids) == 0 {
		records, err := s.store.ListContracts(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list contracts", err)
		}
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
	}

	result := ReplayResult{
		Contracts:        make([]ReplayContractResult, 0, len(ids)),
		TotalContracts:   len(ids),
		AllDeterministic: true,
	}
	for _, id := range ids {
		r, err := replayContract(ctx, s, id)
		if err != nil {
			return err
		}
		if !r.Deterministic {
			result.AllDeterministic = false
		}
		result.Contracts = append(result.Contracts, r)
	}

	if formatter.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayContract verifies one contract. Divergence is reported in the
// result; only infrastructure failures are returned.
func replayContract(ctx context.Context, s *session, id string) (ReplayContractResult, error) {
	r := ReplayContractResult{ContractID: id, Mismatches: []contract.Mismatch{}}

	events, err := s.store.Events(ctx, id)
	if err != nil {
		return r, WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if len(events) == 0 {
		return r, NewExitError(ExitCommandError, fmt.Sprintf("no events for contract %s", id))
	}

	live, err := s.open(ctx, id)
	if err != nil {
		r.Error = err.Error()
		return r, nil
	}

	res, err := contract.Verify(ctx, live, events, s.replayOptions()...)
	r.Events = res.Events
	r.Digest = res.Digest
	r.Mismatches = append(r.Mismatches, res.Mismatches...)
	switch {
	case err == nil:
		r.Deterministic = true
	case errors.Is(err, contract.ErrReplayMismatch):
		r.Error = err.Error()
	default:
		return r, WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay %s", id), err)
	}
	return r, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	if result.AllDeterministic {
		return formatter.Success(result)
	}

	response := CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		},
	}
	if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
		return err
	}
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d contract(s)\n", result.TotalContracts)
	fmt.Fprintln(w)

	for _, c := range result.Contracts {
		status := "✓"
		if !c.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Contract: %s\n", status, c.ContractID)
		fmt.Fprintf(w, "  Events: %d\n", c.Events)
		if formatter.Verbose {
			fmt.Fprintf(w, "  Digest: %s\n", c.Digest)
		}
		for _, m := range c.Mismatches {
			fmt.Fprintf(w, "  [%d] %s recorded %s (delta %d), replayed %s (delta %d)\n",
				m.Seq, m.Op, m.Recorded, m.WantDelta, m.Replayed, m.GotDelta)
		}
		if c.Error != "" {
			fmt.Fprintf(w, "  Warning: %s\n", c.Error)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All contracts verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
