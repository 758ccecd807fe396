package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Op string // optional - filter to one operation
}

// TraceEvent is one journal entry in the timeline.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Op      string         `json:"op"`
	Caller  string         `json:"caller"`
	Time    int64          `json:"time"`
	Value   uint64         `json:"value,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Delta   int64          `json:"delta"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	ContractID string       `json:"contract_id"`
	Timeline   []TraceEvent `json:"timeline"`
	Stats      TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the journal.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Committed   int            `json:"committed"`
	Failed      int            `json:"failed"`
	FailedCodes map[string]int `json:"failed_codes,omitempty"`
	LastTime    int64          `json:"last_time"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <contract-id>",
		Short: "Show a contract's event journal",
		Long: `Show every journaled event of a contract in sequence order,
committed or aborted, with its outcome and settlement delta.

Examples:
  smartfin trace loan-1
  smartfin trace loan-1 --op withdraw
  smartfin trace loan-1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to one operation")

	return cmd
}

func runTrace(opts *TraceOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	st, err := store.Open(opts.Config.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	history, err := st.GetHistory(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	if len(history.Events) == 0 {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no events for contract %s", id), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("no events for contract %s", id))
	}

	result := TraceResult{
		ContractID: id,
		Timeline:   []TraceEvent{},
		Stats: TraceStats{
			TotalEvents: len(history.Events),
			Committed:   history.Committed,
			Failed:      history.Failed,
			LastTime:    history.LastTime,
		},
	}
	if len(history.FailedCodes) > 0 {
		result.Stats.FailedCodes = history.FailedCodes
	}
	for _, ev := range history.Events {
		if opts.Op != "" && ev.Op != opts.Op {
			continue
		}
		te := TraceEvent{
			Seq:     ev.Seq,
			Op:      ev.Op,
			Caller:  ev.Caller.String(),
			Time:    ev.Time,
			Value:   ev.Value,
			Outcome: ev.Outcome,
			Delta:   ev.Delta,
		}
		if args := ev.Args.CanonicalMap(); len(args) > 0 {
			te.Args = args
		}
		result.Timeline = append(result.Timeline, te)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Contract %s\n\n", result.ContractID)
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  [%d] t=%d %-15s %s  %s", ev.Seq, ev.Time, ev.Op, ev.Caller, ev.Outcome)
		if ev.Delta != 0 {
			fmt.Fprintf(w, " (delta %d)", ev.Delta)
		}
		fmt.Fprintln(w)
	}

	s := result.Stats
	fmt.Fprintf(w, "\n%d event(s): %d committed, %d failed\n", s.TotalEvents, s.Committed, s.Failed)
	codes := make([]string, 0, len(s.FailedCodes))
	for code := range s.FailedCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, s.FailedCodes[code])
	}
	return nil
}
