package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	At int64
}

// ShowResult is a contract's registry row and current state.
type ShowResult struct {
	contract.State
	DefinitionHash string  `json:"definition_hash,omitempty"`
	CreatedAt      int64   `json:"created_at"`
	ObsEntries     []int64 `json:"obs_entries"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <contract-id>",
		Short: "Show a contract's state",
		Long: `Show a contract's parties, balances, acquisition times, external
inputs and whether it has concluded at --at.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "time at which to evaluate conclusion (default: now)")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.open(ctx, id)
	if err != nil {
		return formatter.Fail(fmt.Sprintf("open %s", id), err)
	}
	state, err := c.Snapshot(ctx, eventTime(cmd, opts.At))
	if err != nil {
		return formatter.Fail("read state", err)
	}
	entries, err := c.ObsEntries(ctx)
	if err != nil {
		return formatter.Fail("read state", err)
	}

	result := ShowResult{State: state, ObsEntries: entries}
	rec, ok, err := s.store.GetContract(ctx, id)
	if err != nil {
		return formatter.Fail("read registry", err)
	}
	if ok {
		result.DefinitionHash = rec.DefinitionHash
		result.CreatedAt = rec.CreatedAt
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Contract %s\n", state.ID)
	fmt.Fprintf(w, "  holder:            %s (balance %d)\n", state.Holder, state.HolderBalance)
	fmt.Fprintf(w, "  counter-party:     %s (balance %d)\n", state.CounterParty, state.CounterPartyBalance)
	fmt.Fprintf(w, "  fee mode:          %t\n", state.UseFee)
	fmt.Fprintf(w, "  last updated:      %d\n", state.LastUpdated)
	fmt.Fprintf(w, "  acquisition times: %v\n", state.AcquisitionTimes)
	fmt.Fprintf(w, "  or-choices:        %v\n", state.OrChoices)
	for i, o := range state.Observables {
		value := "unset"
		if o.Value != nil {
			value = fmt.Sprintf("%d", *o.Value)
		}
		fmt.Fprintf(w, "  observable %d:      %q by %s = %s\n", i, o.Name, o.Arbiter, value)
	}
	fmt.Fprintf(w, "  concluded:         %t\n", state.Concluded)
	fmt.Fprintf(w, "  digest:            %s\n", state.Digest)
	return nil
}

// ListResult holds every registered contract.
type ListResult struct {
	Contracts []ListEntry `json:"contracts"`
}

// ListEntry is one registry row.
type ListEntry struct {
	ID             string `json:"id"`
	Holder         string `json:"holder"`
	CounterParty   string `json:"counter_party"`
	DefinitionHash string `json:"definition_hash"`
	CreatedAt      int64  `json:"created_at"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List deployed contracts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
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

	records, err := st.ListContracts(ctx)
	if err != nil {
		return formatter.Fail("list contracts", err)
	}

	result := ListResult{Contracts: make([]ListEntry, 0, len(records))}
	for _, rec := range records {
		result.Contracts = append(result.Contracts, ListEntry{
			ID:             rec.ID,
			Holder:         rec.Holder.String(),
			CounterParty:   rec.CounterParty.String(),
			DefinitionHash: rec.DefinitionHash,
			CreatedAt:      rec.CreatedAt,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if len(result.Contracts) == 0 {
		fmt.Fprintln(formatter.Writer, "No contracts found.")
		return nil
	}
	for _, e := range result.Contracts {
		fmt.Fprintf(formatter.Writer, "%s  created %d  holder %s  counter-party %s\n", e.ID, e.CreatedAt, e.Holder, e.CounterParty)
	}
	return nil
}
