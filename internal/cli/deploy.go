package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/compiler"
	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/store"
)

// DeployOptions holds flags for the deploy command.
type DeployOptions struct {
	*RootOptions
	Holder string
	Caller string
	At     int64
	UseFee bool
	ID     string
}

// DeployResult describes a deployed contract.
type DeployResult struct {
	ID             string  `json:"id"`
	Holder         string  `json:"holder"`
	CounterParty   string  `json:"counter_party"`
	UseFee         bool    `json:"use_fee"`
	DeployedAt     int64   `json:"deployed_at"`
	Definition     []int64 `json:"definition"`
	DefinitionHash string  `json:"definition_hash"`
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeployOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deploy <contract>",
		Short: "Deploy a contract instance",
		Long: `Compile and deploy a contract. The caller becomes the counter-party.

Both balances start at zero. The contract is registered in the database
and its deployment is the first event of its journal.

Examples:
  smartfin deploy swap.cue --holder 0x..a1 --caller 0x..c2
  smartfin deploy "scale 100 one" --holder 0x..a1 --caller 0x..c2 --use-fee --id loan-1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Holder, "holder", "", "holder address (required)")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "deploying party, the counter-party (required)")
	cmd.Flags().Int64Var(&opts.At, "at", 0, "deployment time (default: now)")
	cmd.Flags().BoolVar(&opts.UseFee, "use-fee", false, "reserve the transaction fee from withdrawals")
	cmd.Flags().StringVar(&opts.ID, "id", "", "contract ID (default: a new UUIDv7)")
	_ = cmd.MarkFlagRequired("holder")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

func runDeploy(ctx context.Context, opts *DeployOptions, arg string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	holder, err := ir.ParseAddress(opts.Holder)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --holder", err)
	}
	caller, err := ir.ParseAddress(opts.Caller)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --caller", err)
	}

	loaded, err := LoadContract(arg)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	if compiler.HasErrors(loaded.Findings) {
		return outputFindings(formatter, loaded.Findings)
	}
	for _, f := range loaded.Findings {
		formatter.VerboseLog("warning: %s", f.Error())
	}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	at := eventTime(cmd, opts.At)
	env := contract.Env{Caller: caller, Time: at}
	var extra []contract.Option
	if opts.ID != "" {
		extra = append(extra, contract.WithID(opts.ID))
	}

	c, err := contract.Deploy(ctx, s.backend, env, loaded.Definition, holder, opts.UseFee, s.options(extra...)...)
	if err != nil {
		return formatter.Fail("deploy failed", err)
	}

	hash := ir.DefinitionHash(loaded.Definition)
	rec := store.ContractRecord{
		ID:             c.ID(),
		Holder:         holder,
		CounterParty:   caller,
		DefinitionHash: hash,
		CreatedAt:      at,
	}
	if err := s.store.RegisterContract(ctx, rec); err != nil {
		return formatter.Fail("deploy failed", err)
	}

	result := DeployResult{
		ID:             c.ID(),
		Holder:         holder.String(),
		CounterParty:   caller.String(),
		UseFee:         opts.UseFee,
		DeployedAt:     at,
		Definition:     loaded.Definition,
		DefinitionHash: hash,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Deployed %s\n", result.ID)
	fmt.Fprintf(formatter.Writer, "  holder:        %s\n", result.Holder)
	fmt.Fprintf(formatter.Writer, "  counter-party: %s\n", result.CounterParty)
	fmt.Fprintf(formatter.Writer, "  deployed at:   %d\n", result.DeployedAt)
	return nil
}
