package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/ir"
)

// OpResult reports one evaluation event.
type OpResult struct {
	ContractID string `json:"contract_id"`
	Op         string `json:"op"`
	Caller     string `json:"caller"`
	Time       int64  `json:"time"`
	Delta      *int64 `json:"delta,omitempty"`   // settlement owed to the holder
	Balance    *int64 `json:"balance,omitempty"` // caller's balance after a stake
	Paid       uint64 `json:"paid,omitempty"`    // amount paid out by a withdrawal
}

// opSpec describes one evaluation command. Positional args follow the
// contract ID.
type opSpec struct {
	use   string
	short string
	long  string
	args  int
	value bool
	run   func(ctx context.Context, c *contract.Controller, env contract.Env, args []string, res *OpResult) error
}

// opOptions holds flags shared by evaluation commands.
type opOptions struct {
	*RootOptions
	Caller string
	At     int64
	Value  uint64
}

func opCommands() []opSpec {
	return []opSpec{
		{
			use:   "acquire <contract-id>",
			short: "Acquire the contract as its holder",
			long:  "Acquire the contract at --at and settle once. Only the holder may acquire, and only once.",
			run: func(ctx context.Context, c *contract.Controller, env contract.Env, _ []string, res *OpResult) error {
				d, err := c.Acquire(ctx, env)
				res.Delta = &d
				return err
			},
		},
		{
			use:   "update <contract-id>",
			short: "Settle everything owed up to --at",
			long:  "Settle everything owed up to --at. Anyone may update; a concluded contract fails with CONCLUDED.",
			run: func(ctx context.Context, c *contract.Controller, env contract.Env, _ []string, res *OpResult) error {
				d, err := c.Update(ctx, env)
				res.Delta = &d
				return err
			},
		},
		{
			use:   "set-or <contract-id> <index> <first|second>",
			short: "Choose a branch of an or combinator",
			long:  "Record the holder's choice for or-choice <index>. Each choice may be set once.",
			args:  2,
			run: func(ctx context.Context, c *contract.Controller, env contract.Env, args []string, _ *OpResult) error {
				index, err := parseIndex(args[0])
				if err != nil {
					return err
				}
				first, err := parseChoice(args[1])
				if err != nil {
					return err
				}
				return c.SetOrChoice(ctx, env, index, first)
			},
		},
		{
			use:   "set-obs <contract-id> <index> <value>",
			short: "Publish an observable's value as its arbiter",
			long:  "Resolve observable <index> to <value>. Only the observable's arbiter may set it, and only once.",
			args:  2,
			run: func(ctx context.Context, c *contract.Controller, env contract.Env, args []string, _ *OpResult) error {
				index, err := parseIndex(args[0])
				if err != nil {
					return err
				}
				v, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", args[1], err)
				}
				return c.SetObsValue(ctx, env, index, v)
			},
		},
		{
			use:   "acquire-anytime <contract-id> <index>",
			short: "Exercise an anytime combinator",
			long:  "Acquire the sub-contract of anytime slot <index> at --at, then settle once. Only the holder may exercise.",
			args:  1,
			run: func(ctx context.Context, c *contract.Controller, env contract.Env, args []string, res *OpResult) error {
				index, err := parseIndex(args[0])
				if err != nil {
					return err
				}
				d, err := c.AcquireAnytime(ctx, env, index)
				res.Delta = &d
				return err
			},
		},
		{
			use:   "stake <contract-id>",
			short: "Stake --value into the caller's balance",
			long:  "Credit --value to the caller's balance. Only the holder and the counter-party may stake.",
			value: true,
			run: func(ctx context.Context, c *contract.Controller, env contract.Env, _ []string, res *OpResult) error {
				b, err := c.Stake(ctx, env)
				res.Balance = &b
				return err
			},
		},
		{
			use:   "withdraw <contract-id> <amount>",
			short: "Withdraw from the caller's balance",
			long:  "Pay up to <amount> from the caller's balance. In fee mode the transaction fee is debited on top.",
			args:  1,
			run: func(ctx context.Context, c *contract.Controller, env contract.Env, args []string, res *OpResult) error {
				amount, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", args[0], err)
				}
				return c.Withdraw(ctx, env, amount)
			},
		},
	}
}

func newOpCommand(rootOpts *RootOptions, spec opSpec) *cobra.Command {
	opts := &opOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           spec.use,
		Short:         spec.short,
		Long:          spec.long,
		Args:          cobra.ExactArgs(spec.args + 1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts, spec, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "calling party address (required)")
	cmd.Flags().Int64Var(&opts.At, "at", 0, "event time (default: now)")
	if spec.value {
		cmd.Flags().Uint64Var(&opts.Value, "value", 0, "amount attached to the call")
	}
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

func runOp(opts *opOptions, spec opSpec, args []string, cmd *cobra.Command) error {
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

	caller, err := ir.ParseAddress(opts.Caller)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --caller", err)
	}

	s, err := openSession(opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	id := args[0]
	c, err := s.open(ctx, id)
	if err != nil {
		return formatter.Fail(fmt.Sprintf("open %s", id), err)
	}

	payments := &ledgerPayments{opts: opts.RootOptions}
	env := contract.Env{
		Caller:   caller,
		Time:     eventTime(cmd, opts.At),
		Value:    opts.Value,
		Payments: payments,
	}
	op := cmd.Name()
	res := OpResult{ContractID: id, Op: op, Caller: caller.String(), Time: env.Time}
	if err := spec.run(ctx, c, env, args[1:], &res); err != nil {
		return formatter.Fail(op+" failed", err)
	}
	res.Paid = payments.total()

	if formatter.Format == "json" {
		return formatter.Success(res)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s %s at %d\n", op, id, res.Time)
	switch {
	case res.Delta != nil:
		fmt.Fprintf(formatter.Writer, "  delta: %d\n", *res.Delta)
	case res.Balance != nil:
		fmt.Fprintf(formatter.Writer, "  balance: %d\n", *res.Balance)
	case res.Paid > 0:
		fmt.Fprintf(formatter.Writer, "  paid: %d\n", res.Paid)
	}
	return nil
}

// eventTime returns --at when given, otherwise the current Unix time.
func eventTime(cmd *cobra.Command, at int64) int64 {
	if cmd.Flags().Changed("at") {
		return at
	}
	return time.Now().Unix()
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	return i, nil
}

func parseChoice(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "first", "1", "true":
		return true, nil
	case "second", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid choice %q: must be first or second", s)
}

// ledgerPayments settles withdrawals on the host side. The CLI has no
// payment rail of its own, so payouts are logged for the operator and
// reported in the command output.
type ledgerPayments struct {
	opts *RootOptions

	mu   sync.Mutex
	paid uint64
}

func (p *ledgerPayments) Pay(ctx context.Context, to ir.Address, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid += amount
	p.opts.logger().Info("payout", "to", to.String(), "amount", amount)
	return nil
}

func (p *ledgerPayments) total() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paid
}
