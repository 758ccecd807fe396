package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/smartfin/internal/compiler"
	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
	"github.com/roach88/smartfin/internal/testutil"
)

// DefaultContractID names the scenario contract when none is given.
const DefaultContractID = "scenario-contract"

// Harness is the scenario execution engine.
// It runs one scenario with a deterministic clock, ID and payment sink.
type Harness struct {
	ctrl     *contract.Controller
	clock    *testutil.HostClock
	payments *testutil.RecordingPayments
	journal  *contract.MemoryJournal
	parties  map[string]ir.Address
	names    map[ir.Address]string
	opts     []contract.Option
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory backend for isolation.
//
// Execution flow:
// 1. Compile the contract
// 2. Deploy it at Start with the counter-party as caller
// 3. Execute setup steps, which must succeed
// 4. Execute flow steps with expect validation
// 5. Evaluate assertions against the final state
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	def, err := compileContract(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to compile contract: %w", err)
	}

	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	backend := storage.NewMemoryBackend()
	defer backend.Close()

	env := contract.Env{Caller: h.parties["counter_party"], Time: h.clock.Now()}
	ctrl, err := contract.Deploy(ctx, backend, env, def, h.parties["holder"], scenario.UseFee, h.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy contract: %w", err)
	}
	h.ctrl = ctrl

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, ev := range h.journal.Events(ctrl.ID()) {
		result.Trace = append(result.Trace, h.traceEvent(ev))
	}
	for _, p := range h.payments.Payments() {
		result.Paid[h.name(p.To)] += p.Amount
	}
	if result.State, err = ctrl.Snapshot(ctx, h.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Controller: ctrl, Journal: h.journal, Parties: h.parties, Options: h.opts}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func compileContract(s *Scenario) ([]int64, error) {
	var (
		e   *compiler.Expr
		err error
	)
	if s.ContractCUE != "" {
		src, rerr := os.ReadFile(s.ContractCUE)
		if rerr != nil {
			return nil, rerr
		}
		e, err = compiler.CompileCUE(src, s.ContractCUE)
	} else {
		e, err = compiler.Parse(s.Contract)
	}
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(e); compiler.HasErrors(errs) {
		return nil, errs[0]
	}
	return e.Definition(), nil
}

func newHarness(s *Scenario) (*Harness, error) {
	h := &Harness{
		clock:    testutil.NewHostClock(s.Start),
		payments: testutil.NewRecordingPayments(),
		journal:  contract.NewMemoryJournal(),
		parties:  map[string]ir.Address{},
		names:    map[ir.Address]string{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in scenarios
	}

	add := func(name, addr string) error {
		a, err := ir.ParseAddress(addr)
		if err != nil {
			return fmt.Errorf("party %s: %w", name, err)
		}
		h.parties[name] = a
		if _, dup := h.names[a]; !dup {
			h.names[a] = name
		}
		return nil
	}
	if err := add("holder", s.Holder); err != nil {
		return nil, err
	}
	if err := add("counter_party", s.CounterParty); err != nil {
		return nil, err
	}
	for name, addr := range s.Parties {
		if err := add(name, addr); err != nil {
			return nil, err
		}
	}

	id := s.ContractID
	if id == "" {
		id = DefaultContractID
	}
	h.opts = []contract.Option{
		contract.WithLogger(h.logger),
		contract.WithJournal(h.journal),
		contract.WithIDGenerator(testutil.NewFixedIDGenerator(id)),
	}
	if s.TxFee > 0 {
		h.opts = append(h.opts, contract.WithTransactionFee(s.TxFee))
	}
	return h, nil
}

// resolve maps a caller name to an address. Unknown names must be
// literal addresses.
func (h *Harness) resolve(name string) (ir.Address, error) {
	if a, ok := h.parties[name]; ok {
		return a, nil
	}
	return ir.ParseAddress(name)
}

// name is the inverse of resolve for trace output.
func (h *Harness) name(a ir.Address) string {
	if n, ok := h.names[a]; ok {
		return n
	}
	return a.String()
}

func (h *Harness) traceEvent(ev ir.Event) TraceEvent {
	te := TraceEvent{
		Seq:     ev.Seq,
		Op:      ev.Op,
		Caller:  h.name(ev.Caller),
		Time:    ev.Time,
		Value:   ev.Value,
		Outcome: ev.Outcome,
		Delta:   ev.Delta,
	}
	if args := ev.Args.CanonicalMap(); len(args) > 0 {
		te.Args = args
	}
	return te
}

// executeSetup runs setup steps. Any failure aborts the scenario.
func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		outcome, _, err := h.execute(ctx, step, result)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if outcome != ir.OutcomeOK {
			return fmt.Errorf("setup step %d (%s): outcome %s", i, step.Op, outcome)
		}
	}
	return nil
}

// executeFlow runs flow steps and validates their expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		outcome, delta, err := h.execute(ctx, step, result)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		h.logger.Debug("flow step completed", "step", i, "op", step.Op, "outcome", outcome, "delta", delta)

		if step.Expect == nil {
			continue
		}
		if outcome != step.Expect.Outcome {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s", i, step.Op, step.Expect.Outcome, outcome))
			continue
		}
		if step.Expect.Delta != nil && *step.Expect.Delta != delta {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected delta %d, got %d", i, step.Op, *step.Expect.Delta, delta))
		}
	}
	return nil
}

// execute runs one step and returns its journal outcome and delta.
// Domain failures are outcomes; only infrastructure failures are errors.
func (h *Harness) execute(ctx context.Context, step Step, result *Result) (string, int64, error) {
	switch {
	case step.At != nil:
		if err := h.clock.Set(*step.At); err != nil {
			return "", 0, err
		}
	case step.Advance > 0:
		h.clock.Advance(step.Advance)
	}

	caller, err := h.resolve(step.Caller)
	if err != nil {
		return "", 0, fmt.Errorf("caller %q: %w", step.Caller, err)
	}
	env := contract.Env{Caller: caller, Time: h.clock.Now(), Value: step.Value, Payments: h.payments}

	h.payments.Refuse(step.RefusePayment)
	defer h.payments.Refuse(false)

	before := len(h.journal.Events(h.ctrl.ID()))
	switch step.Op {
	case ir.OpAcquire:
		_, err = h.ctrl.Acquire(ctx, env)
	case ir.OpUpdate:
		_, err = h.ctrl.Update(ctx, env)
	case ir.OpSetOrChoice:
		err = h.ctrl.SetOrChoice(ctx, env, step.Index, step.First)
	case ir.OpSetObsValue:
		err = h.ctrl.SetObsValue(ctx, env, step.Index, step.ObsValue)
	case ir.OpAcquireAnytime:
		_, err = h.ctrl.AcquireAnytime(ctx, env, step.Index)
	case ir.OpStake:
		if _, err = h.ctrl.Stake(ctx, env); err == nil {
			result.Staked[h.name(caller)] += step.Value
		}
	case ir.OpWithdraw:
		err = h.ctrl.Withdraw(ctx, env, step.Amount)
	default:
		return "", 0, fmt.Errorf("unknown op %q", step.Op)
	}

	// The journal records the outcome exactly as replay will see it.
	events := h.journal.Events(h.ctrl.ID())
	if len(events) != before+1 {
		if err != nil {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("%s was not journaled", step.Op)
	}
	ev := events[len(events)-1]
	return ev.Outcome, ev.Delta, nil
}
