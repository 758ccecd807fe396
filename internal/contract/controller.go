package contract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
)

// DefaultTransactionFee is the fee reserved from withdrawals in fee mode.
const DefaultTransactionFee int64 = 2300

// Controller evaluates one contract instance. It holds no contract state
// of its own: every call reloads from the backend.
type Controller struct {
	backend storage.Backend
	id      string
	opts    options
}

type options struct {
	fee     int64
	logger  *slog.Logger
	journal Journal
	ids     IDGenerator

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	telemetry      *telemetry
}

// Option configures a Controller.
type Option func(*options)

// WithTransactionFee sets the fee reserved from each withdrawal when the
// contract was deployed in fee mode.
//
// Default: 2300 (DefaultTransactionFee). Negative fees are ignored.
func WithTransactionFee(fee int64) Option {
	return func(o *options) {
		if fee >= 0 {
			o.fee = fee
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithJournal records every evaluation event, committed or aborted.
func WithJournal(j Journal) Option {
	return func(o *options) {
		o.journal = j
	}
}

// WithIDGenerator sets how Deploy names new contracts.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithTelemetry reports spans and metrics to the given providers instead
// of the global ones. A nil provider keeps the global one.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
		o.meterProvider = mp
	}
}

// WithID deploys the contract under id instead of a generated one.
func WithID(id string) Option {
	return WithIDGenerator(fixedID(id))
}

func newOptions(opts []Option) options {
	o := options{
		fee:    DefaultTransactionFee,
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider != nil || o.meterProvider != nil {
		o.telemetry = newTelemetry(o.tracerProvider, o.meterProvider)
	} else {
		o.telemetry = globalTelemetry()
	}
	return o
}

// Deploy instantiates a contract from a definition. The caller in env
// becomes the counter-party; holder must be a different address.
//
// The definition is decoded once: the persisted tree and the or-choice,
// observable and anytime tables are written in the same event. Both
// balances start at zero and last-updated is env.Time.
func Deploy(ctx context.Context, backend storage.Backend, env Env, definition []int64, holder ir.Address, useFee bool, opts ...Option) (*Controller, error) {
	o := newOptions(opts)
	c := &Controller{backend: backend, id: o.ids.Generate(), opts: o}

	args := ir.EventArgs{
		Definition: definition,
		Holder:     holder.String(),
		UseFee:     useFee,
	}
	_, err := c.run(ctx, ir.OpDeploy, env, args, false, func(st *state) (int64, error) {
		return 0, st.deploy(env, definition, holder, useFee)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (st *state) deploy(env Env, definition []int64, holder ir.Address, useFee bool) error {
	if holder == env.Caller {
		return combinator.Errorf(CodeInvalidInstantiation, "holder and counter-party must be different addresses")
	}
	if len(definition) == 0 {
		return combinator.Errorf(combinator.CodeMalformed, "provided combinator contract not valid: empty definition")
	}

	s := st.s
	if err := s.SetAddress(keyHolder, holder); err != nil {
		return err
	}
	if err := s.SetAddress(keyCounterParty, env.Caller); err != nil {
		return err
	}
	if err := s.SetInt(keyHolderBalance, 0); err != nil {
		return err
	}
	if err := s.SetInt(keyCounterPartyBalance, 0); err != nil {
		return err
	}
	if err := s.SetBool(keyUseFee, useFee); err != nil {
		return err
	}
	if err := s.SetInt(keyLastUpdated, env.Time); err != nil {
		return err
	}
	if err := s.SetSeq(keyDefinition, definition); err != nil {
		return err
	}

	root, err := combinator.DecodeDefinition(definition, st.tables)
	if err != nil {
		return err
	}
	return st.saveTree(root)
}

// Open attaches to an already-deployed contract.
func Open(ctx context.Context, backend storage.Backend, id string, opts ...Option) (*Controller, error) {
	c := &Controller{backend: backend, id: id, opts: newOptions(opts)}
	err := backend.View(ctx, id, func(kv storage.KV) error {
		ok, err := newState(kv).initialized()
		if err != nil {
			return err
		}
		if !ok {
			return notInitialized().With("contract", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ID returns the contract instance ID.
func (c *Controller) ID() string {
	return c.id
}

// effect is an external action taken once an event's state change has
// committed. If do fails, undo reverts that change in a second
// transaction and the event is reported with do's error.
type effect struct {
	do   func(ctx context.Context) error
	undo func(st *state) error
}

// run executes fn as one evaluation event. settles marks operations whose
// result is a settlement delta.
func (c *Controller) run(ctx context.Context, op string, env Env, args ir.EventArgs, settles bool, fn func(*state) (int64, error)) (int64, error) {
	return c.runEffect(ctx, op, env, args, settles, fn, nil)
}

// runEffect is run with an optional effect. fn may leave eff unset to
// skip it.
func (c *Controller) runEffect(ctx context.Context, op string, env Env, args ir.EventArgs, settles bool, fn func(*state) (int64, error), eff *effect) (int64, error) {
	ctx, span := c.opts.telemetry.startOpSpan(ctx, c.id, op, env.Time)
	start := time.Now()

	var delta int64
	err := c.backend.Update(ctx, c.id, func(kv storage.KV) error {
		st := newState(kv)
		ok, err := st.initialized()
		if err != nil {
			return err
		}
		switch {
		case op == ir.OpDeploy && ok:
			return combinator.Errorf(CodeInvalidInstantiation, "contract %s already exists", c.id)
		case op != ir.OpDeploy && !ok:
			return notInitialized().With("contract", c.id)
		}
		if env.Time < 0 {
			return combinator.Errorf(combinator.CodeTemporal, "event time %d is before the epoch", env.Time)
		}

		d, err := fn(st)
		if err != nil {
			return err
		}
		delta = d
		return nil
	})
	if err == nil && eff != nil && eff.do != nil {
		if err = eff.do(ctx); err != nil {
			delta = 0
			uerr := c.backend.Update(ctx, c.id, func(kv storage.KV) error {
				return eff.undo(newState(kv))
			})
			if uerr != nil {
				c.opts.logger.Error("event compensation failed", "contract", c.id, "op", op, "error", uerr)
				err = fmt.Errorf("undo %s after %v: %w", op, err, uerr)
			}
		}
	}
	err = classify(err)

	result := outcome(err)
	endOpSpan(span, delta, result, err)
	c.opts.telemetry.recordOpMetrics(ctx, op, time.Since(start), delta, result, settles && err == nil)

	log := c.opts.logger.With("contract", c.id, "op", op, "time", env.Time)
	if err != nil {
		log.Warn("event aborted", "code", result, "error", err)
	} else {
		log.Debug("event committed", "delta", delta)
	}

	if jerr := c.journal(ctx, op, env, args, delta, result); jerr != nil {
		log.Error("journal append failed", "error", jerr)
		if err == nil {
			return delta, fmt.Errorf("journal %s: %w", op, jerr)
		}
	}
	return delta, err
}

func (c *Controller) journal(ctx context.Context, op string, env Env, args ir.EventArgs, delta int64, result string) error {
	if c.opts.journal == nil {
		return nil
	}
	_, err := c.opts.journal.Append(ctx, ir.Event{
		ContractID: c.id,
		Op:         op,
		Caller:     env.Caller,
		Time:       env.Time,
		Value:      env.Value,
		Args:       args,
		Outcome:    result,
		Delta:      delta,
	})
	return err
}

// view runs a read-only query against the contract.
func (c *Controller) view(ctx context.Context, fn func(*state) error) error {
	return classify(c.backend.View(ctx, c.id, func(kv storage.KV) error {
		return fn(newState(kv))
	}))
}
