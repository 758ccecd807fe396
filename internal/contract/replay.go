package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
)

// ErrReplayMismatch indicates a replayed event or final state that
// differs from what was recorded.
var ErrReplayMismatch = errors.New("replay mismatch")

// Mismatch describes one event whose replayed result differs from the
// journal.
type Mismatch struct {
	Seq       int64  `json:"seq"`
	Op        string `json:"op"`
	Recorded  string `json:"recorded"`
	Replayed  string `json:"replayed"`
	WantDelta int64  `json:"want_delta"`
	GotDelta  int64  `json:"got_delta"`
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	ContractID string     `json:"contract_id"`
	Events     int        `json:"events"`
	Digest     string     `json:"digest"`
	Mismatches []Mismatch `json:"mismatches"`
}

// replayPayments refuses exactly the payments the journal recorded as
// refused.
type replayPayments struct {
	refuse bool
}

func (p replayPayments) Pay(ctx context.Context, to ir.Address, amount uint64) error {
	if p.refuse {
		return errors.New("payment refused during replay")
	}
	return nil
}

// Replay re-executes one contract's journal against a fresh in-memory
// backend and reports every event whose outcome or delta differs from
// the record. events must be in sequence order and belong to a single
// contract.
func Replay(ctx context.Context, events []ir.Event, opts ...Option) (ReplayResult, error) {
	res := ReplayResult{Events: len(events), Mismatches: []Mismatch{}}
	if len(events) == 0 {
		return res, nil
	}
	res.ContractID = events[0].ContractID

	backend := storage.NewMemoryBackend()
	defer backend.Close()

	c, mismatches, err := reapply(ctx, backend, events, opts)
	if err != nil {
		return res, err
	}
	res.Mismatches = append(res.Mismatches, mismatches...)

	digest, err := c.Digest(ctx)
	if err != nil && !isDomainFailure(err) {
		return res, err
	}
	res.Digest = digest
	return res, nil
}

// Restore rebuilds a contract in backend from its journal and returns a
// Controller for it configured with opts. Any divergence from the
// journal is an error wrapping ErrReplayMismatch.
func Restore(ctx context.Context, backend storage.Backend, events []ir.Event, opts ...Option) (*Controller, error) {
	if len(events) == 0 {
		return nil, notInitialized()
	}
	c, mismatches, err := reapply(ctx, backend, events, opts)
	if err != nil {
		return nil, err
	}
	if len(mismatches) > 0 {
		m := mismatches[0]
		return nil, fmt.Errorf("%w: event %d (%s) recorded %s, replayed %s",
			ErrReplayMismatch, m.Seq, m.Op, m.Recorded, m.Replayed)
	}
	return &Controller{backend: backend, id: c.id, opts: newOptions(opts)}, nil
}

// reapply runs events against backend without journaling them.
func reapply(ctx context.Context, backend storage.Backend, events []ir.Event, opts []Option) (*Controller, []Mismatch, error) {
	id := events[0].ContractID

	// Re-executed events must not append to the live journal.
	o := newOptions(append(opts[:len(opts):len(opts)], WithJournal(nil), WithIDGenerator(fixedID(id))))
	c := &Controller{backend: backend, id: id, opts: o}

	var mismatches []Mismatch
	for _, ev := range events {
		if ev.ContractID != id {
			return nil, nil, fmt.Errorf("event %d belongs to contract %s, not %s", ev.Seq, ev.ContractID, id)
		}
		delta, err := c.apply(ctx, ev)
		if err != nil && !isDomainFailure(err) {
			return nil, nil, fmt.Errorf("replay event %d (%s): %w", ev.Seq, ev.Op, err)
		}
		got := outcome(err)
		if got != ev.Outcome || delta != ev.Delta {
			mismatches = append(mismatches, Mismatch{
				Seq:       ev.Seq,
				Op:        ev.Op,
				Recorded:  ev.Outcome,
				Replayed:  got,
				WantDelta: ev.Delta,
				GotDelta:  delta,
			})
		}
	}
	return c, mismatches, nil
}

// Verify replays events and checks the result against the live contract:
// no event may diverge and the final digests must match.
func Verify(ctx context.Context, live *Controller, events []ir.Event, opts ...Option) (ReplayResult, error) {
	res, err := Replay(ctx, events, opts...)
	if err != nil {
		return res, err
	}
	if len(res.Mismatches) > 0 {
		m := res.Mismatches[0]
		return res, fmt.Errorf("%w: event %d (%s) recorded %s, replayed %s",
			ErrReplayMismatch, m.Seq, m.Op, m.Recorded, m.Replayed)
	}
	digest, err := live.Digest(ctx)
	if err != nil {
		return res, err
	}
	if digest != res.Digest {
		return res, fmt.Errorf("%w: live digest %s, replayed %s", ErrReplayMismatch, digest, res.Digest)
	}
	return res, nil
}

// isDomainFailure reports whether err is an event outcome rather than an
// infrastructure failure.
func isDomainFailure(err error) bool {
	return outcome(err) != outcomeError
}

// apply dispatches one journaled event. The returned delta follows the
// journal's convention for the op.
func (c *Controller) apply(ctx context.Context, ev ir.Event) (int64, error) {
	env := Env{
		Caller:   ev.Caller,
		Time:     ev.Time,
		Value:    ev.Value,
		Payments: replayPayments{refuse: ev.Outcome == string(CodePaymentFailed)},
	}
	a := ev.Args

	switch ev.Op {
	case ir.OpDeploy:
		holder, err := ir.ParseAddress(a.Holder)
		if err != nil {
			return 0, fmt.Errorf("deploy holder: %w", err)
		}
		_, err = c.run(ctx, ir.OpDeploy, env, a, false, func(st *state) (int64, error) {
			return 0, st.deploy(env, a.Definition, holder, a.UseFee)
		})
		return 0, err
	case ir.OpAcquire:
		return c.Acquire(ctx, env)
	case ir.OpUpdate:
		return c.Update(ctx, env)
	case ir.OpSetOrChoice:
		return 0, c.SetOrChoice(ctx, env, int(a.Index), a.Choice)
	case ir.OpSetObsValue:
		return 0, c.SetObsValue(ctx, env, int(a.Index), a.ObsValue)
	case ir.OpAcquireAnytime:
		return c.AcquireAnytime(ctx, env, int(a.Index))
	case ir.OpStake:
		if _, err := c.Stake(ctx, env); err != nil {
			return 0, err
		}
		return int64(env.Value), nil
	case ir.OpWithdraw:
		return c.withdraw(ctx, env, a.Amount)
	}
	return 0, fmt.Errorf("unknown op %q", ev.Op)
}
