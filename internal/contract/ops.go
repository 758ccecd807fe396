package contract

import (
	"context"
	"math"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
)

// Acquire starts the contract at env.Time and immediately settles once.
// Only the holder may acquire, and only once. It returns the settlement
// delta owed to the holder.
func (c *Controller) Acquire(ctx context.Context, env Env) (int64, error) {
	return c.run(ctx, ir.OpAcquire, env, ir.EventArgs{}, true, func(st *state) (int64, error) {
		if err := st.requireHolder(env.Caller, "acquire the combinator contract"); err != nil {
			return 0, err
		}
		root, err := st.tree()
		if err != nil {
			return 0, err
		}
		if root.Details.Acquired() {
			return 0, combinator.Errorf(combinator.CodeReacquisition, "the combinator contract cannot be acquired more than once")
		}
		if err := root.Acquire(env.Time, st.tables); err != nil {
			return 0, err
		}
		if err := st.saveTree(root); err != nil {
			return 0, err
		}
		return st.settle(env.Time)
	})
}

// Update settles everything owed up to env.Time and applies it to both
// balances. Anyone may update. It fails with CONCLUDED once the contract
// has nothing left to settle.
func (c *Controller) Update(ctx context.Context, env Env) (int64, error) {
	return c.run(ctx, ir.OpUpdate, env, ir.EventArgs{}, true, func(st *state) (int64, error) {
		return st.settle(env.Time)
	})
}

// SetOrChoice records the holder's preference for or-choice index; true
// selects the first branch. Each choice may be set once.
func (c *Controller) SetOrChoice(ctx context.Context, env Env, index int, preferFirst bool) error {
	args := ir.EventArgs{Index: int64(index), Choice: preferFirst}
	_, err := c.run(ctx, ir.OpSetOrChoice, env, args, false, func(st *state) (int64, error) {
		if err := st.requireHolder(env.Caller, "set or-choices"); err != nil {
			return 0, err
		}
		_, set, err := st.tables.orChoice(index)
		if err != nil {
			return 0, err
		}
		if set {
			return 0, combinator.Errorf(combinator.CodeAlreadySet, "or-choice %d has already been set", index)
		}
		return 0, st.tables.setOrChoice(index, preferFirst)
	})
	return err
}

// SetObsValue resolves observable index to value. Only the observable's
// arbiter may set it, and only once.
func (c *Controller) SetObsValue(ctx context.Context, env Env, index int, value int64) error {
	args := ir.EventArgs{Index: int64(index), ObsValue: value}
	_, err := c.run(ctx, ir.OpSetObsValue, env, args, false, func(st *state) (int64, error) {
		o, err := st.tables.observable(index)
		if err != nil {
			return 0, err
		}
		if o.Set {
			return 0, combinator.Errorf(combinator.CodeAlreadySet, "observable %d has already been set", index)
		}
		if env.Caller != o.Arbiter {
			return 0, combinator.Errorf(combinator.CodeUnauthorized, "sender cannot set value for observable %d", index).
				With("caller", env.Caller.String())
		}
		o.Value, o.Set = value, true
		return 0, st.tables.setObservable(index, o)
	})
	return err
}

// AcquireAnytime acquires the sub-contract of anytime slot index at
// env.Time, then settles once. The slot's anytime node must have been
// acquired strictly before env.Time and only the holder may call it. While
// the sub-contract is still unacquired the holder may move the chosen time
// strictly forward.
func (c *Controller) AcquireAnytime(ctx context.Context, env Env, index int) (int64, error) {
	args := ir.EventArgs{Index: int64(index)}
	return c.run(ctx, ir.OpAcquireAnytime, env, args, true, func(st *state) (int64, error) {
		slot, err := st.tables.AnytimeSlot(index)
		if err != nil {
			return 0, err
		}
		if !slot.Acquired {
			return 0, combinator.Errorf(combinator.CodeTemporal, "anytime combinator %d has not been acquired", index)
		}
		if err := st.requireHolder(env.Caller, "acquire anytime sub-contracts"); err != nil {
			return 0, err
		}
		root, err := st.tree()
		if err != nil {
			return 0, err
		}
		node := anytimeNode(root, index)
		if node == nil {
			return 0, combinator.Errorf(combinator.CodeMalformed, "no anytime combinator owns slot %d", index)
		}
		if at := node.Details.AcquisitionTime; !at.Ok || at.T >= env.Time {
			return 0, combinator.Errorf(combinator.CodeTemporal,
				"anytime sub-contract %d must be acquired after its anytime combinator", index).
				With("acquired_at", at.String())
		}
		if node.Children[0].Details.Acquired() {
			return 0, combinator.Errorf(combinator.CodeReacquisition,
				"anytime sub-contract %d has already been acquired", index)
		}
		if prev := slot.Time; prev.Ok && env.Time <= prev.T {
			return 0, combinator.Errorf(combinator.CodeReacquisition,
				"anytime sub-contract %d was last chosen at %d; re-acquisition must move forward", index, prev.T)
		}

		slot.Time = ir.At(env.Time)
		if err := st.tables.SetAnytimeSlot(index, slot); err != nil {
			return 0, err
		}
		return st.settle(env.Time)
	})
}

func anytimeNode(root *combinator.Node, slot int) *combinator.Node {
	var found *combinator.Node
	root.Walk(func(n *combinator.Node) {
		if found == nil && n.Kind == combinator.KindAnytime && n.Slot == slot {
			found = n
		}
	})
	return found
}

// Stake credits env.Value to the caller's balance and returns the new
// balance. Only the two parties may stake.
func (c *Controller) Stake(ctx context.Context, env Env) (int64, error) {
	var balance int64
	_, err := c.run(ctx, ir.OpStake, env, ir.EventArgs{}, false, func(st *state) (int64, error) {
		if env.Value > math.MaxInt64 {
			return 0, combinator.Errorf(combinator.CodeArithmetic, "stake %d is too large to be converted to int64", env.Value)
		}
		key, err := st.partyBalanceKey(env.Caller, "stake funds in the contract")
		if err != nil {
			return 0, err
		}
		if err := st.addBalance(key, int64(env.Value)); err != nil {
			return 0, err
		}
		if balance, err = st.int(key); err != nil {
			return 0, err
		}
		return int64(env.Value), nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}
