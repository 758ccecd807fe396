package contract

import (
	"context"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
)

// Holder returns the holder address.
func (c *Controller) Holder(ctx context.Context) (ir.Address, error) {
	var a ir.Address
	err := c.view(ctx, func(st *state) (err error) {
		a, err = st.address(keyHolder)
		return err
	})
	return a, err
}

// CounterParty returns the counter-party address.
func (c *Controller) CounterParty(ctx context.Context) (ir.Address, error) {
	var a ir.Address
	err := c.view(ctx, func(st *state) (err error) {
		a, err = st.address(keyCounterParty)
		return err
	})
	return a, err
}

// Definition returns the definition the contract was deployed with.
func (c *Controller) Definition(ctx context.Context) ([]int64, error) {
	var def []int64
	err := c.view(ctx, func(st *state) (err error) {
		def, err = st.seq(keyDefinition)
		return err
	})
	return def, err
}

// Balance returns the holder's balance, or the counter-party's when
// holder is false.
func (c *Controller) Balance(ctx context.Context, holder bool) (int64, error) {
	key := keyCounterPartyBalance
	if holder {
		key = keyHolderBalance
	}
	var bal int64
	err := c.view(ctx, func(st *state) (err error) {
		bal, err = st.int(key)
		return err
	})
	return bal, err
}

// Concluded reports whether the contract has nothing left to settle at
// time at: the root is fully updated, or it was never acquired and its
// horizon has passed.
func (c *Controller) Concluded(ctx context.Context, at int64) (bool, error) {
	var done bool
	err := c.view(ctx, func(st *state) error {
		root, err := st.tree()
		if err != nil {
			return err
		}
		done = concluded(root, at)
		return nil
	})
	return done, err
}

// UseFee reports whether withdrawals reserve the transaction fee.
func (c *Controller) UseFee(ctx context.Context) (bool, error) {
	var v bool
	err := c.view(ctx, func(st *state) (err error) {
		v, err = st.bool(keyUseFee)
		return err
	})
	return v, err
}

// LastUpdated returns the time of the last update, or of deployment.
func (c *Controller) LastUpdated(ctx context.Context) (int64, error) {
	var v int64
	err := c.view(ctx, func(st *state) (err error) {
		v, err = st.int(keyLastUpdated)
		return err
	})
	return v, err
}

// AcquisitionTimes returns the root's acquisition time followed by the
// secondary acquisition time of every anytime slot. Unset times are -1.
func (c *Controller) AcquisitionTimes(ctx context.Context) ([]int64, error) {
	var out []int64
	err := c.view(ctx, func(st *state) (err error) {
		out, err = st.acquisitionTimes()
		return err
	})
	return out, err
}

func (st *state) acquisitionTimes() ([]int64, error) {
	root, err := st.tree()
	if err != nil {
		return nil, err
	}
	n, err := st.tables.size(keyAnytimeSlots)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, n+1)
	out = append(out, root.Details.AcquisitionTime.Int())
	for i := 0; i < n; i++ {
		slot, err := st.tables.AnytimeSlot(i)
		if err != nil {
			return nil, err
		}
		out = append(out, slot.Time.Int())
	}
	return out, nil
}

// OrChoices returns every or-choice as 0 (second branch), 1 (first
// branch) or 2 (unset).
func (c *Controller) OrChoices(ctx context.Context) ([]int64, error) {
	var out []int64
	err := c.view(ctx, func(st *state) (err error) {
		out, err = st.orChoices()
		return err
	})
	return out, err
}

func (st *state) orChoices() ([]int64, error) {
	n, err := st.tables.size(keyOrChoices)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		choice, set, err := st.tables.orChoice(i)
		if err != nil {
			return nil, err
		}
		switch {
		case !set:
			out[i] = orUnset
		case choice:
			out[i] = 1
		}
	}
	return out, nil
}

// Observables returns every observable entry in slot order.
func (c *Controller) Observables(ctx context.Context) ([]combinator.Observable, error) {
	var out []combinator.Observable
	err := c.view(ctx, func(st *state) (err error) {
		out, err = st.observables()
		return err
	})
	return out, err
}

func (st *state) observables() ([]combinator.Observable, error) {
	n, err := st.tables.size(keyObservables)
	if err != nil {
		return nil, err
	}
	out := make([]combinator.Observable, n)
	for i := range out {
		if out[i], err = st.tables.observable(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ObsEntries returns the observable entries flattened per slot as
// [a0 a1 a2 a3, (-1 | 0 value), nameLen, name code points...].
func (c *Controller) ObsEntries(ctx context.Context) ([]int64, error) {
	obs, err := c.Observables(ctx)
	if err != nil {
		return nil, err
	}
	return FlattenObservables(obs), nil
}

// FlattenObservables encodes observable entries in the flattened query
// layout.
func FlattenObservables(obs []combinator.Observable) []int64 {
	out := []int64{}
	for _, o := range obs {
		w := o.Arbiter.Words()
		out = append(out, w[:]...)
		if o.Set {
			out = append(out, 0, o.Value)
		} else {
			out = append(out, -1)
		}
		name := combinator.EncodeName(o.Name)
		out = append(out, int64(len(name)))
		out = append(out, name...)
	}
	return out
}

// Digest returns the SHA-256 state digest over every persisted key of
// the contract. Two contracts with identical histories have identical
// digests.
func (c *Controller) Digest(ctx context.Context) (string, error) {
	var digest string
	err := c.view(ctx, func(st *state) error {
		snap, err := st.s.Snapshot()
		if err != nil {
			return err
		}
		digest, err = ir.StateDigest(snap)
		return err
	})
	return digest, err
}

// State is a point-in-time view of a contract, read in one transaction.
type State struct {
	ID                  string            `json:"id"`
	Holder              string            `json:"holder"`
	CounterParty        string            `json:"counter_party"`
	HolderBalance       int64             `json:"holder_balance"`
	CounterPartyBalance int64             `json:"counter_party_balance"`
	UseFee              bool              `json:"use_fee"`
	LastUpdated         int64             `json:"last_updated"`
	Concluded           bool              `json:"concluded"`
	Definition          []int64           `json:"definition"`
	AcquisitionTimes    []int64           `json:"acquisition_times"`
	OrChoices           []int64           `json:"or_choices"`
	Observables         []ObservableState `json:"observables"`
	Digest              string            `json:"digest"`
}

// ObservableState is one observable entry in a State.
type ObservableState struct {
	Arbiter string `json:"arbiter"`
	Name    string `json:"name"`
	Value   *int64 `json:"value"`
}

// Snapshot reads the whole contract view at time at. Concluded is
// evaluated at that time.
func (c *Controller) Snapshot(ctx context.Context, at int64) (State, error) {
	s := State{ID: c.id}
	err := c.view(ctx, func(st *state) error {
		holder, err := st.address(keyHolder)
		if err != nil {
			return err
		}
		cp, err := st.address(keyCounterParty)
		if err != nil {
			return err
		}
		s.Holder, s.CounterParty = holder.String(), cp.String()

		if s.HolderBalance, err = st.int(keyHolderBalance); err != nil {
			return err
		}
		if s.CounterPartyBalance, err = st.int(keyCounterPartyBalance); err != nil {
			return err
		}
		if s.UseFee, err = st.bool(keyUseFee); err != nil {
			return err
		}
		if s.LastUpdated, err = st.int(keyLastUpdated); err != nil {
			return err
		}
		if s.Definition, err = st.seq(keyDefinition); err != nil {
			return err
		}

		root, err := st.tree()
		if err != nil {
			return err
		}
		s.Concluded = concluded(root, at)

		if s.AcquisitionTimes, err = st.acquisitionTimes(); err != nil {
			return err
		}
		if s.OrChoices, err = st.orChoices(); err != nil {
			return err
		}
		obs, err := st.observables()
		if err != nil {
			return err
		}
		s.Observables = make([]ObservableState, len(obs))
		for i, o := range obs {
			s.Observables[i] = ObservableState{Arbiter: o.Arbiter.String(), Name: o.Name}
			if o.Set {
				v := o.Value
				s.Observables[i].Value = &v
			}
		}

		snap, err := st.s.Snapshot()
		if err != nil {
			return err
		}
		s.Digest, err = ir.StateDigest(snap)
		return err
	})
	return s, err
}
