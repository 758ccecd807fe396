package contract

import (
	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
)

// state is the typed view of one contract namespace during an event.
type state struct {
	s      *storage.Storage
	tables *storeTables
}

func newState(kv storage.KV) *state {
	s := storage.New(kv)
	return &state{s: s, tables: &storeTables{s: s}}
}

func notInitialized() *combinator.Error {
	return combinator.Errorf(CodeNotInitialized, "contract has not been initialized")
}

func (st *state) initialized() (bool, error) {
	_, ok, err := st.s.Address(keyHolder)
	return ok, err
}

func (st *state) address(key string) (ir.Address, error) {
	a, ok, err := st.s.Address(key)
	if err != nil {
		return a, err
	}
	if !ok {
		return a, notInitialized()
	}
	return a, nil
}

func (st *state) int(key string) (int64, error) {
	v, ok, err := st.s.Int(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, notInitialized()
	}
	return v, nil
}

func (st *state) bool(key string) (bool, error) {
	v, ok, err := st.s.Bool(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, notInitialized()
	}
	return v, nil
}

func (st *state) seq(key string) ([]int64, error) {
	v, ok, err := st.s.Seq(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notInitialized()
	}
	return v, nil
}

func (st *state) tree() (*combinator.Node, error) {
	seq, err := st.seq(keyTree)
	if err != nil {
		return nil, err
	}
	return combinator.Deserialize(seq)
}

func (st *state) saveTree(n *combinator.Node) error {
	return st.s.SetSeq(keyTree, n.Serialize())
}

// concluded reports whether the tree can never settle again at t: the
// root is fully updated, or it was never acquired and has expired.
func concluded(root *combinator.Node, t int64) bool {
	return root.Details.FullyUpdated || (!root.Details.Acquired() && root.PastHorizon(t))
}

// requireHolder fails unless caller is the holder.
func (st *state) requireHolder(caller ir.Address, action string) error {
	holder, err := st.address(keyHolder)
	if err != nil {
		return err
	}
	if caller != holder {
		return combinator.Errorf(combinator.CodeUnauthorized, "only the contract holder may %s", action).
			With("caller", caller.String())
	}
	return nil
}

// partyBalanceKey returns the balance key for caller, or UNAUTHORIZED if
// caller is neither party.
func (st *state) partyBalanceKey(caller ir.Address, action string) (string, error) {
	holder, err := st.address(keyHolder)
	if err != nil {
		return "", err
	}
	counterParty, err := st.address(keyCounterParty)
	if err != nil {
		return "", err
	}
	switch caller {
	case holder:
		return keyHolderBalance, nil
	case counterParty:
		return keyCounterPartyBalance, nil
	}
	return "", combinator.Errorf(combinator.CodeUnauthorized,
		"only the contract holder or the counter-party may %s", action).With("caller", caller.String())
}

// settle runs one update of the tree at t and applies the delta to both
// balances. It fails with CONCLUDED if there is nothing left to settle.
func (st *state) settle(t int64) (int64, error) {
	root, err := st.tree()
	if err != nil {
		return 0, err
	}
	if concluded(root, t) {
		return 0, combinator.Errorf(CodeConcluded, "contract has concluded, nothing more to update")
	}
	if err := st.s.SetInt(keyLastUpdated, t); err != nil {
		return 0, err
	}

	delta, err := root.Update(t, st.tables)
	if err != nil {
		return 0, err
	}
	if err := st.saveTree(root); err != nil {
		return 0, err
	}

	neg, err := combinator.NegChecked(delta)
	if err != nil {
		return 0, err
	}
	if err := st.addBalance(keyCounterPartyBalance, neg); err != nil {
		return 0, err
	}
	if err := st.addBalance(keyHolderBalance, delta); err != nil {
		return 0, err
	}
	return delta, nil
}

func (st *state) addBalance(key string, delta int64) error {
	bal, err := st.int(key)
	if err != nil {
		return err
	}
	bal, err = combinator.AddChecked(bal, delta)
	if err != nil {
		return err
	}
	return st.s.SetInt(key, bal)
}
