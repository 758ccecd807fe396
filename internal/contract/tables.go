package contract

import (
	"fmt"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
)

// Persisted element layouts:
//
//	or_choices        [state]                      0 false, 1 true, 2 unset
//	observables       [a0 a1 a2 a3 set value]      set is 0/1
//	observable_names  [code points...]
//	anytime_slots     [acquired time]              time is -1 when unset
const orUnset = 2

// storeTables serves the external-input tables from contract storage.
// It implements combinator.Inputs and combinator.TableBuilder.
type storeTables struct {
	s *storage.Storage
}

var (
	_ combinator.Inputs       = (*storeTables)(nil)
	_ combinator.TableBuilder = (*storeTables)(nil)
)

func corrupt(table string, i int, elem []int64) error {
	return fmt.Errorf("%s[%d]: %w: %v", table, i, storage.ErrCorrupt, elem)
}

func (t *storeTables) orChoice(i int) (choice, set bool, err error) {
	elem, err := t.s.Vec(keyOrChoices).Get(i)
	if err != nil {
		return false, false, classify(err)
	}
	if len(elem) != 1 || elem[0] < 0 || elem[0] > orUnset {
		return false, false, corrupt(keyOrChoices, i, elem)
	}
	if elem[0] == orUnset {
		return false, false, nil
	}
	return elem[0] == 1, true, nil
}

// OrChoice implements combinator.Inputs.
func (t *storeTables) OrChoice(i int) (bool, bool, error) {
	return t.orChoice(i)
}

func (t *storeTables) setOrChoice(i int, choice bool) error {
	v := int64(0)
	if choice {
		v = 1
	}
	return classify(t.s.Vec(keyOrChoices).Set(i, []int64{v}))
}

func (t *storeTables) observable(i int) (combinator.Observable, error) {
	elem, err := t.s.Vec(keyObservables).Get(i)
	if err != nil {
		return combinator.Observable{}, classify(err)
	}
	if len(elem) != ir.AddressWords+2 || (elem[4] != 0 && elem[4] != 1) {
		return combinator.Observable{}, corrupt(keyObservables, i, elem)
	}
	arbiter, err := ir.AddressFromWords(elem[:ir.AddressWords])
	if err != nil {
		return combinator.Observable{}, corrupt(keyObservables, i, elem)
	}
	name, err := t.s.Vec(keyObservableNames).Get(i)
	if err != nil {
		return combinator.Observable{}, classify(err)
	}
	runes := make([]rune, len(name))
	for j, c := range name {
		runes[j] = rune(c)
	}
	return combinator.Observable{
		Arbiter: arbiter,
		Set:     elem[4] == 1,
		Value:   elem[5],
		Name:    string(runes),
	}, nil
}

// ObservableValue implements combinator.Inputs.
func (t *storeTables) ObservableValue(i int) (int64, bool, error) {
	o, err := t.observable(i)
	if err != nil {
		return 0, false, err
	}
	return o.Value, o.Set, nil
}

func (t *storeTables) setObservable(i int, o combinator.Observable) error {
	w := o.Arbiter.Words()
	set := int64(0)
	if o.Set {
		set = 1
	}
	return classify(t.s.Vec(keyObservables).Set(i, []int64{w[0], w[1], w[2], w[3], set, o.Value}))
}

// AnytimeSlot implements combinator.Inputs.
func (t *storeTables) AnytimeSlot(i int) (combinator.AnytimeSlot, error) {
	elem, err := t.s.Vec(keyAnytimeSlots).Get(i)
	if err != nil {
		return combinator.AnytimeSlot{}, classify(err)
	}
	if len(elem) != 2 || (elem[0] != 0 && elem[0] != 1) {
		return combinator.AnytimeSlot{}, corrupt(keyAnytimeSlots, i, elem)
	}
	at, err := ir.OptTimeFromInt(elem[1])
	if err != nil {
		return combinator.AnytimeSlot{}, corrupt(keyAnytimeSlots, i, elem)
	}
	return combinator.AnytimeSlot{Acquired: elem[0] == 1, Time: at}, nil
}

// SetAnytimeSlot implements combinator.Inputs.
func (t *storeTables) SetAnytimeSlot(i int, slot combinator.AnytimeSlot) error {
	acquired := int64(0)
	if slot.Acquired {
		acquired = 1
	}
	return classify(t.s.Vec(keyAnytimeSlots).Set(i, []int64{acquired, slot.Time.Int()}))
}

// AddOrChoice implements combinator.TableBuilder.
func (t *storeTables) AddOrChoice() (int, error) {
	return t.s.Vec(keyOrChoices).Push([]int64{orUnset})
}

// AddObservable implements combinator.TableBuilder. The name is stored in
// a parallel vector at the same index.
func (t *storeTables) AddObservable(arbiter ir.Address, name string) (int, error) {
	w := arbiter.Words()
	i, err := t.s.Vec(keyObservables).Push([]int64{w[0], w[1], w[2], w[3], 0, 0})
	if err != nil {
		return 0, err
	}
	if _, err := t.s.Vec(keyObservableNames).Push(combinator.EncodeName(name)); err != nil {
		return 0, err
	}
	return i, nil
}

// AddAnytimeSlot implements combinator.TableBuilder.
func (t *storeTables) AddAnytimeSlot() (int, error) {
	return t.s.Vec(keyAnytimeSlots).Push([]int64{0, ir.Unset})
}

func (t *storeTables) size(key string) (int, error) {
	return t.s.Vec(key).Len()
}
