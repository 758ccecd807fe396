package combinator

import "github.com/roach88/smartfin/internal/ir"

// AnytimeSlot is the secondary-acquisition state of one anytime node.
// Acquired is set when the anytime node itself is acquired; Time is set
// when the holder later acquires its sub-contract.
type AnytimeSlot struct {
	Acquired bool
	Time     ir.OptTime
}

// Observable is one observable table entry: the only address allowed to
// resolve it, its value once resolved, and its display name.
type Observable struct {
	Arbiter ir.Address
	Value   int64
	Set     bool
	Name    string
}

// Inputs resolves the external values a tree depends on during Acquire
// and Update. Index-out-of-range lookups return a CodeOutOfBounds error.
type Inputs interface {
	// OrChoice returns the holder's preference for or-node index (true
	// selects the first branch) and whether it has been set.
	OrChoice(index int) (choice bool, set bool, err error)

	// ObservableValue returns the resolved value of an observable.
	ObservableValue(index int) (value int64, set bool, err error)

	// AnytimeSlot returns the state of an anytime slot.
	AnytimeSlot(index int) (AnytimeSlot, error)

	// SetAnytimeSlot overwrites the state of an anytime slot.
	SetAnytimeSlot(index int, slot AnytimeSlot) error
}

// TableBuilder allocates external-input slots while a definition is
// decoded. Each method appends one entry and returns its index.
type TableBuilder interface {
	AddOrChoice() (int, error)
	AddObservable(arbiter ir.Address, name string) (int, error)
	AddAnytimeSlot() (int, error)
}

// OrChoice is an or-choice table entry.
type OrChoice struct {
	Choice bool
	Set    bool
}

// Tables is an in-memory Inputs and TableBuilder. The controller keeps
// the same tables in persistent storage; Tables serves tests, the
// compiler's dry runs and the scenario harness.
type Tables struct {
	OrChoices   []OrChoice
	Observables []Observable
	Anytime     []AnytimeSlot
}

// NewTables returns empty tables.
func NewTables() *Tables {
	return &Tables{}
}

func outOfBounds(table string, index, length int) error {
	return Errorf(CodeOutOfBounds, "%s index %d out of bounds [0, %d)", table, index, length)
}

// OrChoice implements Inputs.
func (t *Tables) OrChoice(index int) (bool, bool, error) {
	if index < 0 || index >= len(t.OrChoices) {
		return false, false, outOfBounds("or-choice", index, len(t.OrChoices))
	}
	c := t.OrChoices[index]
	return c.Choice, c.Set, nil
}

// ObservableValue implements Inputs.
func (t *Tables) ObservableValue(index int) (int64, bool, error) {
	if index < 0 || index >= len(t.Observables) {
		return 0, false, outOfBounds("observable", index, len(t.Observables))
	}
	o := t.Observables[index]
	return o.Value, o.Set, nil
}

// AnytimeSlot implements Inputs.
func (t *Tables) AnytimeSlot(index int) (AnytimeSlot, error) {
	if index < 0 || index >= len(t.Anytime) {
		return AnytimeSlot{}, outOfBounds("anytime", index, len(t.Anytime))
	}
	return t.Anytime[index], nil
}

// SetAnytimeSlot implements Inputs.
func (t *Tables) SetAnytimeSlot(index int, slot AnytimeSlot) error {
	if index < 0 || index >= len(t.Anytime) {
		return outOfBounds("anytime", index, len(t.Anytime))
	}
	t.Anytime[index] = slot
	return nil
}

// AddOrChoice implements TableBuilder.
func (t *Tables) AddOrChoice() (int, error) {
	t.OrChoices = append(t.OrChoices, OrChoice{})
	return len(t.OrChoices) - 1, nil
}

// AddObservable implements TableBuilder.
func (t *Tables) AddObservable(arbiter ir.Address, name string) (int, error) {
	t.Observables = append(t.Observables, Observable{Arbiter: arbiter, Name: name})
	return len(t.Observables) - 1, nil
}

// AddAnytimeSlot implements TableBuilder.
func (t *Tables) AddAnytimeSlot() (int, error) {
	t.Anytime = append(t.Anytime, AnytimeSlot{})
	return len(t.Anytime) - 1, nil
}

// SetOrChoice resolves an or-choice once.
func (t *Tables) SetOrChoice(index int, choice bool) error {
	if index < 0 || index >= len(t.OrChoices) {
		return outOfBounds("or-choice", index, len(t.OrChoices))
	}
	if t.OrChoices[index].Set {
		return Errorf(CodeAlreadySet, "or-choice %d has already been set", index)
	}
	t.OrChoices[index] = OrChoice{Choice: choice, Set: true}
	return nil
}

// SetObservable resolves an observable once, on behalf of caller.
func (t *Tables) SetObservable(index int, caller ir.Address, value int64) error {
	if index < 0 || index >= len(t.Observables) {
		return outOfBounds("observable", index, len(t.Observables))
	}
	o := &t.Observables[index]
	if o.Set {
		return Errorf(CodeAlreadySet, "observable %d has already been set", index)
	}
	if o.Arbiter != caller {
		return Errorf(CodeUnauthorized, "%s may not set observable %d", caller, index)
	}
	o.Value, o.Set = value, true
	return nil
}
