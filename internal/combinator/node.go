package combinator

import "github.com/roach88/smartfin/internal/ir"

// Node is one combinator in a contract tree. Kind selects which of the
// parameter fields are meaningful; Children holds exactly Kind.Children()
// owned sub-contracts.
//
// Parameters by kind:
//
//	Truncate  Deadline
//	Scale     Factor (literal) or ObsIndex (when Observed)
//	Or        OrIndex
//	Anytime   Slot
type Node struct {
	Kind     Kind
	Details  Details
	Children []*Node

	Deadline int64
	Factor   int64
	Observed bool
	ObsIndex int
	OrIndex  int
	Slot     int
}

// NewZero returns an unacquired zero node.
func NewZero() *Node { return &Node{Kind: KindZero} }

// NewOne returns an unacquired one node.
func NewOne() *Node { return &Node{Kind: KindOne} }

// NewAnd returns a node owning both a and b.
func NewAnd(a, b *Node) *Node { return &Node{Kind: KindAnd, Children: []*Node{a, b}} }

// NewOr returns a node choosing between a and b by or-choice orIndex.
func NewOr(a, b *Node, orIndex int) *Node {
	return &Node{Kind: KindOr, Children: []*Node{a, b}, OrIndex: orIndex}
}

// NewTruncate returns sub with its horizon tightened to deadline.
func NewTruncate(sub *Node, deadline int64) *Node {
	return &Node{Kind: KindTruncate, Children: []*Node{sub}, Deadline: deadline}
}

// NewScale returns sub scaled by a fixed factor.
func NewScale(sub *Node, factor int64) *Node {
	return &Node{Kind: KindScale, Children: []*Node{sub}, Factor: factor}
}

// NewScaleObservable returns sub scaled by observable obsIndex.
func NewScaleObservable(sub *Node, obsIndex int) *Node {
	return &Node{Kind: KindScale, Children: []*Node{sub}, Observed: true, ObsIndex: obsIndex}
}

// NewGive returns sub with holder and counter-party swapped.
func NewGive(sub *Node) *Node { return &Node{Kind: KindGive, Children: []*Node{sub}} }

// NewThen returns a node that acquires a while a is live, otherwise b.
func NewThen(a, b *Node) *Node { return &Node{Kind: KindThen, Children: []*Node{a, b}} }

// NewGet returns a node that acquires sub at sub's horizon.
func NewGet(sub *Node) *Node { return &Node{Kind: KindGet, Children: []*Node{sub}} }

// NewAnytime returns a node whose sub-contract the holder acquires later
// through anytime slot.
func NewAnytime(sub *Node, slot int) *Node {
	return &Node{Kind: KindAnytime, Children: []*Node{sub}, Slot: slot}
}

func (n *Node) sub() *Node { return n.Children[0] }

// Horizon returns the latest time at which the node may still be
// acquired. An unset result means unbounded.
func (n *Node) Horizon() ir.OptTime {
	switch n.Kind {
	case KindZero, KindOne:
		return ir.None
	case KindAnd, KindOr, KindThen:
		return ir.Latest(n.Children[0].Horizon(), n.Children[1].Horizon())
	case KindTruncate:
		return ir.Earliest(n.sub().Horizon(), ir.At(n.Deadline))
	default:
		return n.sub().Horizon()
	}
}

// PastHorizon reports whether t is strictly after the node's horizon.
func (n *Node) PastHorizon(t int64) bool {
	return n.Horizon().After(t)
}

// Settled reports whether the node can never contribute again at time t:
// it is fully updated, or it was never acquired and has expired.
func (n *Node) Settled(t int64) bool {
	return n.Details.FullyUpdated || (!n.Details.Acquired() && n.PastHorizon(t))
}

// Acquire starts the node's clock at time t and acquires whichever
// sub-contracts its kind dictates.
func (n *Node) Acquire(t int64, in Inputs) error {
	if t < 0 {
		return Errorf(CodeTemporal, "acquisition time %d is before the epoch", t)
	}
	if n.PastHorizon(t) {
		return Errorf(CodeTemporal, "cannot acquire an expired contract").
			With("kind", n.Kind.String()).
			With("horizon", n.Horizon().String())
	}
	if n.Details.Acquired() {
		return Errorf(CodeReacquisition, "acquiring a previously-acquired %s combinator is not allowed", n.Kind)
	}

	switch n.Kind {
	case KindZero, KindOne:
	case KindAnd:
		for _, c := range n.Children {
			if c.PastHorizon(t) {
				continue
			}
			if err := c.Acquire(t, in); err != nil {
				return err
			}
		}
	case KindOr:
		choice, set, err := in.OrChoice(n.OrIndex)
		if err != nil {
			return err
		}
		if !set {
			return Errorf(CodeUnsetDependency, "or-choice %d must be set before acquisition", n.OrIndex)
		}
		if err := n.chosen(choice).Acquire(t, in); err != nil {
			return err
		}
	case KindTruncate, KindScale, KindGive:
		if err := n.sub().Acquire(t, in); err != nil {
			return err
		}
	case KindThen:
		next := n.Children[0]
		if next.PastHorizon(t) {
			next = n.Children[1]
		}
		if err := next.Acquire(t, in); err != nil {
			return err
		}
	case KindGet:
		at := t
		if h := n.sub().Horizon(); h.Ok {
			at = h.T
		}
		if err := n.sub().Acquire(at, in); err != nil {
			return err
		}
	case KindAnytime:
		slot, err := in.AnytimeSlot(n.Slot)
		if err != nil {
			return err
		}
		slot.Acquired = true
		if err := in.SetAnytimeSlot(n.Slot, slot); err != nil {
			return err
		}
	default:
		return Errorf(CodeMalformed, "unrecognised combinator %s", n.Kind)
	}

	n.Details.AcquisitionTime = ir.At(t)
	return nil
}

func (n *Node) chosen(first bool) *Node {
	if first {
		return n.Children[0]
	}
	return n.Children[1]
}

// Update settles the node at time t and returns the amount owed from the
// counter-party to the holder since the previous update. It returns 0
// without changing state when the node is unacquired, acquired after t,
// or already fully updated.
func (n *Node) Update(t int64, in Inputs) (int64, error) {
	if !n.Details.settling(t) {
		return 0, nil
	}

	switch n.Kind {
	case KindZero:
		n.Details.FullyUpdated = true
		return 0, nil

	case KindOne:
		n.Details.FullyUpdated = true
		return 1, nil

	case KindAnd:
		a, b := n.Children[0], n.Children[1]
		va, err := a.Update(t, in)
		if err != nil {
			return 0, err
		}
		vb, err := b.Update(t, in)
		if err != nil {
			return 0, err
		}
		sum, err := AddChecked(va, vb)
		if err != nil {
			return 0, err
		}
		n.Details.FullyUpdated = a.Settled(t) && b.Settled(t)
		return sum, nil

	case KindOr:
		choice, _, err := in.OrChoice(n.OrIndex)
		if err != nil {
			return 0, err
		}
		return n.follow(n.chosen(choice), t, in)

	case KindTruncate, KindGet:
		return n.follow(n.sub(), t, in)

	case KindScale:
		factor, ok, err := n.resolveFactor(in)
		if err != nil || !ok {
			return 0, err
		}
		v, err := n.follow(n.sub(), t, in)
		if err != nil {
			return 0, err
		}
		return MulChecked(factor, v)

	case KindGive:
		v, err := n.follow(n.sub(), t, in)
		if err != nil {
			return 0, err
		}
		return NegChecked(v)

	case KindThen:
		active := n.Children[0]
		if !active.Details.Acquired() {
			active = n.Children[1]
		}
		return n.follow(active, t, in)

	case KindAnytime:
		return n.updateAnytime(t, in)
	}

	return 0, Errorf(CodeMalformed, "unrecognised combinator %s", n.Kind)
}

// follow updates a single active child and mirrors its settlement.
func (n *Node) follow(child *Node, t int64, in Inputs) (int64, error) {
	v, err := child.Update(t, in)
	if err != nil {
		return 0, err
	}
	n.Details.FullyUpdated = child.Details.FullyUpdated
	return v, nil
}

// resolveFactor returns the scale factor and whether it is known yet.
func (n *Node) resolveFactor(in Inputs) (int64, bool, error) {
	if !n.Observed {
		return n.Factor, true, nil
	}
	return in.ObservableValue(n.ObsIndex)
}

// updateAnytime acquires the sub-contract at the holder's chosen time the
// first time that choice is visible, then follows it. A sub-contract that
// can no longer be acquired settles the node with nothing owed.
func (n *Node) updateAnytime(t int64, in Inputs) (int64, error) {
	sub := n.sub()
	if !sub.Details.Acquired() {
		slot, err := in.AnytimeSlot(n.Slot)
		if err != nil {
			return 0, err
		}
		switch {
		case slot.Time.Ok && slot.Time.T <= t:
			if sub.PastHorizon(slot.Time.T) {
				n.Details.FullyUpdated = true
				return 0, nil
			}
			if err := sub.Acquire(slot.Time.T, in); err != nil {
				return 0, err
			}
		case !slot.Time.Ok && sub.PastHorizon(t):
			n.Details.FullyUpdated = true
			return 0, nil
		default:
			return 0, nil
		}
	}
	return n.follow(sub, t, in)
}

// Walk visits n and its descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
