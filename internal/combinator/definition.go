package combinator

import (
	"unicode/utf8"

	"github.com/roach88/smartfin/internal/ir"
)

// Definition-format constants.
const (
	// ScaleLiteral marks a scale node whose factor follows inline.
	// Any other flag value introduces an observable.
	ScaleLiteral int64 = 1

	// ScaleObservable is the flag the compiler emits for observables.
	ScaleObservable int64 = 0
)

// DecodeDefinition builds an unacquired tree from the definition format
// and allocates one table slot per or, observable-scale and anytime node,
// in pre-order. The whole sequence must be consumed.
func DecodeDefinition(def []int64, tb TableBuilder) (*Node, error) {
	if len(def) == 0 {
		return nil, Errorf(CodeMalformed, "provided combinator contract not valid: empty definition")
	}
	d := &definitionDecoder{def: def, tb: tb}
	n, err := d.node()
	if err != nil {
		return nil, err
	}
	if d.pos != len(def) {
		return nil, Errorf(CodeMalformed, "%d trailing integers after definition", len(def)-d.pos)
	}
	return n, nil
}

type definitionDecoder struct {
	def []int64
	pos int
	tb  TableBuilder
}

func (d *definitionDecoder) next(what string) (int64, error) {
	if d.pos >= len(d.def) {
		return 0, Errorf(CodeMalformed, "definition ends while reading %s at offset %d", what, d.pos)
	}
	v := d.def[d.pos]
	d.pos++
	return v, nil
}

func (d *definitionDecoder) node() (*Node, error) {
	tag, err := d.next("combinator tag")
	if err != nil {
		return nil, err
	}
	kind := Kind(tag)
	if !kind.Valid() {
		return nil, Errorf(CodeMalformed, "unrecognised combinator %d at offset %d", tag, d.pos-1)
	}

	n := &Node{Kind: kind}
	switch kind {
	case KindOr:
		if n.OrIndex, err = d.tb.AddOrChoice(); err != nil {
			return nil, err
		}
	case KindTruncate:
		if n.Deadline, err = d.next("truncate deadline"); err != nil {
			return nil, err
		}
		if n.Deadline < 0 {
			return nil, Errorf(CodeMalformed, "negative truncate deadline %d", n.Deadline)
		}
	case KindScale:
		if err := d.scale(n); err != nil {
			return nil, err
		}
	case KindAnytime:
		if n.Slot, err = d.tb.AddAnytimeSlot(); err != nil {
			return nil, err
		}
	}

	for c := 0; c < kind.Children(); c++ {
		child, err := d.node()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func (d *definitionDecoder) scale(n *Node) error {
	flag, err := d.next("scale flag")
	if err != nil {
		return err
	}
	if flag == ScaleLiteral {
		n.Factor, err = d.next("scale factor")
		return err
	}

	words := make([]int64, ir.AddressWords)
	for i := range words {
		if words[i], err = d.next("observable arbiter"); err != nil {
			return err
		}
	}
	arbiter, err := ir.AddressFromWords(words)
	if err != nil {
		return Errorf(CodeMalformed, "observable arbiter: %v", err)
	}

	length, err := d.next("observable name length")
	if err != nil {
		return err
	}
	if length < 0 || length > int64(len(d.def)-d.pos) {
		return Errorf(CodeMalformed, "observable name length %d exceeds definition", length)
	}
	runes := make([]rune, 0, length)
	for _, c := range d.def[d.pos : d.pos+int(length)] {
		if c < 0 || c > utf8.MaxRune || !utf8.ValidRune(rune(c)) {
			return Errorf(CodeMalformed, "observable name contains invalid code point %d", c)
		}
		runes = append(runes, rune(c))
	}
	d.pos += int(length)

	n.Observed = true
	n.ObsIndex, err = d.tb.AddObservable(arbiter, string(runes))
	return err
}

// EncodeName converts an observable name to its definition code points.
func EncodeName(name string) []int64 {
	out := make([]int64, 0, len(name))
	for _, r := range name {
		out = append(out, int64(r))
	}
	return out
}
