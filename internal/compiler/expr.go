package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
)

// Expr is an authored contract before encoding. Kind selects which
// parameter fields are meaningful, the same way combinator.Node does.
type Expr struct {
	Kind     combinator.Kind
	Children []*Expr

	// Truncate
	Deadline int64

	// Scale: a literal Factor, or an observable when Observed is set.
	Factor   int64
	Observed bool
	Arbiter  ir.Address
	Name     string
}

// Zero returns the zero contract.
func Zero() *Expr { return &Expr{Kind: combinator.KindZero} }

// One returns the one contract.
func One() *Expr { return &Expr{Kind: combinator.KindOne} }

// And returns both a and b.
func And(a, b *Expr) *Expr { return &Expr{Kind: combinator.KindAnd, Children: []*Expr{a, b}} }

// Or returns a holder's choice between a and b.
func Or(a, b *Expr) *Expr { return &Expr{Kind: combinator.KindOr, Children: []*Expr{a, b}} }

// Truncate limits sub's horizon to deadline.
func Truncate(deadline int64, sub *Expr) *Expr {
	return &Expr{Kind: combinator.KindTruncate, Deadline: deadline, Children: []*Expr{sub}}
}

// Scale multiplies sub by factor.
func Scale(factor int64, sub *Expr) *Expr {
	return &Expr{Kind: combinator.KindScale, Factor: factor, Children: []*Expr{sub}}
}

// ScaleObs multiplies sub by an observable resolved later by arbiter.
func ScaleObs(arbiter ir.Address, name string, sub *Expr) *Expr {
	return &Expr{
		Kind:     combinator.KindScale,
		Observed: true,
		Arbiter:  arbiter,
		Name:     norm.NFC.String(name),
		Children: []*Expr{sub},
	}
}

// Give swaps the parties of sub.
func Give(sub *Expr) *Expr { return &Expr{Kind: combinator.KindGive, Children: []*Expr{sub}} }

// Then acquires a while it is live, otherwise b.
func Then(a, b *Expr) *Expr { return &Expr{Kind: combinator.KindThen, Children: []*Expr{a, b}} }

// Get acquires sub at its horizon.
func Get(sub *Expr) *Expr { return &Expr{Kind: combinator.KindGet, Children: []*Expr{sub}} }

// Anytime lets the holder acquire sub at a time of their choosing.
func Anytime(sub *Expr) *Expr { return &Expr{Kind: combinator.KindAnytime, Children: []*Expr{sub}} }

// Definition encodes e in the definition format: the tag, then the kind's
// parameters, then the children.
func (e *Expr) Definition() []int64 {
	return e.appendTo(nil)
}

func (e *Expr) appendTo(dst []int64) []int64 {
	dst = append(dst, int64(e.Kind))
	switch e.Kind {
	case combinator.KindTruncate:
		dst = append(dst, e.Deadline)
	case combinator.KindScale:
		if e.Observed {
			w := e.Arbiter.Words()
			dst = append(dst, combinator.ScaleObservable, w[0], w[1], w[2], w[3])
			name := combinator.EncodeName(e.Name)
			dst = append(dst, int64(len(name)))
			dst = append(dst, name...)
		} else {
			dst = append(dst, combinator.ScaleLiteral, e.Factor)
		}
	}
	for _, c := range e.Children {
		dst = c.appendTo(dst)
	}
	return dst
}

// String renders e in prefix notation. Parse(e.String()) yields an equal
// expression.
func (e *Expr) String() string {
	var b strings.Builder
	e.format(&b)
	return b.String()
}

func (e *Expr) format(b *strings.Builder) {
	b.WriteString(e.Kind.String())
	switch e.Kind {
	case combinator.KindTruncate:
		b.WriteByte(' ')
		b.WriteString(strconv.FormatInt(e.Deadline, 10))
	case combinator.KindScale:
		b.WriteByte(' ')
		if e.Observed {
			fmt.Fprintf(b, "obs(%s, %s)", e.Arbiter, strconv.Quote(e.Name))
		} else {
			b.WriteString(strconv.FormatInt(e.Factor, 10))
		}
	}
	for _, c := range e.Children {
		b.WriteByte(' ')
		c.format(b)
	}
}

// Decompile decodes a definition back into an expression.
func Decompile(def []int64) (*Expr, error) {
	tables := combinator.NewTables()
	root, err := combinator.DecodeDefinition(def, tables)
	if err != nil {
		return nil, err
	}
	return fromNode(root, tables), nil
}

func fromNode(n *combinator.Node, tables *combinator.Tables) *Expr {
	e := &Expr{Kind: n.Kind, Deadline: n.Deadline}
	if n.Kind == combinator.KindScale {
		if n.Observed {
			o := tables.Observables[n.ObsIndex]
			e.Observed, e.Arbiter, e.Name = true, o.Arbiter, o.Name
		} else {
			e.Factor = n.Factor
		}
	}
	for _, c := range n.Children {
		e.Children = append(e.Children, fromNode(c, tables))
	}
	return e
}
