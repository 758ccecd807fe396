package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
)

// CompileCUE compiles a CUE document and returns its top-level contract
// field. filename is used only in error positions.
func CompileCUE(src []byte, filename string) (*Expr, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	c := v.LookupPath(cue.ParsePath("contract"))
	if !c.Exists() {
		return nil, &CompileError{
			Field:   "contract",
			Message: "contract is required",
			Pos:     v.Pos(),
		}
	}
	return CompileContract(c)
}

// CompileContract parses a CUE value into an Expr. Each node is a struct
// with exactly one field naming its combinator:
//
//	{zero: {}}  {one: {}}
//	{and: [a, b]}  {or: [a, b]}  {then: [a, b]}
//	{give: x}  {get: x}  {anytime: x}
//	{truncate: {deadline: 10, of: x}}
//	{scale: {factor: 5, of: x}}
//	{scale: {observable: {arbiter: "0x..", name: "EUR/USD"}, of: x}}
func CompileContract(v cue.Value) (*Expr, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return compileNode(v, "contract")
}

func compileNode(v cue.Value, path string) (*Expr, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: path, Message: "combinator must be a struct", Pos: v.Pos()}
	}

	var (
		label string
		body  cue.Value
		count int
	)
	for iter.Next() {
		label, body = iter.Label(), iter.Value()
		count++
	}
	if count != 1 {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("combinator must have exactly one field, found %d", count),
			Pos:     v.Pos(),
		}
	}

	kind, ok := combinator.ParseKind(label)
	if !ok {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unknown combinator %q", label),
			Pos:     body.Pos(),
		}
	}
	path += "." + label

	switch kind {
	case combinator.KindZero:
		return Zero(), nil
	case combinator.KindOne:
		return One(), nil
	case combinator.KindAnd, combinator.KindOr, combinator.KindThen:
		a, b, err := compilePair(body, path)
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: kind, Children: []*Expr{a, b}}, nil
	case combinator.KindGive, combinator.KindGet, combinator.KindAnytime:
		sub, err := compileNode(body, path)
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: kind, Children: []*Expr{sub}}, nil
	case combinator.KindTruncate:
		deadline, err := intField(body, path, "deadline")
		if err != nil {
			return nil, err
		}
		sub, err := compileOf(body, path)
		if err != nil {
			return nil, err
		}
		return Truncate(deadline, sub), nil
	default:
		return compileScale(body, path)
	}
}

func compilePair(v cue.Value, path string) (*Expr, *Expr, error) {
	list, err := v.List()
	if err != nil {
		return nil, nil, &CompileError{Field: path, Message: "expected a list of two contracts", Pos: v.Pos()}
	}
	var out []*Expr
	for i := 0; list.Next(); i++ {
		e, err := compileNode(list.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, nil, err
		}
		out = append(out, e)
	}
	if len(out) != 2 {
		return nil, nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a list of two contracts, found %d", len(out)),
			Pos:     v.Pos(),
		}
	}
	return out[0], out[1], nil
}

func compileOf(v cue.Value, path string) (*Expr, error) {
	of := v.LookupPath(cue.ParsePath("of"))
	if !of.Exists() {
		return nil, &CompileError{Field: path + ".of", Message: "of is required", Pos: v.Pos()}
	}
	return compileNode(of, path+".of")
}

func compileScale(v cue.Value, path string) (*Expr, error) {
	factor := v.LookupPath(cue.ParsePath("factor"))
	obs := v.LookupPath(cue.ParsePath("observable"))
	if factor.Exists() == obs.Exists() {
		return nil, &CompileError{
			Field:   path,
			Message: "exactly one of factor or observable is required",
			Pos:     v.Pos(),
		}
	}

	sub, err := compileOf(v, path)
	if err != nil {
		return nil, err
	}
	if factor.Exists() {
		f, err := intField(v, path, "factor")
		if err != nil {
			return nil, err
		}
		return Scale(f, sub), nil
	}

	arbiterVal := obs.LookupPath(cue.ParsePath("arbiter"))
	if !arbiterVal.Exists() {
		return nil, &CompileError{Field: path + ".observable.arbiter", Message: "arbiter is required", Pos: obs.Pos()}
	}
	s, err := arbiterVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	arbiter, err := ir.ParseAddress(s)
	if err != nil {
		return nil, &CompileError{Field: path + ".observable.arbiter", Message: err.Error(), Pos: arbiterVal.Pos()}
	}

	name := ""
	if nameVal := obs.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		if name, err = nameVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	return ScaleObs(arbiter, name, sub), nil
}

// intField reads an integer parameter. Floats are rejected rather than
// truncated.
func intField(v cue.Value, path, field string) (int64, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, &CompileError{Field: path + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	if f.IncompleteKind() != cue.IntKind {
		return 0, &CompileError{
			Field:   path + "." + field,
			Message: fmt.Sprintf("%s must be an integer, found %v", field, f.IncompleteKind()),
			Pos:     f.Pos(),
		}
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
