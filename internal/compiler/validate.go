package compiler

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrNilContract       = "E100" // missing contract or child
	ErrUnknownKind       = "E101" // combinator tag outside the ten kinds
	ErrChildCount        = "E102" // wrong number of children for the kind
	ErrNegativeDeadline  = "E103" // truncate deadline before the epoch
	ErrZeroArbiter       = "E104" // observable without an arbiter
	ErrInvalidName       = "E105" // observable name not valid NFC UTF-8
	ErrUnreachableBranch = "E106" // then branch that can never be acquired
)

// Severities. Warnings describe contracts that deploy but behave in a way
// the author probably did not intend.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a contract validation finding.
type ValidationError struct {
	Path     string `json:"path"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// HasErrors reports whether any finding is an error rather than a warning.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks an expression before it is encoded.
// Returns all errors found (does not fail-fast).
func Validate(e *Expr) []ValidationError {
	var errs []ValidationError
	validateExpr(e, "contract", &errs)
	return errs
}

func validateExpr(e *Expr, path string, errs *[]ValidationError) {
	add := func(code, format string, args ...any) {
		sev := SeverityError
		if code == ErrUnreachableBranch {
			sev = SeverityWarning
		}
		*errs = append(*errs, ValidationError{
			Path:     path,
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	if e == nil {
		add(ErrNilContract, "contract is missing")
		return
	}
	if !e.Kind.Valid() {
		add(ErrUnknownKind, "unknown combinator %s", e.Kind)
		return
	}
	path += "." + e.Kind.String()

	if got, want := len(e.Children), e.Kind.Children(); got != want {
		add(ErrChildCount, "%s takes %d sub-contracts, found %d", e.Kind, want, got)
	}

	switch e.Kind {
	case combinator.KindTruncate:
		if e.Deadline < 0 {
			add(ErrNegativeDeadline, "deadline %d is negative", e.Deadline)
		}
	case combinator.KindScale:
		if e.Observed {
			if e.Arbiter.IsZero() {
				add(ErrZeroArbiter, "observable has no arbiter")
			}
			if !utf8.ValidString(e.Name) || !norm.NFC.IsNormalString(e.Name) {
				add(ErrInvalidName, "observable name %q is not NFC-normalized UTF-8", e.Name)
			}
		}
	case combinator.KindThen:
		// The second branch only runs once the first has expired, so
		// an unbounded first branch makes it dead.
		if len(e.Children) == 2 && e.Children[0] != nil && !horizon(e.Children[0]).Ok {
			add(ErrUnreachableBranch, "first branch never expires, second branch is unreachable")
		}
	}

	for i, c := range e.Children {
		validateExpr(c, fmt.Sprintf("%s[%d]", path, i), errs)
	}
}

// horizon mirrors combinator.Node.Horizon on an unencoded expression.
func horizon(e *Expr) ir.OptTime {
	for _, c := range e.Children {
		if c == nil {
			return ir.None
		}
	}
	switch e.Kind {
	case combinator.KindZero, combinator.KindOne:
		return ir.None
	case combinator.KindAnd, combinator.KindOr, combinator.KindThen:
		if len(e.Children) != 2 {
			return ir.None
		}
		return ir.Latest(horizon(e.Children[0]), horizon(e.Children[1]))
	case combinator.KindTruncate:
		if len(e.Children) != 1 {
			return ir.At(e.Deadline)
		}
		return ir.Earliest(horizon(e.Children[0]), ir.At(e.Deadline))
	}
	if len(e.Children) != 1 {
		return ir.None
	}
	return horizon(e.Children[0])
}
