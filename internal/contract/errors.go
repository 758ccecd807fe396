package contract

import (
	"errors"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
)

// Controller-level error codes. They share combinator.Code so callers
// branch on a single code space.
const (
	// CodeConcluded indicates an update on a concluded contract.
	CodeConcluded combinator.Code = "CONCLUDED"

	// CodeInvalidInstantiation indicates a rejected deployment.
	CodeInvalidInstantiation combinator.Code = "INVALID_INSTANTIATION"

	// CodePaymentFailed indicates the host refused a withdrawal payment.
	CodePaymentFailed combinator.Code = "PAYMENT_FAILED"

	// CodeNotInitialized indicates an operation on a contract that was never deployed.
	CodeNotInitialized combinator.Code = "NOT_INITIALIZED"
)

// outcomeError is the journal outcome for failures without a code.
const outcomeError = "ERROR"

// classify maps storage bounds failures onto OUT_OF_BOUNDS so every
// domain failure carries a stable code.
func classify(err error) error {
	if err == nil || combinator.CodeOf(err) != "" {
		return err
	}
	var be *storage.BoundsError
	if errors.As(err, &be) {
		return combinator.Errorf(combinator.CodeOutOfBounds, "%s index %d out of bounds [0, %d)", be.Key, be.Index, be.Len).
			With("table", be.Key)
	}
	return err
}

// outcome returns the journal outcome for err.
func outcome(err error) string {
	if err == nil {
		return ir.OutcomeOK
	}
	if code := combinator.CodeOf(err); code != "" {
		return string(code)
	}
	return outcomeError
}
