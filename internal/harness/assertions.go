package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] t=%d %s by %s: %s (delta %d)\n", ev.Seq, ev.Time, ev.Op, ev.Caller, ev.Outcome, ev.Delta)
	}
	return buf.String()
}

// AssertionContext gives assertions access to the live contract.
type AssertionContext struct {
	Ctx        context.Context
	Controller *contract.Controller
	Journal    *contract.MemoryJournal
	Parties    map[string]ir.Address
	Options    []contract.Option
}

// EvaluateAssertions runs every assertion and returns the failure
// messages. It does not stop at the first failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Trace: result.Trace}
	}

	switch a.Type {
	case AssertBalance:
		var got int64
		switch a.Party {
		case "holder":
			got = result.State.HolderBalance
		case "counter_party":
			got = result.State.CounterPartyBalance
		default:
			return fmt.Errorf("balance: party must be holder or counter_party, got %q", a.Party)
		}
		if got != a.Value {
			return fail(fmt.Sprintf("%s balance %d", a.Party, a.Value), fmt.Sprintf("%d", got))
		}

	case AssertPaid:
		if got := result.Paid[a.Party]; int64(got) != a.Value {
			return fail(fmt.Sprintf("%d paid to %s", a.Value, a.Party), fmt.Sprintf("%d", got))
		}

	case AssertConcluded:
		got, err := actx.Controller.Concluded(actx.Ctx, a.At)
		if err != nil {
			return err
		}
		if got != a.Expected {
			return fail(fmt.Sprintf("concluded at %d = %t", a.At, a.Expected), fmt.Sprintf("%t", got))
		}

	case AssertAcquisitionTimes:
		if !slices.Equal(result.State.AcquisitionTimes, a.Values) {
			return fail(fmt.Sprintf("acquisition times %v", a.Values), fmt.Sprintf("%v", result.State.AcquisitionTimes))
		}

	case AssertOrChoices:
		if !slices.Equal(result.State.OrChoices, a.Values) {
			return fail(fmt.Sprintf("or-choices %v", a.Values), fmt.Sprintf("%v", result.State.OrChoices))
		}

	case AssertOutcomeCount:
		count := 0
		for _, ev := range result.Trace {
			if ev.Outcome == a.Outcome {
				count++
			}
		}
		if count != a.Count {
			return fail(fmt.Sprintf("%d events with outcome %s", a.Count, a.Outcome), fmt.Sprintf("%d", count))
		}

	case AssertConservation:
		var staked, paid int64
		for _, v := range result.Staked {
			staked += int64(v)
		}
		for _, v := range result.Paid {
			paid += int64(v)
		}
		// Fees stay in the contract's funds but leave both balances.
		sum := result.State.HolderBalance + result.State.CounterPartyBalance
		fees := staked - paid - sum
		if fees < 0 || (!result.State.UseFee && fees != 0) {
			return fail(fmt.Sprintf("balances sum to %d staked minus %d paid", staked, paid), fmt.Sprintf("%d", sum))
		}

	case AssertReplay:
		events := actx.Journal.Events(actx.Controller.ID())
		res, err := contract.Verify(actx.Ctx, actx.Controller, events, actx.Options...)
		if err != nil {
			return fail("replay reproduces the journal", fmt.Sprintf("%v (mismatches: %d)", err, len(res.Mismatches)))
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
