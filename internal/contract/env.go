package contract

import (
	"context"

	"github.com/roach88/smartfin/internal/ir"
)

// Payments moves funds out of the contract on the host's ledger.
type Payments interface {
	Pay(ctx context.Context, to ir.Address, amount uint64) error
}

// Env carries the host facts for one evaluation event.
type Env struct {
	// Caller is the authenticated party invoking the operation.
	Caller ir.Address

	// Time is the host timestamp of the event.
	Time int64

	// Value is the amount attached to the call. Only Stake reads it.
	Value uint64

	// Payments is the transfer capability. Only Withdraw uses it.
	Payments Payments
}
