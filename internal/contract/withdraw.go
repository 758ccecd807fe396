package contract

import (
	"context"
	"math"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/ir"
)

// withdrawalAmount is the amount debited from the caller's balance for a
// requested withdrawal: the request plus the fee, clamped to the balance
// and to the aggregate funds. It returns 0 in fee mode when either the
// balance or the funds cannot cover the fee.
func withdrawalAmount(requested, balance, funds, fee int64, useFee bool) (int64, error) {
	amount := requested
	if useFee {
		var err error
		if amount, err = combinator.AddChecked(requested, fee); err != nil {
			return 0, err
		}
		if balance < fee || funds < fee {
			return 0, nil
		}
	}
	if balance < amount {
		amount = balance
	}
	if funds < amount {
		amount = funds
	}
	return amount, nil
}

// Withdraw pays up to amount from the caller's balance through
// env.Payments. In fee mode the transaction fee is debited on top of the
// payout.
//
// The debit commits before the payment is made, so a payout never leaves
// without its debit. If the payment fails the debit is credited back and
// the event fails with PAYMENT_FAILED.
func (c *Controller) Withdraw(ctx context.Context, env Env, amount uint64) error {
	_, err := c.withdraw(ctx, env, amount)
	return err
}

// withdraw returns the (negative) change to the caller's balance.
func (c *Controller) withdraw(ctx context.Context, env Env, amount uint64) (int64, error) {
	args := ir.EventArgs{Amount: amount}
	eff := &effect{}
	return c.runEffect(ctx, ir.OpWithdraw, env, args, false, func(st *state) (int64, error) {
		if amount > math.MaxInt64 {
			return 0, combinator.Errorf(combinator.CodeArithmetic, "withdrawal %d is too large to be converted to int64", amount)
		}
		key, err := st.partyBalanceKey(env.Caller, "withdraw funds from the contract")
		if err != nil {
			return 0, err
		}
		holderBalance, err := st.int(keyHolderBalance)
		if err != nil {
			return 0, err
		}
		counterPartyBalance, err := st.int(keyCounterPartyBalance)
		if err != nil {
			return 0, err
		}
		funds, err := combinator.AddChecked(holderBalance, counterPartyBalance)
		if err != nil {
			return 0, err
		}
		useFee, err := st.bool(keyUseFee)
		if err != nil {
			return 0, err
		}

		balance := holderBalance
		if key == keyCounterPartyBalance {
			balance = counterPartyBalance
		}
		fee := int64(0)
		if useFee {
			fee = c.opts.fee
		}

		final, err := withdrawalAmount(int64(amount), balance, funds, fee, useFee)
		if err != nil {
			return 0, err
		}
		if useFee && final < fee {
			return 0, combinator.Errorf(combinator.CodeInsufficientFunds,
				"not enough funds to pay the transaction fee while withdrawing")
		}
		payout := final - fee
		if payout <= 0 {
			return 0, combinator.Errorf(combinator.CodeInsufficientFunds, "not enough funds to withdraw")
		}

		if env.Payments == nil {
			return 0, combinator.Errorf(CodePaymentFailed, "no payment capability")
		}
		if err := st.s.SetInt(key, balance-final); err != nil {
			return 0, err
		}

		eff.do = func(ctx context.Context) error {
			if err := env.Payments.Pay(ctx, env.Caller, uint64(payout)); err != nil {
				return combinator.Errorf(CodePaymentFailed, "payment failed: %v", err)
			}
			return nil
		}
		eff.undo = func(st *state) error {
			return st.addBalance(key, final)
		}
		return -final, nil
	}, eff)
}
