package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/smartfin/internal/ir"
)

// ErrPaymentRefused is returned by RecordingPayments when refusing.
var ErrPaymentRefused = errors.New("payment refused")

// Payment is one transfer recorded by RecordingPayments.
type Payment struct {
	To     ir.Address
	Amount uint64
}

// RecordingPayments is a payment capability that records every successful
// transfer. Refuse makes subsequent payments fail.
type RecordingPayments struct {
	mu       sync.Mutex
	payments []Payment
	refuse   bool
}

// NewRecordingPayments creates an accepting sink.
func NewRecordingPayments() *RecordingPayments {
	return &RecordingPayments{}
}

// Pay records the transfer or returns ErrPaymentRefused.
func (p *RecordingPayments) Pay(ctx context.Context, to ir.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refuse {
		return ErrPaymentRefused
	}
	p.payments = append(p.payments, Payment{To: to, Amount: amount})
	return nil
}

// Refuse toggles whether payments fail.
func (p *RecordingPayments) Refuse(refuse bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refuse = refuse
}

// Payments returns a copy of the recorded transfers.
func (p *RecordingPayments) Payments() []Payment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Payment(nil), p.payments...)
}

// Total returns the sum paid to addr.
func (p *RecordingPayments) Total(addr ir.Address) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sum uint64
	for _, pay := range p.payments {
		if pay.To == addr {
			sum += pay.Amount
		}
	}
	return sum
}
