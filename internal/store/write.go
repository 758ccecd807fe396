package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/smartfin/internal/ir"
)

// ContractRecord is one row of the contract registry.
type ContractRecord struct {
	ID             string
	Holder         ir.Address
	CounterParty   ir.Address
	DefinitionHash string
	CreatedAt      int64
}

// RegisterContract inserts a registry row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - registering the same
// ID twice is silently ignored.
func (s *Store) RegisterContract(ctx context.Context, rec ContractRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, holder, counter_party, definition_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Holder.String(),
		rec.CounterParty.String(),
		rec.DefinitionHash,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("register contract: %w", err)
	}
	return nil
}

// Append writes ev to the journal and returns the seq assigned to it.
// ev.Seq is ignored.
//
// The event's Args are serialized to canonical JSON per RFC 8785 for
// deterministic replay. Value is stored as decimal TEXT because it may
// exceed the signed 64-bit range.
func (s *Store) Append(ctx context.Context, ev ir.Event) (int64, error) {
	argsJSON, err := marshalArgs(ev.Args)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (contract_id, op, caller, time, value, args, outcome, delta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ContractID,
		ev.Op,
		ev.Caller.String(),
		ev.Time,
		strconv.FormatUint(ev.Value, 10),
		argsJSON,
		ev.Outcome,
		ev.Delta,
	)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return seq, nil
}
