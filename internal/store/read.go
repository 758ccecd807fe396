package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/smartfin/internal/ir"
)

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// GetContract returns the registry row for id.
func (s *Store) GetContract(ctx context.Context, id string) (ContractRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, holder, counter_party, definition_hash, created_at
		FROM contracts
		WHERE id = ?
	`, id)
	rec, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ContractRecord{}, false, nil
	}
	if err != nil {
		return ContractRecord{}, false, err
	}
	return rec, true, nil
}

// ListContracts returns every registered contract ordered by creation time
// then ID.
//
// Returns an empty slice (not nil) if no contracts exist.
func (s *Store) ListContracts(ctx context.Context) ([]ContractRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, holder, counter_party, definition_hash, created_at
		FROM contracts
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	records := []ContractRecord{}
	for rows.Next() {
		rec, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contracts: %w", err)
	}
	return records, nil
}

func scanContract(row scanner) (ContractRecord, error) {
	var rec ContractRecord
	var holder, counterParty string
	if err := row.Scan(&rec.ID, &holder, &counterParty, &rec.DefinitionHash, &rec.CreatedAt); err != nil {
		return rec, err
	}
	var err error
	if rec.Holder, err = ir.ParseAddress(holder); err != nil {
		return rec, fmt.Errorf("scan contract %s: holder: %w", rec.ID, err)
	}
	if rec.CounterParty, err = ir.ParseAddress(counterParty); err != nil {
		return rec, fmt.Errorf("scan contract %s: counter-party: %w", rec.ID, err)
	}
	return rec, nil
}

// Events returns the journal for a contract.
// Results are ordered deterministically: ORDER BY seq ASC.
//
// Returns an empty slice (not nil) if no events exist.
func (s *Store) Events(ctx context.Context, contractID string) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, contract_id, op, caller, time, value, args, outcome, delta
		FROM events
		WHERE contract_id = ?
		ORDER BY seq ASC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row scanner) (ir.Event, error) {
	var ev ir.Event
	var caller, value, args string
	if err := row.Scan(&ev.Seq, &ev.ContractID, &ev.Op, &caller, &ev.Time, &value, &args, &ev.Outcome, &ev.Delta); err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}

	var err error
	if ev.Caller, err = ir.ParseAddress(caller); err != nil {
		return ev, fmt.Errorf("scan event %d: caller: %w", ev.Seq, err)
	}
	if ev.Value, err = strconv.ParseUint(value, 10, 64); err != nil {
		return ev, fmt.Errorf("scan event %d: value: %w", ev.Seq, err)
	}
	if ev.Args, err = unmarshalArgs(args); err != nil {
		return ev, fmt.Errorf("scan event %d: %w", ev.Seq, err)
	}
	return ev, nil
}
