package store

import (
	"context"
	"fmt"

	"github.com/roach88/smartfin/internal/ir"
)

// History summarizes a contract's journal.
type History struct {
	ContractID  string
	Events      []ir.Event
	LastSeq     int64
	LastTime    int64
	Committed   int            // Events with outcome "ok"
	Failed      int            // Events that aborted
	FailedCodes map[string]int // Abort count per error code
}

// GetHistory reads the journal for a contract and tallies its outcomes.
func (s *Store) GetHistory(ctx context.Context, contractID string) (History, error) {
	h := History{
		ContractID:  contractID,
		FailedCodes: map[string]int{},
	}

	events, err := s.Events(ctx, contractID)
	if err != nil {
		return h, fmt.Errorf("get history: %w", err)
	}
	h.Events = events

	for _, ev := range events {
		if ev.Seq > h.LastSeq {
			h.LastSeq = ev.Seq
		}
		if ev.Time > h.LastTime {
			h.LastTime = ev.Time
		}
		if ev.Outcome == ir.OutcomeOK {
			h.Committed++
			continue
		}
		h.Failed++
		h.FailedCodes[ev.Outcome]++
	}

	return h, nil
}
