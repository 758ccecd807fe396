package contract

import (
	"context"
	"sync"

	"github.com/roach88/smartfin/internal/ir"
)

// Journal records evaluation events. store.Store implements it durably;
// MemoryJournal serves tests and the scenario harness.
//
// Events are appended after the event's transaction has committed or
// aborted, so a crash between the two loses the journal entry but never
// the state change.
type Journal interface {
	Append(ctx context.Context, ev ir.Event) (int64, error)
}

// MemoryJournal keeps events in process memory, sequenced by a Clock.
type MemoryJournal struct {
	mu     sync.Mutex
	clock  *Clock
	events []ir.Event
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{clock: NewClock()}
}

// Append implements Journal.
func (j *MemoryJournal) Append(ctx context.Context, ev ir.Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	ev.Seq = j.clock.Next()
	j.events = append(j.events, ev)
	return ev.Seq, nil
}

// Events returns the events for contractID in sequence order.
func (j *MemoryJournal) Events(contractID string) []ir.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []ir.Event
	for _, ev := range j.events {
		if ev.ContractID == contractID {
			out = append(out, ev)
		}
	}
	return out
}

// All returns every recorded event.
func (j *MemoryJournal) All() []ir.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]ir.Event(nil), j.events...)
}
