package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/smartfin/internal/ir"
)

var (
	testHolder       = ir.MustParseAddress("0x00000000000000000000000000000000000000a1")
	testCounterParty = ir.MustParseAddress("0x00000000000000000000000000000000000000c2")
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates a committed journal event with minimal fields.
func createTestEvent(contractID, op string, time int64) ir.Event {
	return ir.Event{
		ContractID: contractID,
		Op:         op,
		Caller:     testHolder,
		Time:       time,
		Outcome:    ir.OutcomeOK,
	}
}
