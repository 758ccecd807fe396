package contract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
)

// runHistory drives a contract through every operation kind, including
// failures.
func runHistory(t *testing.T) *fixture {
	t.Helper()
	// and (or (scale obs one) (give one)) (anytime one)
	def := []int64{2, 3}
	def = append(def, defScaleObs(arbiter, "EUR/USD", 1)...)
	def = append(def, 6, 1, 9, 1)
	f := deploy(t, def, true, contract.WithTransactionFee(10))

	f.stake(t, holder, 100)
	f.stake(t, counterParty, 100)
	_, err := f.c.Acquire(f.ctx, f.env(holder, 1))
	require.Error(t, err)
	require.NoError(t, f.c.SetOrChoice(f.ctx, f.env(holder, 1), 0, true))
	_, err = f.c.Acquire(f.ctx, f.env(holder, 2))
	require.NoError(t, err)
	require.NoError(t, f.c.SetObsValue(f.ctx, f.env(arbiter, 3), 0, 12))
	_, err = f.c.Update(f.ctx, f.env(stranger, 4))
	require.NoError(t, err)
	_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 5), 0)
	require.NoError(t, err)

	require.NoError(t, f.c.Withdraw(f.ctx, f.env(holder, 6), 20))
	f.payments.Refuse(true)
	require.Error(t, f.c.Withdraw(f.ctx, f.env(counterParty, 7), 20))
	f.payments.Refuse(false)
	_, err = f.c.Update(f.ctx, f.env(stranger, 8))
	require.Error(t, err)
	return f
}

func TestReplay_ReproducesHistory(t *testing.T) {
	f := runHistory(t)
	events := f.journal.Events("c1")
	require.Len(t, events, 12)

	res, err := contract.Verify(f.ctx, f.c, events, contract.WithTransactionFee(10), contract.WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, "c1", res.ContractID)
	assert.Equal(t, 12, res.Events)
	assert.Empty(t, res.Mismatches)

	live, err := f.c.Digest(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, live, res.Digest)
}

func TestReplay_DetectsTamperedOutcome(t *testing.T) {
	f := runHistory(t)
	events := f.journal.Events("c1")

	// Pretend the first acquire succeeded.
	events[3].Outcome = ir.OutcomeOK

	res, err := contract.Verify(f.ctx, f.c, events, contract.WithTransactionFee(10), contract.WithLogger(quietLogger()))
	require.ErrorIs(t, err, contract.ErrReplayMismatch)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, events[3].Seq, res.Mismatches[0].Seq)
	assert.Equal(t, "UNSET_DEPENDENCY", res.Mismatches[0].Replayed)
}

func TestReplay_DetectsDivergentState(t *testing.T) {
	f := runHistory(t)
	events := f.journal.Events("c1")

	// Dropping the counter-party's stake changes every later balance.
	var trimmed []ir.Event
	for i, ev := range events {
		if i == 2 {
			continue
		}
		trimmed = append(trimmed, ev)
	}

	_, err := contract.Verify(f.ctx, f.c, trimmed, contract.WithTransactionFee(10), contract.WithLogger(quietLogger()))
	require.ErrorIs(t, err, contract.ErrReplayMismatch)
}

func TestReplay_Empty(t *testing.T) {
	res, err := contract.Replay(t.Context(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Events)
	assert.Empty(t, res.Mismatches)
}

func TestReplay_MixedContracts(t *testing.T) {
	events := []ir.Event{
		{Seq: 1, ContractID: "a", Op: ir.OpUpdate},
		{Seq: 2, ContractID: "b", Op: ir.OpUpdate},
	}
	_, err := contract.Replay(t.Context(), events, contract.WithLogger(quietLogger()))
	require.Error(t, err)
}

func TestRestore_ContinuesFromJournal(t *testing.T) {
	f := runHistory(t)
	events := f.journal.Events("c1")

	backend := storage.NewMemoryBackend()
	defer backend.Close()
	journal := contract.NewMemoryJournal()

	c, err := contract.Restore(f.ctx, backend, events,
		contract.WithTransactionFee(10), contract.WithLogger(quietLogger()), contract.WithJournal(journal))
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID())
	assert.Empty(t, journal.All(), "restoring must not journal")

	live, err := f.c.Digest(f.ctx)
	require.NoError(t, err)
	restored, err := c.Digest(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, live, restored)

	// The restored controller journals new events.
	_, err = c.Stake(f.ctx, contract.Env{Caller: holder, Time: 9, Value: 1})
	require.NoError(t, err)
	assert.Len(t, journal.All(), 1)
}

func TestRestore_Errors(t *testing.T) {
	_, err := contract.Restore(t.Context(), storage.NewMemoryBackend(), nil)
	assert.True(t, combinator.IsCode(err, contract.CodeNotInitialized))

	f := runHistory(t)
	events := f.journal.Events("c1")
	events[3].Outcome = ir.OutcomeOK
	_, err = contract.Restore(f.ctx, storage.NewMemoryBackend(), events,
		contract.WithTransactionFee(10), contract.WithLogger(quietLogger()))
	require.ErrorIs(t, err, contract.ErrReplayMismatch)
}
