package contract_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/contract"
)

func TestAcquire_One(t *testing.T) {
	f := deploy(t, defOne, false)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), delta)

	hb, cb := f.balances(t)
	assert.Equal(t, int64(1), hb)
	assert.Equal(t, int64(-1), cb)

	times, err := f.c.AcquisitionTimes(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, times)

	last, err := f.c.LastUpdated(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), last)

	done, err := f.c.Concluded(f.ctx, 5)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAcquire_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		def   []int64
		delta int64
	}{
		{"zero", defZero, 0},
		{"give one", defGiveOne, -1},
		{"and one give one", defAndOneGive, 0},
		{"scale 5 one", defScale5One, 5},
		{"truncate", defTrunc10, 1},
		{"and with expired branch", []int64{2, 4, 0, 5, 1, 5, 1, 5, 1, 3, 1}, 3},
		{"then before first horizon", []int64{7, 4, 10, 1, 6, 1}, 1},
		{"then after first horizon", []int64{7, 4, 0, 1, 6, 1}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := deploy(t, tt.def, false)

			delta, err := f.c.Acquire(f.ctx, f.env(holder, 1))
			require.NoError(t, err)
			assert.Equal(t, tt.delta, delta)

			hb, cb := f.balances(t)
			assert.Equal(t, tt.delta, hb)
			assert.Equal(t, -tt.delta, cb)
		})
	}
}

func TestAcquire_Rejected(t *testing.T) {
	t.Run("counter-party", func(t *testing.T) {
		f := deploy(t, defOne, false)
		_, err := f.c.Acquire(f.ctx, f.env(counterParty, 1))
		requireCode(t, err, combinator.CodeUnauthorized)
	})

	t.Run("twice", func(t *testing.T) {
		f := deploy(t, defTrunc10, false)
		_, err := f.c.Acquire(f.ctx, f.env(holder, 1))
		require.NoError(t, err)
		_, err = f.c.Acquire(f.ctx, f.env(holder, 2))
		requireCode(t, err, combinator.CodeReacquisition)
	})

	t.Run("past horizon", func(t *testing.T) {
		f := deploy(t, defTrunc10, false)
		_, err := f.c.Acquire(f.ctx, f.env(holder, 11))
		requireCode(t, err, combinator.CodeTemporal)

		times, err := f.c.AcquisitionTimes(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{-1}, times)
	})

	t.Run("at horizon", func(t *testing.T) {
		f := deploy(t, defTrunc10, false)
		delta, err := f.c.Acquire(f.ctx, f.env(holder, 10))
		require.NoError(t, err)
		assert.Equal(t, int64(1), delta)
	})
}

func TestUpdate_Concluded(t *testing.T) {
	t.Run("fully updated", func(t *testing.T) {
		f := deploy(t, defOne, false)
		_, err := f.c.Acquire(f.ctx, f.env(holder, 1))
		require.NoError(t, err)

		_, err = f.c.Update(f.ctx, f.env(stranger, 2))
		requireCode(t, err, contract.CodeConcluded)

		last, err := f.c.LastUpdated(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), last, "aborted update must not move last-updated")
	})

	t.Run("expired unacquired", func(t *testing.T) {
		f := deploy(t, defTrunc10, false)

		done, err := f.c.Concluded(f.ctx, 10)
		require.NoError(t, err)
		assert.False(t, done)

		done, err = f.c.Concluded(f.ctx, 11)
		require.NoError(t, err)
		assert.True(t, done)

		_, err = f.c.Update(f.ctx, f.env(stranger, 11))
		requireCode(t, err, contract.CodeConcluded)
	})

	t.Run("unacquired before horizon", func(t *testing.T) {
		f := deploy(t, defTrunc10, false)
		delta, err := f.c.Update(f.ctx, f.env(stranger, 3))
		require.NoError(t, err)
		assert.Zero(t, delta)

		last, err := f.c.LastUpdated(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), last)
	})
}

func TestOrChoice(t *testing.T) {
	f := deploy(t, defOrOneGive, false)

	_, err := f.c.Acquire(f.ctx, f.env(holder, 1))
	requireCode(t, err, combinator.CodeUnsetDependency)

	err = f.c.SetOrChoice(f.ctx, f.env(counterParty, 1), 0, true)
	requireCode(t, err, combinator.CodeUnauthorized)

	err = f.c.SetOrChoice(f.ctx, f.env(holder, 1), 1, true)
	requireCode(t, err, combinator.CodeOutOfBounds)

	require.NoError(t, f.c.SetOrChoice(f.ctx, f.env(holder, 1), 0, false))
	err = f.c.SetOrChoice(f.ctx, f.env(holder, 1), 0, true)
	requireCode(t, err, combinator.CodeAlreadySet)

	choices, err := f.c.OrChoices(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, choices)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), delta)
}

func TestObservable(t *testing.T) {
	f := deploy(t, defScaleObs(arbiter, "EUR/USD", 1), false)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 1))
	require.NoError(t, err)
	assert.Zero(t, delta, "unresolved observable defers payment")

	entries, err := f.c.ObsEntries(f.ctx)
	require.NoError(t, err)
	w := arbiter.Words()
	want := []int64{w[0], w[1], w[2], w[3], -1, int64(len("EUR/USD"))}
	want = append(want, combinator.EncodeName("EUR/USD")...)
	assert.Equal(t, want, entries)

	err = f.c.SetObsValue(f.ctx, f.env(holder, 2), 0, 7)
	requireCode(t, err, combinator.CodeUnauthorized)
	err = f.c.SetObsValue(f.ctx, f.env(arbiter, 2), 1, 7)
	requireCode(t, err, combinator.CodeOutOfBounds)

	require.NoError(t, f.c.SetObsValue(f.ctx, f.env(arbiter, 2), 0, 7))
	err = f.c.SetObsValue(f.ctx, f.env(arbiter, 2), 0, 8)
	requireCode(t, err, combinator.CodeAlreadySet)

	obs, err := f.c.Observables(f.ctx)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "EUR/USD", obs[0].Name)
	assert.Equal(t, int64(7), obs[0].Value)
	assert.True(t, obs[0].Set)

	delta, err = f.c.Update(f.ctx, f.env(stranger, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(7), delta)

	hb, cb := f.balances(t)
	assert.Equal(t, int64(7), hb)
	assert.Equal(t, int64(-7), cb)
}

func TestObservable_NegativeValue(t *testing.T) {
	f := deploy(t, defScaleObs(arbiter, "", 1), false)
	require.NoError(t, f.c.SetObsValue(f.ctx, f.env(arbiter, 0), 0, -3))

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), delta)
}

func TestAcquireAnytime(t *testing.T) {
	f := deploy(t, defAnytimeOne, false)

	_, err := f.c.AcquireAnytime(f.ctx, f.env(holder, 1), 0)
	requireCode(t, err, combinator.CodeTemporal)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 1))
	require.NoError(t, err)
	assert.Zero(t, delta)

	_, err = f.c.AcquireAnytime(f.ctx, f.env(counterParty, 4), 0)
	requireCode(t, err, combinator.CodeUnauthorized)
	_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 4), 1)
	requireCode(t, err, combinator.CodeOutOfBounds)
	_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 1), 0)
	requireCode(t, err, combinator.CodeTemporal)

	delta, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 4), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), delta)

	times, err := f.c.AcquisitionTimes(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, times)

	_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 5), 0)
	requireCode(t, err, combinator.CodeReacquisition)

	done, err := f.c.Concluded(f.ctx, 5)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestAcquireAnytime_DeferredByGet(t *testing.T) {
	// get (anytime (truncate 100 one))
	f := deploy(t, []int64{8, 9, 4, 100, 1}, false)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 10))
	require.NoError(t, err)
	assert.Zero(t, delta)

	for _, at := range []int64{20, 100} {
		_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, at), 0)
		requireCode(t, err, combinator.CodeTemporal)
	}

	times, err := f.c.AcquisitionTimes(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, -1}, times)

	delta, err = f.c.Update(f.ctx, f.env(stranger, 100))
	require.NoError(t, err)
	assert.Zero(t, delta)

	// The sub-contract expires at 100, so a later choice settles with nothing owed.
	delta, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 101), 0)
	require.NoError(t, err)
	assert.Zero(t, delta)

	done, err := f.c.Concluded(f.ctx, 101)
	require.NoError(t, err)
	assert.True(t, done)

	hb, cb := f.balances(t)
	assert.Zero(t, hb)
	assert.Zero(t, cb)
}

func TestAcquireAnytime_MovesForward(t *testing.T) {
	// scale obs (anytime one): the sub-contract stays unacquired until the
	// observable resolves.
	f := deploy(t, defScaleObs(arbiter, "RATE", 9, 1), false)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 1))
	require.NoError(t, err)
	assert.Zero(t, delta)

	delta, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 3), 0)
	require.NoError(t, err)
	assert.Zero(t, delta)

	for _, at := range []int64{2, 3} {
		_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, at), 0)
		requireCode(t, err, combinator.CodeReacquisition)
	}

	_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 5), 0)
	require.NoError(t, err)

	times, err := f.c.AcquisitionTimes(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, times)

	require.NoError(t, f.c.SetObsValue(f.ctx, f.env(arbiter, 6), 0, 4))
	delta, err = f.c.Update(f.ctx, f.env(stranger, 6))
	require.NoError(t, err)
	assert.Equal(t, int64(4), delta)

	_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, 7), 0)
	requireCode(t, err, combinator.CodeReacquisition)
}

func TestEvent_BeforeEpoch(t *testing.T) {
	f := deploy(t, defAnytimeOne, false)

	for _, at := range []int64{-1, -5} {
		_, err := f.c.Acquire(f.ctx, f.env(holder, at))
		requireCode(t, err, combinator.CodeTemporal)
	}

	times, err := f.c.AcquisitionTimes(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1, -1}, times)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 3))
	require.NoError(t, err)
	assert.Zero(t, delta)

	_, err = f.c.AcquireAnytime(f.ctx, f.env(holder, -1), 0)
	requireCode(t, err, combinator.CodeTemporal)
	_, err = f.c.Update(f.ctx, f.env(stranger, -1))
	requireCode(t, err, combinator.CodeTemporal)

	_, err = f.c.Acquire(f.ctx, f.env(holder, 4))
	requireCode(t, err, combinator.CodeReacquisition)

	events := f.journal.Events(f.c.ID())
	last := events[len(events)-1]
	assert.Equal(t, string(combinator.CodeReacquisition), last.Outcome)
	assert.Equal(t, string(combinator.CodeTemporal), events[1].Outcome)
}

func TestStake(t *testing.T) {
	f := deploy(t, defOne, false)

	assert.Equal(t, int64(100), f.stake(t, holder, 100))
	assert.Equal(t, int64(150), f.stake(t, holder, 50))
	assert.Equal(t, int64(30), f.stake(t, counterParty, 30))

	env := f.env(stranger, 0)
	env.Value = 10
	_, err := f.c.Stake(f.ctx, env)
	requireCode(t, err, combinator.CodeUnauthorized)

	env = f.env(holder, 0)
	env.Value = math.MaxInt64 + 1
	_, err = f.c.Stake(f.ctx, env)
	requireCode(t, err, combinator.CodeArithmetic)

	env.Value = math.MaxInt64
	_, err = f.c.Stake(f.ctx, env)
	requireCode(t, err, combinator.CodeArithmetic)

	hb, cb := f.balances(t)
	assert.Equal(t, int64(150), hb)
	assert.Equal(t, int64(30), cb)
}

func TestConservation(t *testing.T) {
	// and (scale 2 one) (anytime give one)
	f := deploy(t, []int64{2, 5, 1, 2, 1, 9, 6, 1}, false)
	f.stake(t, holder, 20)
	f.stake(t, counterParty, 20)

	delta, err := f.c.Acquire(f.ctx, f.env(holder, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), delta)

	for at := int64(2); at < 6; at++ {
		if at == 3 {
			delta, err = f.c.AcquireAnytime(f.ctx, f.env(holder, at), 0)
			require.NoError(t, err)
			assert.Equal(t, int64(-1), delta)
		} else if _, err := f.c.Update(f.ctx, f.env(stranger, at)); err != nil {
			requireCode(t, err, contract.CodeConcluded)
		}
		hb, cb := f.balances(t)
		assert.Equal(t, int64(40), hb+cb, "balances must sum to the total staked at time %d", at)
	}

	hb, _ := f.balances(t)
	assert.Equal(t, int64(21), hb)
}
