package contract_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/combinator"
	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/ir"
	"github.com/roach88/smartfin/internal/storage"
	"github.com/roach88/smartfin/internal/testutil"
)

var (
	holder       = ir.MustParseAddress("0x00000000000000000000000000000000000000a1")
	counterParty = ir.MustParseAddress("0x00000000000000000000000000000000000000c2")
	arbiter      = ir.MustParseAddress("0x00000000000000000000000000000000000000b3")
	stranger     = ir.MustParseAddress("0x00000000000000000000000000000000000000d4")
)

// Definitions used across tests.
var (
	defOne        = []int64{1}
	defZero       = []int64{0}
	defGiveOne    = []int64{6, 1}
	defAndOneGive = []int64{2, 1, 6, 1}
	defOrOneGive  = []int64{3, 1, 6, 1}
	defTrunc10    = []int64{4, 10, 1}
	defAnytimeOne = []int64{9, 1}
	defScale5One  = []int64{5, 1, 5, 1}
)

// defScaleObs scales sub by an observable resolved by arb.
func defScaleObs(arb ir.Address, name string, sub ...int64) []int64 {
	w := arb.Words()
	def := []int64{5, 0, w[0], w[1], w[2], w[3]}
	code := combinator.EncodeName(name)
	def = append(def, int64(len(code)))
	def = append(def, code...)
	return append(def, sub...)
}

type fixture struct {
	ctx      context.Context
	backend  storage.Backend
	c        *contract.Controller
	payments *testutil.RecordingPayments
	journal  *contract.MemoryJournal
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// deploy creates a contract for holder, deployed by counterParty at time 0.
func deploy(t *testing.T, def []int64, useFee bool, opts ...contract.Option) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		backend:  storage.NewMemoryBackend(),
		payments: testutil.NewRecordingPayments(),
		journal:  contract.NewMemoryJournal(),
	}
	opts = append([]contract.Option{
		contract.WithLogger(quietLogger()),
		contract.WithJournal(f.journal),
		contract.WithIDGenerator(testutil.NewFixedIDGenerator("c1")),
	}, opts...)

	c, err := contract.Deploy(f.ctx, f.backend, f.env(counterParty, 0), def, holder, useFee, opts...)
	require.NoError(t, err)
	f.c = c
	return f
}

func (f *fixture) env(caller ir.Address, at int64) contract.Env {
	return contract.Env{Caller: caller, Time: at, Payments: f.payments}
}

func (f *fixture) stake(t *testing.T, caller ir.Address, value uint64) int64 {
	t.Helper()
	env := f.env(caller, 0)
	env.Value = value
	bal, err := f.c.Stake(f.ctx, env)
	require.NoError(t, err)
	return bal
}

func (f *fixture) balances(t *testing.T) (int64, int64) {
	t.Helper()
	h, err := f.c.Balance(f.ctx, true)
	require.NoError(t, err)
	cp, err := f.c.Balance(f.ctx, false)
	require.NoError(t, err)
	return h, cp
}

func requireCode(t *testing.T, err error, code combinator.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, combinator.CodeOf(err), "error: %v", err)
}
