package contract

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/combinator"
)

func TestWithdrawalAmount(t *testing.T) {
	tests := []struct {
		name                           string
		requested, balance, funds, fee int64
		useFee                         bool
		want                           int64
	}{
		{"no fee", 30, 100, 150, 0, false, 30},
		{"no fee clamped to balance", 130, 100, 150, 0, false, 100},
		{"no fee clamped to funds", 130, 100, 60, 0, false, 60},
		{"fee added", 30, 100, 150, 10, true, 40},
		{"fee clamped", 95, 100, 150, 10, true, 100},
		{"balance below fee", 1, 9, 150, 10, true, 0},
		{"funds below fee", 1, 100, 9, 10, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := withdrawalAmount(tt.requested, tt.balance, tt.funds, tt.fee, tt.useFee)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithdrawalAmount_Overflow(t *testing.T) {
	_, err := withdrawalAmount(math.MaxInt64, 100, 100, 10, true)
	assert.Equal(t, combinator.CodeArithmetic, combinator.CodeOf(err))
}
