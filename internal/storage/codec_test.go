package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeInts(t *testing.T) {
	seqs := [][]int64{
		{},
		{0},
		{-1, 1},
		{math.MaxInt64, math.MinInt64, 0},
		{2, -1, 0, 4, -1, 0, 10, 1, -1, 0},
	}
	for _, seq := range seqs {
		got, err := DecodeInts(EncodeInts(seq))
		require.NoError(t, err)
		assert.Equal(t, seq, got)
	}
}

func TestDecodeInts_Corrupt(t *testing.T) {
	_, err := DecodeInts([]byte{0x80})
	assert.ErrorIs(t, err, ErrCorrupt)
}
