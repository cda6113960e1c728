package decimals

import (
	"fmt"
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
)

func TestFromUint128(t *testing.T) {
	t.Parallel()
	testcases := []struct {
		divisibility uint8
		value        uint128.Uint128
		expected     string
	}{
		{0, uint128.From64(1), "1"},
		{1, uint128.From64(1), "0.1"},
		{2, uint128.From64(1234), "12.34"},
		{18, uint128.From64(1), "0.000000000000000001"},
		{0, uint128.Max, "340282366920938463463374607431768211455"},
		{18, uint128.Max, "340282366920938463463.374607431768211455"},
		{38, uint128.Max, "3.40282366920938463463374607431768211455"},
	}
	for _, tc := range testcases {
		t.Run(fmt.Sprintf("%d_%s", tc.divisibility, tc.value), func(t *testing.T) {
			actual := FromUint128(tc.value, tc.divisibility)
			assert.Equal(t, tc.expected, actual.String())
		})
	}
}

func TestToUint128(t *testing.T) {
	t.Parallel()
	t.Run("round_trip", func(t *testing.T) {
		value, ok := ToUint128(MustFromString("12.34"), 2)
		assert.True(t, ok)
		assert.Equal(t, uint128.From64(1234), value)
	})
	t.Run("truncate", func(t *testing.T) {
		value, ok := ToUint128(MustFromString("1.999"), 2)
		assert.True(t, ok)
		assert.Equal(t, uint128.From64(199), value)
	})
	t.Run("negative", func(t *testing.T) {
		_, ok := ToUint128(MustFromString("-1"), 0)
		assert.False(t, ok)
	})
	t.Run("overflow", func(t *testing.T) {
		_, ok := ToUint128(MustFromString("340282366920938463463374607431768211456"), 0)
		assert.False(t, ok)
	})
}

func TestSatsToBTC(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "50", SatsToBTC(5_000_000_000).String())
	assert.Equal(t, "0.00000001", SatsToBTC(1).String())
	assert.Equal(t, "0.5 BTC", FormatSats(50_000_000))
}
