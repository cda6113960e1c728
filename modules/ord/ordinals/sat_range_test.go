package ordinals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSatPoolTake(t *testing.T) {
	t.Run("split_single_range", func(t *testing.T) {
		pool := NewSatPool(SatRange{1000, 1010})
		assert.Equal(t, SatRanges{{1000, 1003}}, pool.Take(3))
		assert.Equal(t, SatRanges{{1003, 1010}}, pool.Take(7))
		assert.True(t, pool.IsEmpty())
	})
	t.Run("take_across_ranges", func(t *testing.T) {
		pool := NewSatPool(SatRange{0, 5}, SatRange{100, 105}, SatRange{50, 51})
		assert.Equal(t, SatRanges{{0, 5}, {100, 102}}, pool.Take(7))
		assert.Equal(t, SatRanges{{102, 105}, {50, 51}}, pool.Remaining())
		assert.Equal(t, uint64(4), pool.Count())
	})
	t.Run("zero_value_takes_nothing", func(t *testing.T) {
		pool := NewSatPool(SatRange{0, 5})
		assert.Empty(t, pool.Take(0))
		assert.Equal(t, uint64(5), pool.Count())
	})
	t.Run("empty_pool_takes_nothing", func(t *testing.T) {
		pool := NewSatPool()
		assert.Empty(t, pool.Take(10))
		assert.True(t, pool.IsEmpty())
	})
	t.Run("short_pool_returns_what_is_left", func(t *testing.T) {
		pool := NewSatPool(SatRange{0, 5})
		taken := pool.Take(10)
		assert.Equal(t, SatRanges{{0, 5}}, taken)
		assert.Equal(t, uint64(5), taken.Count())
	})
	t.Run("empty_ranges_are_dropped", func(t *testing.T) {
		pool := NewSatPool(SatRange{5, 5}, SatRange{7, 8})
		assert.Equal(t, SatRanges{{7, 8}}, pool.Drain())
		assert.True(t, pool.IsEmpty())
	})
}

func TestSatPoolConservation(t *testing.T) {
	inputs := SatRanges{{0, 13}, {40, 41}, {1000, 1100}, {7, 9}}
	outputs := []uint64{0, 20, 1, 50, 30}

	pool := NewSatPool(inputs...)
	var assigned SatRanges
	for _, value := range outputs {
		taken := pool.Take(value)
		assert.Equal(t, value, taken.Count())
		assigned = append(assigned, taken...)
	}
	fee := pool.Drain()
	assert.Equal(t, inputs.Count(), assigned.Count()+fee.Count())

	seen := make(map[uint64]struct{})
	for _, satRange := range append(assigned, fee...) {
		for sat := satRange.Start; sat < satRange.End; sat++ {
			_, dup := seen[sat]
			assert.False(t, dup, "sat %d assigned twice", sat)
			seen[sat] = struct{}{}
		}
	}
}

func TestSatRangesSatAt(t *testing.T) {
	ranges := SatRanges{{10, 12}, {100, 103}}

	sat, ok := ranges.SatAt(0)
	assert.True(t, ok)
	assert.Equal(t, Sat(10), sat)

	sat, ok = ranges.SatAt(2)
	assert.True(t, ok)
	assert.Equal(t, Sat(100), sat)

	sat, ok = ranges.SatAt(4)
	assert.True(t, ok)
	assert.Equal(t, Sat(102), sat)

	_, ok = ranges.SatAt(5)
	assert.False(t, ok)
}
