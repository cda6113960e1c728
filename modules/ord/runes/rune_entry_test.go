package runes

import (
	"math"
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestRuneEntryMintableAmount(t *testing.T) {
	entry := RuneEntry{
		RuneId: RuneId{BlockHeight: 100},
		Terms: &Terms{
			Amount:      lo.ToPtr(uint128.From64(1000)),
			Cap:         lo.ToPtr(uint128.From64(2)),
			HeightStart: lo.ToPtr(uint64(105)),
			HeightEnd:   lo.ToPtr(uint64(200)),
			OffsetStart: lo.ToPtr(uint64(3)),
			OffsetEnd:   lo.ToPtr(uint64(10)),
		},
	}
	assert.Equal(t, uint64(105), entry.MintStart())
	assert.Equal(t, uint64(110), entry.MintEnd())

	_, err := entry.MintableAmount(104)
	assert.ErrorIs(t, err, ErrMintBeforeStart)

	amount, err := entry.MintableAmount(105)
	assert.NoError(t, err)
	assert.Equal(t, uint128.From64(1000), amount)

	_, err = entry.MintableAmount(109)
	assert.NoError(t, err)

	// the end height is exclusive
	_, err = entry.MintableAmount(110)
	assert.ErrorIs(t, err, ErrMintAfterEnd)

	entry.Mints = uint128.From64(2)
	_, err = entry.MintableAmount(106)
	assert.ErrorIs(t, err, ErrMintCapReached)

	entry.Terms = nil
	_, err = entry.MintableAmount(106)
	assert.ErrorIs(t, err, ErrUnmintable)
}

func TestRuneEntryOpenEndedTerms(t *testing.T) {
	entry := RuneEntry{
		RuneId: RuneId{BlockHeight: math.MaxUint64 - 1},
		Terms: &Terms{
			Amount:    lo.ToPtr(uint128.From64(1)),
			Cap:       lo.ToPtr(uint128.Max),
			OffsetEnd: lo.ToPtr(uint64(10)),
		},
	}
	assert.Equal(t, uint64(math.MaxUint64), entry.MintEnd())
	assert.Equal(t, uint64(0), entry.MintStart())
}

func TestRuneEntrySupply(t *testing.T) {
	entry := RuneEntry{
		Premine: uint128.From64(50),
		Mints:   uint128.From64(3),
		Terms: &Terms{
			Amount: lo.ToPtr(uint128.From64(10)),
			Cap:    lo.ToPtr(uint128.From64(5)),
		},
	}
	supply, err := entry.Supply()
	assert.NoError(t, err)
	assert.Equal(t, uint128.From64(100), supply)

	minted, err := entry.MintedAmount()
	assert.NoError(t, err)
	assert.Equal(t, uint128.From64(80), minted)

	entry.Terms.Amount = lo.ToPtr(uint128.Max)
	_, err = entry.Supply()
	assert.Error(t, err)
}
