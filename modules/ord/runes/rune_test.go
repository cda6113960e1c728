package runes

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
)

func TestRuneString(t *testing.T) {
	test := func(r Rune, name string) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, name, r.String())

			parsed, err := NewRuneFromString(name)
			assert.NoError(t, err)
			assert.Equal(t, r, parsed)
		})
	}

	test(NewRune(0), "A")
	test(NewRune(1), "B")
	test(NewRune(25), "Z")
	test(NewRune(26), "AA")
	test(NewRune(27), "AB")
	test(NewRune(51), "AZ")
	test(NewRune(52), "BA")
	test(NewRuneFromUint128(utils.Must(uint128.FromString("2055900680524219742"))), "UNCOMMONGOODS")
	test(NewRuneFromUint128(uint128.Max.Sub64(1)), "BCGDENLQRQWDSLRUGSNLBTMFIJAU")
	test(NewRuneFromUint128(uint128.Max), "BCGDENLQRQWDSLRUGSNLBTMFIJAV")
}

func TestNewRuneFromStringError(t *testing.T) {
	_, err := NewRuneFromString("a")
	assert.ErrorIs(t, err, ErrInvalidBase26)

	_, err = NewRuneFromString("")
	assert.ErrorIs(t, err, ErrInvalidBase26)

	_, err = NewRuneFromString("BCGDENLQRQWDSLRUGSNLBTMFIJAW")
	assert.Error(t, err)
}

func TestMinimumRuneAtHeight(t *testing.T) {
	test := func(network common.Network, height uint64, name string) {
		t.Run(fmt.Sprintf("%s_%d", network, height), func(t *testing.T) {
			t.Parallel()
			expected := utils.Must(NewRuneFromString(name))
			assert.Equal(t, expected, MinimumRuneAtHeight(network, height))
		})
	}

	start := FirstRuneHeight(common.NetworkMainnet)
	end := start + SubsidyHalvingInterval
	interval := uint64(unlockInterval)

	test(common.NetworkMainnet, 0, "AAAAAAAAAAAAA")
	test(common.NetworkMainnet, start-1, "AAAAAAAAAAAAA")
	test(common.NetworkMainnet, start, "ZZYZXBRKWXVA")
	test(common.NetworkMainnet, start+1, "ZZXZUDIVTVQA")
	test(common.NetworkMainnet, start+interval-1, "AAAAAAAAAAAA")
	test(common.NetworkMainnet, start+interval, "ZZYZXBRKWXV")
	test(common.NetworkMainnet, start+interval*9, "ZZZ")
	test(common.NetworkMainnet, start+interval*10+interval/2, "NA")
	test(common.NetworkMainnet, start+interval*11+interval/2, "N")
	test(common.NetworkMainnet, end-2, "B")
	test(common.NetworkMainnet, end-1, "A")
	test(common.NetworkMainnet, math.MaxUint32, "A")

	testnetStart := FirstRuneHeight(common.NetworkTestnet)
	test(common.NetworkTestnet, testnetStart-1, "AAAAAAAAAAAAA")
	test(common.NetworkTestnet, testnetStart, "ZZYZXBRKWXVA")
}

func TestFirstRuneHeight(t *testing.T) {
	assert.Equal(t, uint64(840_000), FirstRuneHeight(common.NetworkMainnet))
	assert.Equal(t, uint64(2_520_000), FirstRuneHeight(common.NetworkTestnet))
	assert.Equal(t, uint64(0), FirstRuneHeight(common.NetworkRegtest))
}

func TestUnlockSteps(t *testing.T) {
	for i := range unlockSteps {
		assert.Equal(t, strings.Repeat("A", i+1), Rune(unlockSteps[i]).String())
	}
}

func TestRuneIsReserved(t *testing.T) {
	test := func(name string, expected bool) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, utils.Must(NewRuneFromString(name)).IsReserved())
		})
	}

	test("A", false)
	test("ZZZZZZZZZZZZZZZZZZZZZZZZZZ", false)
	test("AAAAAAAAAAAAAAAAAAAAAAAAAAA", true)
	test("AAAAAAAAAAAAAAAAAAAAAAAAAAB", true)
	test("BCGDENLQRQWDSLRUGSNLBTMFIJAV", true)
}

func TestNewReservedRune(t *testing.T) {
	assert.Equal(t, reservedRune, NewReservedRune(0, 0))
	assert.Equal(t, Rune(reservedRune.Uint128().Add64(1)), NewReservedRune(0, 1))
	assert.Equal(t, Rune(reservedRune.Uint128().Add(uint128.From64(1).Lsh(32))), NewReservedRune(1, 0))
	assert.Equal(t,
		Rune(reservedRune.Uint128().Add(uint128.From64(2).Lsh(32).Add64(3))),
		NewReservedRune(2, 3),
	)
}

func TestRuneCommitment(t *testing.T) {
	test := func(r Rune, expected []byte) {
		t.Run(r.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, r.Commitment())
		})
	}

	test(NewRune(0), []byte{})
	test(NewRune(1), []byte{1})
	test(NewRune(255), []byte{255})
	test(NewRune(256), []byte{0, 1})
	test(NewRune(65535), []byte{255, 255})
	test(NewRune(65536), []byte{0, 0, 1})
}

func TestRuneJSON(t *testing.T) {
	data, err := NewRune(5).MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, []byte(`"F"`), data)

	var r Rune
	assert.NoError(t, r.UnmarshalJSON([]byte(`"F"`)))
	assert.Equal(t, NewRune(5), r)
	assert.Error(t, r.UnmarshalJSON([]byte(`1`)))
}
