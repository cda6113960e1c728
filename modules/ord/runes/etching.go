package runes

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

const (
	maxDivisibility uint8  = 38
	maxSpacers      uint32 = 0b00000111_11111111_11111111_11111111
)

// Terms are the open-mint rules of a rune. A nil Terms means the rune cannot be minted.
type Terms struct {
	// Amount minted per mint transaction
	Amount *uint128.Uint128
	// Maximum number of mints
	Cap *uint128.Uint128
	// Absolute mint window [HeightStart, HeightEnd)
	HeightStart *uint64
	HeightEnd   *uint64
	// Mint window relative to the etching block. Combined with the absolute window the narrower one wins.
	OffsetStart *uint64
	OffsetEnd   *uint64
}

type Etching struct {
	Divisibility *uint8
	Premine      *uint128.Uint128
	// Rune is nil when the etcher lets the indexer assign a reserved name.
	Rune    *Rune
	Spacers *uint32
	Symbol  *rune
	Terms   *Terms
	Turbo   bool
}

func supply(premine uint128.Uint128, terms *Terms) (uint128.Uint128, error) {
	var amount, cap uint128.Uint128
	if terms != nil {
		amount = lo.FromPtr(terms.Amount)
		cap = lo.FromPtr(terms.Cap)
	}
	result, overflow := amount.MulOverflow(cap)
	if overflow {
		return uint128.Uint128{}, errors.WithStack(errs.OverflowUint128)
	}
	result, overflow = result.AddOverflow(premine)
	if overflow {
		return uint128.Uint128{}, errors.WithStack(errs.OverflowUint128)
	}
	return result, nil
}

// Supply is premine + amount * cap.
func (e Etching) Supply() (uint128.Uint128, error) {
	return supply(lo.FromPtr(e.Premine), e.Terms)
}
