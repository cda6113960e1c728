package runes

import (
	"math"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/uint128"
	"github.com/samber/lo"
)

// RuneEntry is the ledger state of an etched rune.
type RuneEntry struct {
	RuneId       RuneId
	Number       uint64
	Divisibility uint8
	Premine      uint128.Uint128
	SpacedRune   SpacedRune
	Symbol       rune
	Terms        *Terms
	Turbo        bool
	Mints        uint128.Uint128
	Burned       uint128.Uint128
	EtchingBlock uint64
	EtchingTx    chainhash.Hash
	EtchedAt     time.Time
}

var (
	ErrUnmintable      = errors.New("rune is not mintable")
	ErrMintCapReached  = errors.New("rune mint cap reached")
	ErrMintBeforeStart = errors.New("rune minting has not started")
	ErrMintAfterEnd    = errors.New("rune minting has ended")
)

// MintableAmount returns the amount a mint at height would receive, or why it cannot happen.
func (e *RuneEntry) MintableAmount(height uint64) (uint128.Uint128, error) {
	if e.Terms == nil {
		return uint128.Uint128{}, errors.WithStack(ErrUnmintable)
	}
	if height < e.MintStart() {
		return uint128.Uint128{}, errors.WithStack(ErrMintBeforeStart)
	}
	if height >= e.MintEnd() {
		return uint128.Uint128{}, errors.WithStack(ErrMintAfterEnd)
	}
	if e.Mints.Cmp(lo.FromPtr(e.Terms.Cap)) >= 0 {
		return uint128.Uint128{}, errors.WithStack(ErrMintCapReached)
	}
	return lo.FromPtr(e.Terms.Amount), nil
}

// MintStart is the first height at which minting is open.
func (e *RuneEntry) MintStart() uint64 {
	if e.Terms == nil {
		return 0
	}
	var relative, absolute uint64
	if e.Terms.OffsetStart != nil {
		relative = saturatingAdd(e.RuneId.BlockHeight, *e.Terms.OffsetStart)
	}
	if e.Terms.HeightStart != nil {
		absolute = *e.Terms.HeightStart
	}
	return max(relative, absolute)
}

// MintEnd is the first height at which minting is closed; math.MaxUint64 if the window is open ended.
func (e *RuneEntry) MintEnd() uint64 {
	if e.Terms == nil {
		return math.MaxUint64
	}
	var relative, absolute uint64 = math.MaxUint64, math.MaxUint64
	if e.Terms.OffsetEnd != nil {
		relative = saturatingAdd(e.RuneId.BlockHeight, *e.Terms.OffsetEnd)
	}
	if e.Terms.HeightEnd != nil {
		absolute = *e.Terms.HeightEnd
	}
	return min(relative, absolute)
}

func (e RuneEntry) Supply() (uint128.Uint128, error) {
	return supply(e.Premine, e.Terms)
}

// MintedAmount is premine + mints * amount.
func (e RuneEntry) MintedAmount() (uint128.Uint128, error) {
	var amount uint128.Uint128
	if e.Terms != nil {
		amount = lo.FromPtr(e.Terms.Amount)
	}
	minted, overflow := e.Mints.MulOverflow(amount)
	if overflow {
		return uint128.Uint128{}, errors.WithStack(errs.OverflowUint128)
	}
	minted, overflow = minted.AddOverflow(e.Premine)
	if overflow {
		return uint128.Uint128{}, errors.WithStack(errs.OverflowUint128)
	}
	return minted, nil
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
