package entity

import (
	"slices"

	"github.com/btcsuite/btcd/txscript"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
	"github.com/gaze-network/uint128"
)

// OutputEntry is everything the index knows about one transaction output.
// Spent entries are kept with their sat ranges as history.
type OutputEntry struct {
	Value       uint64
	PkScript    []byte
	Height      uint64
	Spent       bool
	SpentHeight uint64
	SatRanges   ordinals.SatRanges
	// Inscriptions are sorted by offset, then sequence number.
	Inscriptions []InscriptionLocation
	// Runes are sorted by rune id.
	Runes []RuneBalance
}

type InscriptionLocation struct {
	Offset         uint64
	SequenceNumber uint64
	InscriptionId  ordinals.InscriptionId
}

type RuneBalance struct {
	RuneId runes.RuneId
	Amount uint128.Uint128
}

func (o *OutputEntry) IsOpReturn() bool {
	return len(o.PkScript) > 0 && o.PkScript[0] == txscript.OP_RETURN
}

func (o *OutputEntry) AddInscription(location InscriptionLocation) {
	o.Inscriptions = append(o.Inscriptions, location)
	SortInscriptionLocations(o.Inscriptions)
}

func SortInscriptionLocations(locations []InscriptionLocation) {
	slices.SortStableFunc(locations, func(a, b InscriptionLocation) int {
		if a.Offset != b.Offset {
			if a.Offset < b.Offset {
				return -1
			}
			return 1
		}
		switch {
		case a.SequenceNumber < b.SequenceNumber:
			return -1
		case a.SequenceNumber > b.SequenceNumber:
			return 1
		}
		return 0
	})
}

// RuneBalancesFromMap flattens balances into id order, dropping zero amounts.
func RuneBalancesFromMap(balances map[runes.RuneId]uint128.Uint128) []RuneBalance {
	result := make([]RuneBalance, 0, len(balances))
	for runeId, amount := range balances {
		if amount.IsZero() {
			continue
		}
		result = append(result, RuneBalance{RuneId: runeId, Amount: amount})
	}
	slices.SortFunc(result, func(a, b RuneBalance) int {
		return a.RuneId.Cmp(b.RuneId)
	})
	return result
}
