package ordinals

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Sat is the ordinal number of a satoshi, assigned in mining order.
type Sat uint64

const (
	// cycleEpochs is the number of halving epochs in one conjunction cycle.
	cycleEpochs = 6
	// maxEpochs is the first epoch with zero subsidy.
	maxEpochs = 33
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

// Subsidy is the new issuance of the block at height.
func Subsidy(params *chaincfg.Params, height uint64) uint64 {
	if height > uint64(^uint32(0)>>1) {
		return 0
	}
	return uint64(blockchain.CalcBlockSubsidy(int32(height), params))
}

func halvingInterval(params *chaincfg.Params) uint64 {
	return uint64(params.SubsidyReductionInterval)
}

func difficultyAdjustmentInterval(params *chaincfg.Params) uint64 {
	return uint64(params.TargetTimespan / params.TargetTimePerBlock)
}

// epochStartingSats returns the first sat of every epoch, plus the supply cap as the last element.
func epochStartingSats(params *chaincfg.Params) []uint64 {
	interval := halvingInterval(params)
	starts := make([]uint64, 0, maxEpochs+1)
	var sat uint64
	for epoch := uint64(0); epoch <= maxEpochs; epoch++ {
		starts = append(starts, sat)
		sat += Subsidy(params, epoch*interval) * interval
	}
	return starts
}

// FirstSatOfHeight is the first sat issued by the coinbase of the block at height.
func FirstSatOfHeight(params *chaincfg.Params, height uint64) Sat {
	interval := halvingInterval(params)
	starts := epochStartingSats(params)
	epoch := height / interval
	if epoch >= maxEpochs {
		return Sat(starts[maxEpochs])
	}
	return Sat(starts[epoch] + (height-epoch*interval)*Subsidy(params, height))
}

// Height is the height of the block whose coinbase issued the sat.
func (s Sat) Height(params *chaincfg.Params) uint64 {
	interval := halvingInterval(params)
	starts := epochStartingSats(params)
	epoch := uint64(0)
	for epoch+1 < uint64(len(starts)) && starts[epoch+1] <= uint64(s) {
		epoch++
	}
	subsidy := Subsidy(params, epoch*interval)
	if subsidy == 0 {
		return epoch * interval
	}
	return epoch*interval + (uint64(s)-starts[epoch])/subsidy
}

// Rarity classifies the sat by whether it is the first of its block, difficulty period, halving epoch or cycle.
func (s Sat) Rarity(params *chaincfg.Params) Rarity {
	height := s.Height(params)
	interval := halvingInterval(params)

	hour := height / (cycleEpochs * interval)
	minute := height % interval
	second := height % difficultyAdjustmentInterval(params)
	third := uint64(s) - uint64(FirstSatOfHeight(params, height))

	switch {
	case hour == 0 && minute == 0 && second == 0 && third == 0:
		return RarityMythic
	case minute == 0 && second == 0 && third == 0:
		return RarityLegendary
	case minute == 0 && third == 0:
		return RarityEpic
	case second == 0 && third == 0:
		return RarityRare
	case third == 0:
		return RarityUncommon
	default:
		return RarityCommon
	}
}

// Supply is the total number of sats that will ever be issued.
func Supply(params *chaincfg.Params) uint64 {
	return epochStartingSats(params)[maxEpochs]
}
