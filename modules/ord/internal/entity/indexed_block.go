package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gaze-network/ord-indexer/core/types"
)

type IndexedBlock struct {
	Height    int64
	Hash      chainhash.Hash
	PrevBlock chainhash.Hash
	Timestamp time.Time
}

func (b IndexedBlock) BlockHeader() types.BlockHeader {
	return types.BlockHeader{
		Hash:      b.Hash,
		Height:    b.Height,
		PrevBlock: b.PrevBlock,
		Timestamp: b.Timestamp,
	}
}
