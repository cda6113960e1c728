package entity

import (
	"time"

	"github.com/gaze-network/ord-indexer/common"
)

type IndexerState struct {
	CreatedAt         time.Time
	ClientVersion     string
	DBVersion         int32
	Network           common.Network
	IndexRunes        bool
	IndexInscriptions bool
}
