package entity

import (
	"time"

	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
)

type InscriptionEntry struct {
	Id ordinals.InscriptionId
	// Number is negative for cursed inscriptions.
	Number         int64
	SequenceNumber uint64
	Charms         Charms
	Fee            uint64
	Height         uint64
	Timestamp      time.Time
	// Sat is nil for unbound inscriptions.
	Sat             *ordinals.Sat
	Parents         []ordinals.InscriptionId
	Delegate        *ordinals.InscriptionId
	Pointer         *uint64
	ContentType     string
	ContentEncoding string
	Metaprotocol    string
	ContentLength   uint64
	// Location is the current sat point. It moves every time the bearing output is spent.
	Location ordinals.SatPoint
}

func (e *InscriptionEntry) IsCursed() bool {
	return e.Number < 0
}
