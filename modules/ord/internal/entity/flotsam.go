package entity

import (
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
)

type OriginOld struct {
	OldSatPoint    ordinals.SatPoint
	SequenceNumber uint64
}

type OriginNew struct {
	Cursed        bool
	Fee           uint64
	Parents       []ordinals.InscriptionId
	Pointer       *uint64
	Reinscription bool
	Unbound       bool
	Vindicated    bool
	Inscription   ordinals.Inscription
}

// Flotsam is an inscription floating through a transaction, waiting to land on an output.
type Flotsam struct {
	Offset        uint64
	InscriptionId ordinals.InscriptionId
	OriginOld     *OriginOld // OriginOld and OriginNew are mutually exclusive
	OriginNew     *OriginNew // OriginOld and OriginNew are mutually exclusive
}
