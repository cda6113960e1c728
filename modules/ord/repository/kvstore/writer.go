package kvstore

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
)

func (r *Repository) PutOutputEntry(_ context.Context, outPoint wire.OutPoint, entry *entity.OutputEntry) error {
	r.put(outputKey(outPoint), encodeOutputEntry(entry))
	return nil
}

func (r *Repository) PutSatRange(_ context.Context, satRange ordinals.SatRange, location ordinals.SatPoint) error {
	r.put(satRangeKey(satRange.Start), encodeSatRangeLocation(satRangeLocation{End: satRange.End, SatPoint: location}))
	return nil
}

func (r *Repository) DeleteSatRange(_ context.Context, satRange ordinals.SatRange) error {
	r.delete(satRangeKey(satRange.Start))
	return nil
}

func (r *Repository) PutInscriptionEntry(_ context.Context, entry *entity.InscriptionEntry) error {
	r.put(inscriptionKey(entry.Id), encodeInscriptionEntry(entry))
	r.put(sequenceKey(entry.SequenceNumber), inscriptionIdBytes(entry.Id))
	return nil
}

func (r *Repository) PutInscriptionContent(_ context.Context, id ordinals.InscriptionId, body []byte) error {
	r.put(contentKey(id), body)
	return nil
}

func (r *Repository) PutSatInscription(_ context.Context, sat ordinals.Sat, sequenceNumber uint64, id ordinals.InscriptionId) error {
	r.put(satInscriptionKey(sat, sequenceNumber), inscriptionIdBytes(id))
	return nil
}

func (r *Repository) PutRuneEntry(_ context.Context, entry *runes.RuneEntry) error {
	r.put(runeEntryKey(entry.RuneId), encodeRuneEntry(entry))
	r.put(runeKey(entry.SpacedRune.Rune), runeIdBytes(entry.RuneId))
	return nil
}

func (r *Repository) PutStats(_ context.Context, stats *entity.Stats) error {
	r.put(keyStats, encodeStats(stats))
	return nil
}

func (r *Repository) PutIndexedBlock(_ context.Context, block *entity.IndexedBlock) error {
	data := encodeIndexedBlock(block)
	r.put(blockKey(block.Height), data)
	r.put(keyCursor, data)
	return nil
}
