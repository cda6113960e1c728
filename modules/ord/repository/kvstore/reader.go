package kvstore

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/core/types"
	"github.com/gaze-network/ord-indexer/internal/kvdb"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
	"github.com/gaze-network/ord-indexer/modules/ord/ordinals"
	"github.com/gaze-network/ord-indexer/modules/ord/runes"
)

// getter is the read access shared by the staged repository and snapshots.
type getter interface {
	// get returns errs.NotFound if key does not exist.
	get(ctx context.Context, key []byte) ([]byte, error)
	iterate(ctx context.Context, rng kvdb.Range, fn func(key, value []byte) (bool, error)) error
}

type snapshotGetter struct {
	snapshot kvdb.Snapshot
}

func (s snapshotGetter) get(ctx context.Context, key []byte) ([]byte, error) {
	value, err := s.snapshot.Get(ctx, key)
	return value, errors.WithStack(err)
}

func (s snapshotGetter) iterate(ctx context.Context, rng kvdb.Range, fn func(key, value []byte) (bool, error)) error {
	return errors.WithStack(s.snapshot.Iterate(ctx, rng, fn))
}

type reader struct {
	getter getter
}

func (r reader) GetLatestBlock(ctx context.Context) (types.BlockHeader, error) {
	cursor, err := r.getter.get(ctx, keyCursor)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get cursor")
	}
	block, err := decodeIndexedBlock(cursor)
	if err != nil {
		return types.BlockHeader{}, errors.WithStack(err)
	}
	return block.BlockHeader(), nil
}

func (r reader) GetIndexedBlockByHeight(ctx context.Context, height int64) (*entity.IndexedBlock, error) {
	data, err := r.getter.get(ctx, blockKey(height))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get indexed block %d", height)
	}
	block, err := decodeIndexedBlock(data)
	return block, errors.WithStack(err)
}

// GetStats returns zero stats on a fresh database.
func (r reader) GetStats(ctx context.Context) (*entity.Stats, error) {
	data, err := r.getter.get(ctx, keyStats)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return &entity.Stats{}, nil
		}
		return nil, errors.Wrap(err, "failed to get stats")
	}
	stats, err := decodeStats(data)
	return stats, errors.WithStack(err)
}

func (r reader) GetOutputEntry(ctx context.Context, outPoint wire.OutPoint) (*entity.OutputEntry, error) {
	data, err := r.getter.get(ctx, outputKey(outPoint))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get output %s", outPoint)
	}
	entry, err := decodeOutputEntry(data)
	return entry, errors.WithStack(err)
}

// GetSatPoint finds the sat range with the greatest start not after sat.
func (r reader) GetSatPoint(ctx context.Context, sat ordinals.Sat) (ordinals.SatPoint, error) {
	var (
		location satRangeLocation
		start    uint64
		found    bool
	)
	err := r.getter.iterate(ctx, kvdb.Range{
		Prefix:  prefixSatRange,
		Start:   satRangeKey(uint64(sat)),
		Reverse: true,
	}, func(key, value []byte) (bool, error) {
		var err error
		location, err = decodeSatRangeLocation(value)
		if err != nil {
			return false, errors.WithStack(err)
		}
		start = beUint64(key[len(prefixSatRange):])
		found = true
		return false, nil
	})
	if err != nil {
		return ordinals.SatPoint{}, errors.Wrap(err, "failed to iterate sat ranges")
	}
	if !found || uint64(sat) >= location.End {
		return ordinals.SatPoint{}, errors.Wrapf(errs.NotFound, "sat %d is not in any unspent output", sat)
	}
	return ordinals.SatPoint{
		OutPoint: location.SatPoint.OutPoint,
		Offset:   location.SatPoint.Offset + uint64(sat) - start,
	}, nil
}

func (r reader) GetInscriptionEntryById(ctx context.Context, id ordinals.InscriptionId) (*entity.InscriptionEntry, error) {
	data, err := r.getter.get(ctx, inscriptionKey(id))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get inscription %s", id)
	}
	entry, err := decodeInscriptionEntry(data)
	return entry, errors.WithStack(err)
}

func (r reader) GetInscriptionEntryBySequenceNumber(ctx context.Context, sequenceNumber uint64) (*entity.InscriptionEntry, error) {
	data, err := r.getter.get(ctx, sequenceKey(sequenceNumber))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get inscription with sequence number %d", sequenceNumber)
	}
	return r.GetInscriptionEntryById(ctx, parseInscriptionIdBytes(data))
}

func (r reader) GetInscriptionContent(ctx context.Context, id ordinals.InscriptionId) ([]byte, error) {
	data, err := r.getter.get(ctx, contentKey(id))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get content of inscription %s", id)
	}
	return data, nil
}

func (r reader) GetLatestInscriptionEntries(ctx context.Context, limit int, offset int) ([]*entity.InscriptionEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids := make([]ordinals.InscriptionId, 0, limit)
	skipped := 0
	err := r.getter.iterate(ctx, kvdb.Range{Prefix: prefixSequence, Reverse: true}, func(_, value []byte) (bool, error) {
		if skipped < offset {
			skipped++
			return true, nil
		}
		ids = append(ids, parseInscriptionIdBytes(value))
		return len(ids) < limit, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate inscriptions")
	}
	entries := make([]*entity.InscriptionEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := r.GetInscriptionEntryById(ctx, id)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r reader) GetInscriptionIdsBySat(ctx context.Context, sat ordinals.Sat) ([]ordinals.InscriptionId, error) {
	ids := make([]ordinals.InscriptionId, 0)
	err := r.getter.iterate(ctx, kvdb.Range{Prefix: satInscriptionPrefix(sat)}, func(_, value []byte) (bool, error) {
		ids = append(ids, parseInscriptionIdBytes(value))
		return true, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to iterate inscriptions on sat %d", sat)
	}
	return ids, nil
}

func (r reader) GetRuneEntryByRuneId(ctx context.Context, runeId runes.RuneId) (*runes.RuneEntry, error) {
	data, err := r.getter.get(ctx, runeEntryKey(runeId))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get rune entry %s", runeId)
	}
	entry, err := decodeRuneEntry(data)
	return entry, errors.WithStack(err)
}

func (r reader) GetRuneIdFromRune(ctx context.Context, rune runes.Rune) (runes.RuneId, error) {
	data, err := r.getter.get(ctx, runeKey(rune))
	if err != nil {
		return runes.RuneId{}, errors.Wrapf(err, "failed to get rune id of %s", rune)
	}
	if len(data) != 12 {
		return runes.RuneId{}, errors.Wrapf(errs.Corrupted, "rune id of %s has %d bytes", rune, len(data))
	}
	return parseRuneIdBytes(data), nil
}
