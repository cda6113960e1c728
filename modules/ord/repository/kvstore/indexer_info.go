package kvstore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/internal/kvdb"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/entity"
)

func (r *Repository) GetIndexerState(ctx context.Context) (entity.IndexerState, error) {
	data, err := r.db.Get(ctx, keyIndexerState)
	if err != nil {
		return entity.IndexerState{}, errors.Wrap(err, "failed to get indexer state")
	}
	state, err := decodeIndexerState(data)
	return state, errors.WithStack(err)
}

func (r *Repository) SetIndexerState(ctx context.Context, state entity.IndexerState) error {
	batch := kvdb.NewBatch()
	batch.Put(keyIndexerState, encodeIndexerState(state))
	if err := r.db.Write(ctx, batch); err != nil {
		return errors.Wrap(err, "failed to set indexer state")
	}
	return nil
}
