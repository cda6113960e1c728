package kvstore

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/internal/kvdb"
	"github.com/gaze-network/ord-indexer/pkg/logger"
	"github.com/gaze-network/ord-indexer/pkg/logger/slogx"
)

func (r *Repository) Commit(ctx context.Context, height int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.stage))
	for key := range r.stage {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	batch := kvdb.NewBatch()
	undo := make([]undoEntry, 0, len(keys))
	for _, key := range keys {
		if height >= 0 {
			prior, err := r.getCommitted(ctx, []byte(key))
			if err != nil {
				return errors.Wrapf(err, "failed to read prior value of key %x", key)
			}
			undo = append(undo, undoEntry{Key: []byte(key), Value: prior})
		}
		if value := r.stage[key]; value != nil {
			batch.Put([]byte(key), value)
		} else {
			batch.Delete([]byte(key))
		}
	}
	if height >= 0 {
		batch.Put(undoKey(height), encodeUndoRecord(undo))
		if r.undoRetention > 0 && height-r.undoRetention >= 0 {
			batch.Delete(undoKey(height - r.undoRetention))
		}
	}

	if err := r.db.Write(ctx, batch); err != nil {
		return errors.Wrapf(err, "failed to commit block %d", height)
	}

	for _, key := range keys {
		r.cache.Add(key, r.stage[key])
	}
	clear(r.stage)
	logger.DebugContext(ctx, "[OrdRepository] committed",
		slogx.Int64("height", height),
		slogx.Int("keys", len(keys)),
	)
	return nil
}

func (r *Repository) Discard() {
	r.mu.Lock()
	clear(r.stage)
	r.mu.Unlock()
}

func (r *Repository) Revert(ctx context.Context, height int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stage) > 0 {
		return errors.Wrap(errs.ConflictSetting, "cannot revert with uncommitted changes")
	}

	data, err := r.db.Get(ctx, undoKey(height))
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errors.Wrapf(errs.Corrupted, "no undo record for block %d", height)
		}
		return errors.Wrapf(err, "failed to read undo record of block %d", height)
	}
	entries, err := decodeUndoRecord(data)
	if err != nil {
		return errors.Wrapf(err, "undo record of block %d", height)
	}

	batch := kvdb.NewBatch()
	for _, entry := range entries {
		if entry.Value != nil {
			batch.Put(entry.Key, entry.Value)
		} else {
			batch.Delete(entry.Key)
		}
	}
	batch.Delete(undoKey(height))
	if err := r.db.Write(ctx, batch); err != nil {
		return errors.Wrapf(err, "failed to revert block %d", height)
	}
	r.cache.Purge()
	logger.InfoContext(ctx, "[OrdRepository] reverted block",
		slogx.Int64("height", height),
		slogx.Int("keys", len(entries)),
	)
	return nil
}
