// Package kvstore implements the ord data gateways on top of an ordered key-value store.
package kvstore

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/internal/kvdb"
	"github.com/gaze-network/ord-indexer/modules/ord/datagateway"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 100_000

var (
	_ datagateway.OrdDataGateway         = (*Repository)(nil)
	_ datagateway.IndexerInfoDataGateway = (*Repository)(nil)
)

// Repository stages the writes of one block in memory and commits them together
// with the prior values of every touched key, so a block can be reverted later.
type Repository struct {
	reader
	db kvdb.DB
	// cache holds committed values only. A nil value caches a missing key.
	cache *lru.Cache[string, []byte]
	// undoRetention is how many undo records are kept, 0 keeps all of them.
	undoRetention int64

	mu sync.RWMutex
	// stage maps key to new value, a nil value deletes the key.
	stage map[string][]byte
}

func New(db kvdb.DB, cacheSize int, undoRetention int64) (*Repository, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cache")
	}
	r := &Repository{
		db:            db,
		cache:         cache,
		undoRetention: undoRetention,
		stage:         make(map[string][]byte),
	}
	r.reader = reader{getter: r}
	return r, nil
}

// get reads key from the stage, then the cache, then the database.
func (r *Repository) get(ctx context.Context, key []byte) ([]byte, error) {
	r.mu.RLock()
	value, staged := r.stage[string(key)]
	r.mu.RUnlock()
	if staged {
		if value == nil {
			return nil, errors.WithStack(errs.NotFound)
		}
		return value, nil
	}
	value, err := r.getCommitted(ctx, key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errors.WithStack(errs.NotFound)
	}
	return value, nil
}

// getCommitted returns the committed value of key, or nil if it does not exist.
func (r *Repository) getCommitted(ctx context.Context, key []byte) ([]byte, error) {
	if value, ok := r.cache.Get(string(key)); ok {
		return value, nil
	}
	value, err := r.db.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return nil, errors.Wrap(err, "failed to read key")
		}
		value = nil
	}
	r.cache.Add(string(key), value)
	return value, nil
}

// iterate sees committed state only.
func (r *Repository) iterate(ctx context.Context, rng kvdb.Range, fn func(key, value []byte) (bool, error)) error {
	return errors.WithStack(r.db.Iterate(ctx, rng, fn))
}

func (r *Repository) put(key, value []byte) {
	if value == nil {
		value = []byte{}
	}
	r.mu.Lock()
	r.stage[string(key)] = value
	r.mu.Unlock()
}

func (r *Repository) delete(key []byte) {
	r.mu.Lock()
	r.stage[string(key)] = nil
	r.mu.Unlock()
}

func (r *Repository) Snapshot(ctx context.Context) (datagateway.OrdSnapshot, error) {
	snapshot, err := r.db.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to take snapshot")
	}
	return &Snapshot{reader: reader{getter: snapshotGetter{snapshot}}, snapshot: snapshot}, nil
}

// Close discards anything staged. The underlying database is owned by the caller.
func (r *Repository) Close() {
	r.Discard()
	r.cache.Purge()
}
