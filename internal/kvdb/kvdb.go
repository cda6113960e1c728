// Package kvdb is the ordered key-value storage underneath the index.
//
// Every backend provides point reads, ordered prefix iteration, read-only
// snapshots and atomic batches. One block's derived state is written as a
// single Batch, so a reader holding a Snapshot only ever observes fully
// committed blocks.
package kvdb

import (
	"context"
)

// Reader reads committed state.
type Reader interface {
	// Get returns the value of key, or errs.NotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Iterate calls fn for every key in r in key order until fn returns false or an error.
	// Key and value slices are only valid until fn returns.
	Iterate(ctx context.Context, r Range, fn func(key, value []byte) (bool, error)) error
}

// Snapshot is a consistent read-only view of the database.
type Snapshot interface {
	Reader
	Release()
}

type DB interface {
	Reader
	Snapshot(ctx context.Context) (Snapshot, error)
	// Write applies all operations of the batch atomically.
	Write(ctx context.Context, batch *Batch) error
	Close() error
}

// Range selects keys sharing Prefix.
// A non-nil Start begins iteration at Start inclusive: keys >= Start when iterating
// forward, keys <= Start when Reverse.
type Range struct {
	Prefix  []byte
	Start   []byte
	Reverse bool
}

// prefixLimit returns the smallest key greater than every key with prefix, or nil if there is none.
func prefixLimit(prefix []byte) []byte {
	limit := make([]byte, len(prefix))
	copy(limit, prefix)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] < 0xff {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}
