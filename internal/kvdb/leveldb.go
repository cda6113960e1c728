package kvdb

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ DB = (*LevelDB)(nil)

type LevelDB struct {
	db   *leveldb.DB
	sync bool
}

// OpenLevelDB opens or creates the database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		ErrorIfMissing: false,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "can't open leveldb at %s", path)
	}
	return &LevelDB{db: db, sync: true}, nil
}

// NewMemLevelDB returns a database kept in memory.
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "can't open in-memory leveldb")
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(_ context.Context, key []byte) ([]byte, error) {
	return levelGet(l.db.Get, key)
}

func (l *LevelDB) Iterate(ctx context.Context, r Range, fn func(key, value []byte) (bool, error)) error {
	return levelIterate(ctx, l.db.NewIterator(levelRange(r.Prefix), nil), r, fn)
}

func (l *LevelDB) Snapshot(_ context.Context) (Snapshot, error) {
	snapshot, err := l.db.GetSnapshot()
	if err != nil {
		return nil, errors.Wrap(err, "can't get leveldb snapshot")
	}
	return &levelSnapshot{snapshot: snapshot}, nil
}

func (l *LevelDB) Write(_ context.Context, batch *Batch) error {
	b := new(leveldb.Batch)
	for _, op := range batch.Ops() {
		if op.Delete {
			b.Delete(op.Key)
		} else {
			b.Put(op.Key, op.Value)
		}
	}
	if err := l.db.Write(b, &opt.WriteOptions{Sync: l.sync}); err != nil {
		return errors.Wrap(err, "can't write leveldb batch")
	}
	return nil
}

func (l *LevelDB) Close() error {
	return errors.WithStack(l.db.Close())
}

type levelSnapshot struct {
	snapshot *leveldb.Snapshot
}

func (s *levelSnapshot) Get(_ context.Context, key []byte) ([]byte, error) {
	return levelGet(s.snapshot.Get, key)
}

func (s *levelSnapshot) Iterate(ctx context.Context, r Range, fn func(key, value []byte) (bool, error)) error {
	return levelIterate(ctx, s.snapshot.NewIterator(levelRange(r.Prefix), nil), r, fn)
}

func (s *levelSnapshot) Release() {
	s.snapshot.Release()
}

func levelGet(get func([]byte, *opt.ReadOptions) ([]byte, error), key []byte) ([]byte, error) {
	value, err := get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "can't read leveldb")
	}
	return value, nil
}

func levelRange(prefix []byte) *util.Range {
	if len(prefix) == 0 {
		return nil
	}
	return util.BytesPrefix(prefix)
}

func levelIterate(ctx context.Context, iter iterator.Iterator, r Range, fn func(key, value []byte) (bool, error)) error {
	defer iter.Release()

	var ok bool
	switch {
	case !r.Reverse && r.Start != nil:
		ok = iter.Seek(r.Start)
	case !r.Reverse:
		ok = iter.First()
	case r.Start != nil:
		ok = iter.Seek(r.Start)
		if !ok {
			ok = iter.Last()
		} else if bytes.Compare(iter.Key(), r.Start) > 0 {
			ok = iter.Prev()
		}
	default:
		ok = iter.Last()
	}

	for ; ok; ok = next(iter, r.Reverse) {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		more, err := fn(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return errors.Wrap(iter.Error(), "leveldb iterator failed")
}

func next(iter iterator.Iterator, reverse bool) bool {
	if reverse {
		return iter.Prev()
	}
	return iter.Next()
}
