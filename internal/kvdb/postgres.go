package kvdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/ord-indexer/common/errs"
	"github.com/gaze-network/ord-indexer/internal/postgres"
	"github.com/jackc/pgx/v5"
)

var _ DB = (*PostgresDB)(nil)

// PostgresDB stores keys in a single bytea-keyed table, bytea ordering is bytewise like leveldb.
// The table is created by the migrations of the module that owns it.
type PostgresDB struct {
	db    postgres.DB
	table string
}

func NewPostgresDB(db postgres.DB, table string) *PostgresDB {
	return &PostgresDB{db: db, table: pgx.Identifier{table}.Sanitize()}
}

func (p *PostgresDB) Get(ctx context.Context, key []byte) ([]byte, error) {
	return pgGet(ctx, p.db, p.table, key)
}

func (p *PostgresDB) Iterate(ctx context.Context, r Range, fn func(key, value []byte) (bool, error)) error {
	return pgIterate(ctx, p.db, p.table, r, fn)
}

// Snapshot opens a read-only repeatable read transaction, it is released by rolling back.
func (p *PostgresDB) Snapshot(ctx context.Context) (Snapshot, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't begin snapshot transaction")
	}
	return &pgSnapshot{tx: tx, table: p.table}, nil
}

func (p *PostgresDB) Write(ctx context.Context, batch *Batch) (err error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return errors.Wrap(err, "can't begin write transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.Background())
		}
	}()

	upsert := "INSERT INTO " + p.table + " (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value"
	remove := "DELETE FROM " + p.table + " WHERE key = $1"

	b := &pgx.Batch{}
	for _, op := range batch.Ops() {
		if op.Delete {
			b.Queue(remove, op.Key)
		} else {
			b.Queue(upsert, op.Key, op.Value)
		}
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return errors.Wrap(err, "can't execute write batch")
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "can't commit write transaction")
	}
	return nil
}

// Close is a no-op, the pool is owned by the caller.
func (p *PostgresDB) Close() error {
	return nil
}

type pgSnapshot struct {
	tx    pgx.Tx
	table string
}

func (s *pgSnapshot) Get(ctx context.Context, key []byte) ([]byte, error) {
	return pgGet(ctx, s.tx, s.table, key)
}

func (s *pgSnapshot) Iterate(ctx context.Context, r Range, fn func(key, value []byte) (bool, error)) error {
	return pgIterate(ctx, s.tx, s.table, r, fn)
}

func (s *pgSnapshot) Release() {
	_ = s.tx.Rollback(context.Background())
}

func pgGet(ctx context.Context, q postgres.Queryable, table string, key []byte) ([]byte, error) {
	var value []byte
	if err := q.QueryRow(ctx, "SELECT value FROM "+table+" WHERE key = $1", key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "can't query key")
	}
	return value, nil
}

func pgIterate(ctx context.Context, q postgres.Queryable, table string, r Range, fn func(key, value []byte) (bool, error)) error {
	var (
		conds []string
		args  []any
	)
	cond := func(op string, arg []byte) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf("key %s $%d", op, len(args)))
	}
	if len(r.Prefix) > 0 {
		cond(">=", r.Prefix)
		if limit := prefixLimit(r.Prefix); limit != nil {
			cond("<", limit)
		}
	}
	if r.Start != nil {
		if r.Reverse {
			cond("<=", r.Start)
		} else {
			cond(">=", r.Start)
		}
	}

	query := "SELECT key, value FROM " + table
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if r.Reverse {
		query += " ORDER BY key DESC"
	} else {
		query += " ORDER BY key ASC"
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "can't iterate keys")
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return errors.Wrap(err, "can't scan key")
		}
		more, err := fn(key, value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return errors.Wrap(rows.Err(), "can't iterate keys")
}
