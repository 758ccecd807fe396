package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/smartfin/internal/storage"
)

var _ storage.Backend = (*Store)(nil)

// Update implements storage.Backend. fn runs inside one SQL transaction
// that commits only if fn returns nil.
func (s *Store) Update(ctx context.Context, ns string, fn func(storage.KV) error) error {
	return s.runTx(ctx, ns, false, fn)
}

// View implements storage.Backend.
func (s *Store) View(ctx context.Context, ns string, fn func(storage.KV) error) error {
	return s.runTx(ctx, ns, true, fn)
}

func (s *Store) runTx(ctx context.Context, ns string, readOnly bool, fn func(storage.KV) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&sqlKV{ctx: ctx, tx: tx, ns: ns, readOnly: readOnly}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if readOnly {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type sqlKV struct {
	ctx      context.Context
	tx       *sql.Tx
	ns       string
	readOnly bool
}

func (k *sqlKV) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := k.tx.QueryRowContext(k.ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, k.ns, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

func (k *sqlKV) Put(key string, value []byte) error {
	if k.readOnly {
		return storage.ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	_, err := k.tx.ExecContext(k.ctx, `
		INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value
	`, k.ns, key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (k *sqlKV) Keys() ([]string, error) {
	rows, err := k.tx.QueryContext(k.ctx,
		`SELECT key FROM kv WHERE namespace = ? ORDER BY key COLLATE BINARY ASC`, k.ns)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}
