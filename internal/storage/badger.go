package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig configures a BadgerBackend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in RAM only.
	InMemory bool

	// SyncWrites fsyncs every committed event.
	SyncWrites bool

	// Logger receives Badger's internal logs. Nil disables them.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns a durable configuration rooted at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a configuration for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerBackend stores each namespace under a key prefix in one BadgerDB.
// Every event is one Badger transaction.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens or creates a Badger database.
func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func prefix(ns string) []byte {
	return []byte(ns + "\x00")
}

// Update implements Backend.
func (b *BadgerBackend) Update(ctx context.Context, ns string, fn func(KV) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerKV{txn: txn, prefix: prefix(ns)})
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// View implements Backend.
func (b *BadgerBackend) View(ctx context.Context, ns string, fn func(KV) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerKV{txn: txn, prefix: prefix(ns), readOnly: true})
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

type badgerKV struct {
	txn      *badger.Txn
	prefix   []byte
	readOnly bool
}

func (k *badgerKV) key(key string) []byte {
	return append(append([]byte{}, k.prefix...), key...)
}

func (k *badgerKV) Get(key string) ([]byte, bool, error) {
	item, err := k.txn.Get(k.key(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("badger value %s: %w", key, err)
	}
	return v, true, nil
}

func (k *badgerKV) Put(key string, value []byte) error {
	if k.readOnly {
		return ErrReadOnly
	}
	if err := k.txn.Set(k.key(key), append([]byte{}, value...)); err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (k *badgerKV) Keys() ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = k.prefix
	it := k.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().Key()[len(k.prefix):]))
	}
	return keys, nil
}
