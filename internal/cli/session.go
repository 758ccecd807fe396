package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/smartfin/internal/config"
	"github.com/roach88/smartfin/internal/contract"
	"github.com/roach88/smartfin/internal/storage"
	"github.com/roach88/smartfin/internal/store"
)

// session is one process's view of the configured stores. The SQLite
// store always holds the registry and the journal; contract state lives
// in the configured backend.
type session struct {
	opts    *RootOptions
	store   *store.Store
	backend storage.Backend
}

func openSession(opts *RootOptions) (*session, error) {
	cfg := opts.Config
	log := opts.logger()

	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	s := &session{opts: opts, store: st, backend: st}

	switch cfg.Backend {
	case config.BackendBadger:
		bcfg := storage.DefaultBadgerConfig(cfg.BadgerPath())
		bcfg.Logger = log
		b, err := storage.OpenBadger(bcfg)
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open badger backend", err)
		}
		s.backend = b
	case config.BackendMemory:
		s.backend = storage.NewMemoryBackend()
	}
	log.Debug("session opened", "backend", cfg.Backend, "db", cfg.DB)
	return s, nil
}

// Close releases the backend and the store.
func (s *session) Close() error {
	var errs []error
	if s.backend != storage.Backend(s.store) {
		errs = append(errs, s.backend.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

// options configures controllers to journal into the store.
func (s *session) options(extra ...contract.Option) []contract.Option {
	opts := []contract.Option{
		contract.WithLogger(s.opts.logger()),
		contract.WithJournal(s.store),
		contract.WithTransactionFee(s.opts.Config.TxFee),
	}
	return append(opts, extra...)
}

// replayOptions configures controllers that re-execute the journal.
func (s *session) replayOptions() []contract.Option {
	return []contract.Option{
		contract.WithLogger(s.opts.logger()),
		contract.WithTransactionFee(s.opts.Config.TxFee),
	}
}

// open attaches to a deployed contract. With the memory backend the
// contract is first rebuilt from its journal.
func (s *session) open(ctx context.Context, id string) (*contract.Controller, error) {
	if s.opts.Config.Backend != config.BackendMemory {
		return contract.Open(ctx, s.backend, id, s.options()...)
	}
	events, err := s.store.Events(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return contract.Restore(ctx, s.backend, events, s.options()...)
}
