package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/hiscore/internal/config"
	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/ranking"
	"github.com/roach88/hiscore/internal/store"
)

// session is an open store with a running ledger and a ranking engine.
type session struct {
	store   *store.Store
	ledger  *ledger.Ledger
	ranking *ranking.Engine

	cancel context.CancelFunc
	done   chan struct{}
}

// openSession opens dbPath and starts the ledger writer. ctx bounds startup
// only. Close must be called.
func openSession(ctx context.Context, cfg *config.Config, dbPath string, logger *slog.Logger) (*session, error) {
	settings, err := cfg.LedgerSettings()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid ledger settings", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	l, err := ledger.New(ctx, st, settings, ledger.WithLogger(logger))
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start ledger", err)
	}

	// The writer outlives ctx; only Close stops it. serve relies on this to
	// drain in-flight HTTP requests after a signal.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		store:   st,
		ledger:  l,
		ranking: ranking.New(st),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := l.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.Error("ledger stopped", "error", err)
		}
	}()
	return s, nil
}

// Close stops the ledger and closes the store.
func (s *session) Close() {
	s.cancel()
	<-s.done
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// dbPath returns the --db override or the configured path.
func dbPath(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Ledger.DBPath
}

// commandContext returns ctx or Background when cobra has none.
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
