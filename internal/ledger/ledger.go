package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/hiscore/internal/store"
)

// ErrStopped is returned to callers whose request could not be processed
// because the Run loop has exited.
var ErrStopped = errors.New("ledger stopped")

// WallClock supplies the time signature freshness is judged against.
type WallClock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Ledger is the single-writer score ledger.
//
// Thread-safety model:
//   - Submit, GrantSkin, HasSkin: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// Submit and GrantSkin block until Run has processed the request or the
// caller's context is done. A request whose caller gave up may still commit.
type Ledger struct {
	store  *store.Store
	cfg    Config
	skins  map[uint64]Skin
	clock  *Clock
	queue  *requestQueue
	wall   WallClock
	txIDs  TxIDGenerator
	logger *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithWallClock replaces time.Now for signature freshness checks.
func WithWallClock(c WallClock) Option {
	return func(l *Ledger) {
		l.wall = c
	}
}

// WithTxIDGenerator replaces the UUIDv7 transaction id generator.
func WithTxIDGenerator(g TxIDGenerator) Option {
	return func(l *Ledger) {
		l.txIDs = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates a Ledger over s. The logical clock resumes from the last
// committed event so seq stays strictly increasing across restarts.
func New(ctx context.Context, s *store.Store, cfg Config, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ledger config: %w", err)
	}

	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}

	skins := make(map[uint64]Skin, len(cfg.Skins))
	for _, sk := range cfg.Skins {
		skins[sk.ID] = sk
	}

	l := &Ledger{
		store:  s,
		cfg:    cfg,
		skins:  skins,
		clock:  NewClockAt(last),
		queue:  newRequestQueue(),
		wall:   systemClock{},
		txIDs:  UUIDv7Generator{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Config returns the ledger's settings.
func (l *Ledger) Config() Config {
	return l.cfg
}

// Seq returns the seq of the last committed event.
func (l *Ledger) Seq() int64 {
	return l.clock.Current()
}

// Run drains the request queue until ctx is cancelled or Stop is called.
//
// Must be called from exactly one goroutine. Every store write happens
// here, one transaction per request, in FIFO order. Requests still queued
// when Run exits fail with ErrStopped.
func (l *Ledger) Run(ctx context.Context) error {
	l.logger.Info("ledger starting", "seq", l.clock.Current())

	for {
		req, ok := l.queue.TryDequeue()
		if ok {
			req.reply <- l.process(ctx, req)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("ledger stopping: context cancelled")
			l.failPending(l.queue.Close())
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel is closed by Stop; Len distinguishes
			// a wake-up from shutdown.
			if l.queue.Len() == 0 && l.queue.Closed() {
				l.logger.Info("ledger stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once it notices; pending requests fail.
func (l *Ledger) Stop() {
	l.failPending(l.queue.Close())
}

func (l *Ledger) failPending(pending []request) {
	for _, req := range pending {
		req.reply <- result{err: ErrStopped}
	}
}

func (l *Ledger) process(ctx context.Context, req request) result {
	switch req.kind {
	case requestSubmit:
		receipt, err := l.processSubmit(ctx, req.submission)
		return result{receipt: receipt, err: err}
	case requestGrant:
		receipt, err := l.processGrant(ctx, req.grant)
		return result{skinReceipt: receipt, err: err}
	default:
		return result{err: fmt.Errorf("unknown request kind %d", req.kind)}
	}
}

// enqueue hands req to Run and waits for its result.
func (l *Ledger) enqueue(ctx context.Context, req request) (result, error) {
	req.reply = make(chan result, 1)
	if !l.queue.Enqueue(req) {
		return result{}, ErrStopped
	}

	select {
	case <-ctx.Done():
		return result{}, ctx.Err()
	case res := <-req.reply:
		return res, res.err
	}
}
