package ledger

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscore/internal/ethsig"
	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/store"
	"github.com/roach88/hiscore/internal/testutil"
)

const (
	devKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	startUnix = 1_700_000_000
)

var (
	player1 = model.MustParseAddress("0x1111111111111111111111111111111111111111")
	player2 = model.MustParseAddress("0x2222222222222222222222222222222222222222")
)

type fixture struct {
	ledger *Ledger
	store  *store.Store
	clock  *testutil.ManualClock
	key    *secp256k1.PrivateKey
	salt   uint64
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()

	key, err := ethsig.ParsePrivateKey(devKeyHex)
	require.NoError(t, err)

	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := DefaultConfig()
	cfg.TrustedSigner = ethsig.KeyAddress(key)
	for _, m := range mutate {
		m(&cfg)
	}

	clock := testutil.NewManualClockUnix(startUnix)
	l, err := New(context.Background(), s, cfg,
		WithWallClock(clock),
		WithTxIDGenerator(testutil.NewSequentialTxIDGenerator("tx")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	startLedger(t, l)
	return &fixture{ledger: l, store: s, clock: clock, key: key}
}

// startLedger runs l until the test ends.
func startLedger(t *testing.T, l *Ledger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// authorize signs (player, score) at the clock's current time with a fresh nonce.
func (f *fixture) authorize(player model.Address, score uint64) *model.Authorization {
	return f.authorizeAt(player, score, f.clock.Now().Unix())
}

func (f *fixture) authorizeAt(player model.Address, score uint64, ts int64) *model.Authorization {
	f.salt++
	var salt [32]byte
	binary.BigEndian.PutUint64(salt[24:], f.salt)

	nonce := ethsig.DeriveNonce(player, score, ts, salt)
	sig := ethsig.SignPayload(f.key, ethsig.PayloadHash(player, score, ts, nonce))
	return &model.Authorization{
		Player:    player,
		Score:     score,
		Signature: sig.String(),
		Timestamp: ts,
		Nonce:     nonce,
		ExpiresAt: ts + int64(DefaultSignatureWindow/time.Second),
	}
}

func (f *fixture) submit(t *testing.T, player model.Address, score uint64) (model.Receipt, error) {
	t.Helper()
	return f.ledger.Submit(context.Background(), model.Submission{
		Player: player,
		Score:  score,
		Auth:   f.authorize(player, score),
	})
}

func (f *fixture) mustSubmit(t *testing.T, player model.Address, score uint64) model.Receipt {
	t.Helper()
	receipt, err := f.submit(t, player, score)
	require.NoError(t, err)
	return receipt
}

func (f *fixture) scoreOf(t *testing.T, player model.Address) uint64 {
	t.Helper()
	rec, _, err := f.store.ReadPlayer(context.Background(), player)
	require.NoError(t, err)
	return rec.BestScore
}

func (f *fixture) playerCount(t *testing.T) uint64 {
	t.Helper()
	n, err := f.store.PlayerCount(context.Background())
	require.NoError(t, err)
	return n
}

// snapshot captures the registry and event log position.
func (f *fixture) snapshot(t *testing.T) ([]model.PlayerRecord, int64) {
	t.Helper()
	reg, err := f.store.ReadRegistry(context.Background())
	require.NoError(t, err)
	last, err := f.store.LastSeq(context.Background())
	require.NoError(t, err)
	return reg, last
}
