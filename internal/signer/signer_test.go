package signer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscore/internal/ethsig"
	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/testutil"
)

const (
	devKeyHex  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	devAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	playerHex  = "0x1111111111111111111111111111111111111111"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestSigner(t *testing.T, opts ...Option) (*Signer, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClockUnix(1_700_000_000)
	opts = append([]Option{WithClock(clock), quiet()}, opts...)
	s := NewFromHex(devKeyHex, opts...)
	require.True(t, s.Configured())
	return s, clock
}

func TestAuthorize_SignatureRecoversToSigner(t *testing.T) {
	s, _ := newTestSigner(t)

	auth, err := s.Authorize(context.Background(), playerHex, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(1_700_000_000), auth.Timestamp)
	assert.Equal(t, int64(1_700_000_300), auth.ExpiresAt)
	assert.Equal(t, uint64(100), auth.Score)
	assert.Equal(t, model.MustParseAddress(playerHex), auth.Player)

	sig, err := ethsig.ParseSignature(auth.Signature)
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, sig[64])

	payload := ethsig.PayloadHash(auth.Player, auth.Score, auth.Timestamp, auth.Nonce)
	recovered, err := ethsig.RecoverPayloadSigner(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, devAddress, recovered.String())
	assert.Equal(t, recovered, s.Address())
}

func TestAuthorize_NonceDerivedFromSalt(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, 32)
	s, _ := newTestSigner(t, WithRand(bytes.NewReader(salt)))

	auth, err := s.Authorize(context.Background(), playerHex, 7)
	require.NoError(t, err)

	var want [32]byte
	copy(want[:], salt)
	assert.Equal(t, ethsig.DeriveNonce(auth.Player, 7, auth.Timestamp, want), auth.Nonce)
}

func TestAuthorize_KnownVector(t *testing.T) {
	salt := make([]byte, 32)
	salt[31] = 1
	s, _ := newTestSigner(t, WithRand(bytes.NewReader(salt)))

	auth, err := s.Authorize(context.Background(), playerHex, 120)
	require.NoError(t, err)

	// Same bytes as viem's encodePacked + signMessage({raw}) with this key.
	assert.Equal(t, int64(1_700_000_000), auth.Timestamp)
	assert.Equal(t, int64(1_700_000_300), auth.ExpiresAt)
	assert.Equal(t, "0xea3210c64fcdb84a94f3380407860d103e6f0ef2f8746707defe1dfeba04152c", auth.Nonce.Hex())
	assert.Equal(t, "0x5f9f2513f3b55e801ae167ae40233a1aacbcaed9f90091ee93c713238ae8db57"+
		"4bec5c5bf2b6defcb4bba369d07246bc731b135f89992c2bfbbe37965bacd1d31c", auth.Signature)
}

func TestAuthorize_FreshNonceEachCall(t *testing.T) {
	s, _ := newTestSigner(t)
	ctx := context.Background()

	a, err := s.Authorize(ctx, playerHex, 5)
	require.NoError(t, err)
	b, err := s.Authorize(ctx, playerHex, 5)
	require.NoError(t, err)

	assert.Equal(t, a.Timestamp, b.Timestamp)
	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Signature, b.Signature)
}

func TestAuthorize_InvalidAddress(t *testing.T) {
	s, _ := newTestSigner(t)

	for _, addr := range []string{"", "0x123", "1111111111111111111111111111111111111111", "0xZZ11111111111111111111111111111111111111"} {
		_, err := s.Authorize(context.Background(), addr, 10)
		assert.ErrorIs(t, err, model.ErrInvalidAddress, "address %q", addr)
	}
}

func TestAuthorize_InvalidScore(t *testing.T) {
	s, _ := newTestSigner(t)

	for _, score := range []uint64{0, DefaultMaxScore + 1, 1 << 40} {
		_, err := s.Authorize(context.Background(), playerHex, score)
		require.ErrorIs(t, err, model.ErrInvalidScore, "score %d", score)
		assert.True(t, model.IsKind(err, model.KindValidation))
	}

	_, err := s.Authorize(context.Background(), playerHex, DefaultMaxScore)
	assert.NoError(t, err)
}

func TestAuthorize_CustomLimits(t *testing.T) {
	s, _ := newTestSigner(t, WithMaxScore(50), WithExpiry(30*time.Second))

	auth, err := s.Authorize(context.Background(), playerHex, 50)
	require.NoError(t, err)
	assert.Equal(t, auth.Timestamp+30, auth.ExpiresAt)

	_, err = s.Authorize(context.Background(), playerHex, 51)
	assert.ErrorIs(t, err, model.ErrInvalidScore)
}

func TestAuthorize_NotConfigured(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	for _, keyHex := range []string{"", "0x1234", strings.Repeat("f", 64)} {
		s := NewFromHex(keyHex, WithLogger(logger))
		assert.False(t, s.Configured())
		assert.True(t, s.Address().IsZero())

		_, err := s.Authorize(context.Background(), playerHex, 10)
		require.ErrorIs(t, err, model.ErrSignerNotConfigured)
		assert.True(t, model.IsKind(err, model.KindConfiguration))

		// Bad input is still reported as bad input.
		_, err = s.Authorize(context.Background(), "nope", 10)
		assert.ErrorIs(t, err, model.ErrInvalidAddress)
	}

	assert.NotContains(t, logs.String(), strings.Repeat("f", 64))
}

func TestAuthorize_RandFailure(t *testing.T) {
	s, _ := newTestSigner(t, WithRand(bytes.NewReader(nil)))

	_, err := s.Authorize(context.Background(), playerHex, 10)
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrSignerNotConfigured))
	_, isDomain := model.AsError(err)
	assert.False(t, isDomain)
}

func TestAuthorize_CancelledContext(t *testing.T) {
	s, _ := newTestSigner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Authorize(ctx, playerHex, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthorize_Concurrent(t *testing.T) {
	s, _ := newTestSigner(t)

	var mu sync.Mutex
	nonces := make(map[model.Hash]bool)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			auth, err := s.Authorize(context.Background(), playerHex, 10)
			assert.NoError(t, err)
			mu.Lock()
			nonces[auth.Nonce] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, nonces, 20)
}
