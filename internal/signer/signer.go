package signer

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/roach88/hiscore/internal/ethsig"
	"github.com/roach88/hiscore/internal/model"
)

const (
	// DefaultMaxScore is the highest score the signer will vouch for.
	DefaultMaxScore = 9999

	// DefaultExpiry is how long an authorization stays redeemable.
	DefaultExpiry = 5 * time.Minute
)

// WallClock supplies issue timestamps.
type WallClock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Signer issues authorizations. Safe for concurrent use.
type Signer struct {
	key      *secp256k1.PrivateKey
	maxScore uint64
	expiry   time.Duration
	rand     io.Reader
	clock    WallClock
	logger   *slog.Logger
}

// Option configures a Signer.
type Option func(*Signer)

// WithMaxScore overrides DefaultMaxScore.
func WithMaxScore(n uint64) Option {
	return func(s *Signer) {
		s.maxScore = n
	}
}

// WithExpiry overrides DefaultExpiry.
func WithExpiry(d time.Duration) Option {
	return func(s *Signer) {
		s.expiry = d
	}
}

// WithRand replaces crypto/rand as the nonce salt source.
func WithRand(r io.Reader) Option {
	return func(s *Signer) {
		s.rand = r
	}
}

// WithClock replaces time.Now.
func WithClock(c WallClock) Option {
	return func(s *Signer) {
		s.clock = c
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Signer) {
		s.logger = logger
	}
}

// New creates a Signer around key. A nil key yields a Signer whose every
// Authorize call fails with SignerNotConfigured.
func New(key *secp256k1.PrivateKey, opts ...Option) *Signer {
	s := &Signer{
		key:      key,
		maxScore: DefaultMaxScore,
		expiry:   DefaultExpiry,
		rand:     rand.Reader,
		clock:    systemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromHex parses keyHex and creates a Signer. An empty or malformed key
// is not fatal here: the service starts and reports a configuration error
// per request, without ever logging the key.
func NewFromHex(keyHex string, opts ...Option) *Signer {
	s := New(nil, opts...)
	if keyHex == "" {
		s.logger.Warn("signer private key not configured")
		return s
	}
	key, err := ethsig.ParsePrivateKey(keyHex)
	if err != nil {
		s.logger.Warn("signer private key rejected", "error", err)
		return s
	}
	s.key = key
	return s
}

// Configured reports whether the signer holds a usable key.
func (s *Signer) Configured() bool {
	return s.key != nil
}

// Address returns the signer's account identity, or the zero address when
// no key is configured.
func (s *Signer) Address() model.Address {
	if s.key == nil {
		return model.Address{}
	}
	return ethsig.KeyAddress(s.key)
}

// MaxScore returns the configured score ceiling.
func (s *Signer) MaxScore() uint64 {
	return s.maxScore
}

// Authorize issues a token binding (player, score) to the current time and
// a fresh nonce. Input is validated before the key is consulted, so a
// misconfigured signer still reports bad input as a validation error.
func (s *Signer) Authorize(ctx context.Context, player string, score uint64) (model.Authorization, error) {
	if err := ctx.Err(); err != nil {
		return model.Authorization{}, err
	}

	addr, err := model.ParseAddress(player)
	if err != nil {
		return model.Authorization{}, err
	}
	if score == 0 || score > s.maxScore {
		return model.Authorization{}, model.NewValidationError(model.CodeInvalidScore,
			fmt.Sprintf("score %d outside [1, %d]", score, s.maxScore))
	}

	if s.key == nil {
		s.logger.Error("authorize: signer private key not configured")
		return model.Authorization{}, model.ErrSignerNotConfigured
	}

	var salt [32]byte
	if _, err := io.ReadFull(s.rand, salt[:]); err != nil {
		return model.Authorization{}, fmt.Errorf("read nonce salt: %w", err)
	}

	ts := s.clock.Now().Unix()
	nonce := ethsig.DeriveNonce(addr, score, ts, salt)
	sig := ethsig.SignPayload(s.key, ethsig.PayloadHash(addr, score, ts, nonce))

	s.logger.Debug("authorization issued",
		"player", addr.Hex(),
		"score", score,
		"timestamp", ts,
		"nonce", nonce.Hex(),
	)

	return model.Authorization{
		Player:    addr,
		Score:     score,
		Signature: sig.String(),
		Timestamp: ts,
		Nonce:     nonce,
		ExpiresAt: ts + int64(s.expiry/time.Second),
	}, nil
}
