package harness

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/roach88/hiscore/internal/ethsig"
	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/ranking"
	"github.com/roach88/hiscore/internal/store"
	"github.com/roach88/hiscore/internal/testutil"
)

// signerKeyHex is the scenario signer. It is a well-known development key
// and must never be configured on a real deployment.
const signerKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// Harness runs one scenario against a fresh ledger.
// It uses a manual wall clock, sequential tx ids and counter-derived nonces,
// so the same scenario always produces the same trace.
type Harness struct {
	store   *store.Store
	ledger  *ledger.Ledger
	ranking *ranking.Engine
	clock   *testutil.ManualClock
	key     *secp256k1.PrivateKey
	players map[string]model.Address
	tokens  map[string]*model.Authorization
	salt    uint64
	window  time.Duration
	logger  *slog.Logger
}

// PlayerAddress maps a scenario alias to its fixed address.
func PlayerAddress(alias string) model.Address {
	digest := model.Keccak256([]byte("hiscore/player/" + alias))
	var a model.Address
	copy(a[:], digest[12:])
	return a
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// An error is returned only when the harness itself fails; expectation
// mismatches are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	key, err := ethsig.ParsePrivateKey(signerKeyHex)
	if err != nil {
		return nil, fmt.Errorf("scenario signer: %w", err)
	}

	cfg, err := scenario.Ledger.toConfig()
	if err != nil {
		return nil, err
	}
	cfg.TrustedSigner = ethsig.KeyAddress(key)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := testutil.NewManualClockUnix(scenario.StartTime)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	l, err := ledger.New(ctx, st, cfg,
		ledger.WithWallClock(clock),
		ledger.WithTxIDGenerator(testutil.NewSequentialTxIDGenerator("tx")),
		ledger.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	h := &Harness{
		store:   st,
		ledger:  l,
		ranking: ranking.New(st),
		clock:   clock,
		key:     key,
		window:  cfg.SignatureWindow,
		players: make(map[string]model.Address, len(scenario.Players)),
		tokens:  make(map[string]*model.Authorization),
		logger:  logger,
	}

	result := NewResult()
	for _, alias := range scenario.Players {
		addr := PlayerAddress(alias)
		h.players[alias] = addr
		result.aliases[addr] = alias
	}

	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Ranking: h.ranking,
		Players: h.players,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (s LedgerSettings) toConfig() (ledger.Config, error) {
	cfg := ledger.DefaultConfig()
	cfg.LegacySubmit = s.LegacySubmit
	if s.SignatureWindow != "" {
		d, err := time.ParseDuration(s.SignatureWindow)
		if err != nil {
			return cfg, fmt.Errorf("ledger.signature_window: %w", err)
		}
		cfg.SignatureWindow = d
	}
	if s.SkinMode != "" {
		cfg.SkinMode = ledger.SkinMode(s.SkinMode)
	}
	if len(s.Skins) > 0 {
		cfg.Skins = make([]ledger.Skin, len(s.Skins))
		for i, sk := range s.Skins {
			cfg.Skins[i] = ledger.Skin{ID: sk.ID, Name: sk.Name, Price: sk.Price}
		}
	}
	return cfg, nil
}

// executeFlow runs every step, traces it, and checks its expect clause.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		ev, err := h.executeStep(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}
		ev.Step = i
		result.Trace = append(result.Trace, ev)

		if step.Expect != nil {
			if msg := checkExpect(step.Expect, ev); msg != "" {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Action, msg))
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Action,
			"outcome", ev.Outcome,
		)
	}
	return nil
}

// executeStep performs one action. Domain rejections become the traced
// outcome; only harness failures are returned as errors.
func (h *Harness) executeStep(ctx context.Context, step FlowStep) (TraceEvent, error) {
	ev := TraceEvent{Action: step.Action, Player: step.Player}

	switch step.Action {
	case ActionSubmit:
		auth := h.authorize(h.players[step.Player], step.Score)
		if step.As != "" {
			h.tokens[step.As] = auth
		}
		ev.Args = fmt.Sprintf("score=%d", step.Score)
		return h.submit(ctx, ev, model.Submission{Player: auth.Player, Score: step.Score, Auth: auth})

	case ActionAuthorize:
		auth := h.authorize(h.players[step.Player], step.Score)
		h.tokens[step.As] = auth
		ev.Args = fmt.Sprintf("score=%d as=%s", step.Score, step.As)
		ev.Outcome = OutcomeAuthorized
		ev.Details = map[string]any{"timestamp": auth.Timestamp, "expires_at": auth.ExpiresAt}
		return ev, nil

	case ActionRedeem:
		auth := h.tokens[step.Token]
		ev.Player = ""
		ev.Args = fmt.Sprintf("token=%s", step.Token)
		return h.submit(ctx, ev, model.Submission{Player: auth.Player, Score: auth.Score, Auth: auth})

	case ActionLegacySubmit:
		ev.Args = fmt.Sprintf("score=%d", step.Score)
		return h.submit(ctx, ev, model.Submission{Player: h.players[step.Player], Score: step.Score})

	case ActionAdvance:
		d, err := time.ParseDuration(step.By)
		if err != nil {
			return ev, err
		}
		h.clock.Advance(d)
		ev.Args = step.By
		ev.Outcome = OutcomeAdvanced
		ev.Details = map[string]any{"now": h.clock.Now().Unix()}
		return ev, nil

	case ActionGrantSkin:
		ev.Args = fmt.Sprintf("skin=%d payment=%d", step.Skin, step.Payment)
		receipt, err := h.ledger.GrantSkin(ctx, model.SkinGrant{
			Player:  h.players[step.Player],
			SkinID:  step.Skin,
			Payment: step.Payment,
		})
		if err != nil {
			return rejected(ev, err)
		}
		ev.Outcome = OutcomeAlreadyOwned
		if receipt.Granted {
			ev.Outcome = OutcomeGranted
		}
		ev.Details = map[string]any{"charged": receipt.Charged}
		if receipt.TxID != "" {
			ev.Details["tx_id"] = receipt.TxID
		}
		ev.Events = receipt.Events
		return ev, nil
	}

	return ev, fmt.Errorf("unknown action %q", step.Action)
}

func (h *Harness) submit(ctx context.Context, ev TraceEvent, sub model.Submission) (TraceEvent, error) {
	receipt, err := h.ledger.Submit(ctx, sub)
	if err != nil {
		return rejected(ev, err)
	}
	ev.Outcome = OutcomeCommitted
	ev.Details = map[string]any{
		"tx_id":            receipt.TxID,
		"seq":              receipt.Seq,
		"previous_best":    receipt.PreviousBest,
		"first_appearance": receipt.FirstAppearance,
	}
	ev.Events = receipt.Events
	return ev, nil
}

// rejected turns a domain error into a traced outcome.
func rejected(ev TraceEvent, err error) (TraceEvent, error) {
	e, ok := model.AsError(err)
	if !ok {
		return ev, err
	}
	ev.Outcome = string(e.Code)
	ev.Details = map[string]any{"kind": string(e.Kind)}
	switch e.Code {
	case model.CodeScoreNotHigher:
		ev.Details["current"] = e.Current
		ev.Details["submitted"] = e.Submitted
	case model.CodeInsufficientPayment:
		ev.Details["price"] = e.Current
		ev.Details["paid"] = e.Submitted
	}
	return ev, nil
}

// authorize mints a token the way the signer does, with a counter salt.
// Zero and out-of-range scores are signed too, so scenarios reach the
// ledger's own checks. Tokens expire after the scenario's signature window.
func (h *Harness) authorize(player model.Address, score uint64) *model.Authorization {
	h.salt++
	var salt [32]byte
	binary.BigEndian.PutUint64(salt[24:], h.salt)

	ts := h.clock.Now().Unix()
	nonce := ethsig.DeriveNonce(player, score, ts, salt)
	sig := ethsig.SignPayload(h.key, ethsig.PayloadHash(player, score, ts, nonce))
	return &model.Authorization{
		Player:    player,
		Score:     score,
		Signature: sig.String(),
		Timestamp: ts,
		Nonce:     nonce,
		ExpiresAt: ts + int64(h.window/time.Second),
	}
}
