package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/ranking"
	"github.com/roach88/hiscore/internal/signer"
	"github.com/roach88/hiscore/internal/store"
	"github.com/roach88/hiscore/internal/testutil"
)

const (
	devKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	player1   = "0x1111111111111111111111111111111111111111"
	player2   = "0x2222222222222222222222222222222222222222"
	startUnix = 1_700_000_000
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// api bundles a signer and a ledger sharing one manual clock.
type api struct {
	router *gin.Engine
	signer *signer.Signer
	ledger *ledger.Ledger
	clock  *testutil.ManualClock
}

func newAPI(t *testing.T, mutate ...func(*ledger.Config)) *api {
	t.Helper()

	clock := testutil.NewManualClockUnix(startUnix)
	s := signer.NewFromHex(devKeyHex, signer.WithClock(clock), signer.WithLogger(quietLogger()))
	require.True(t, s.Configured())

	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := ledger.DefaultConfig()
	cfg.TrustedSigner = s.Address()
	for _, m := range mutate {
		m(&cfg)
	}
	l, err := ledger.New(context.Background(), st, cfg,
		ledger.WithWallClock(clock),
		ledger.WithTxIDGenerator(testutil.NewSequentialTxIDGenerator("tx")),
		ledger.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

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

	router := NewRouter(quietLogger())
	NewLedgerHandler(l, ranking.New(st), st).RegisterRoutes(router)
	return &api{router: router, signer: s, ledger: l, clock: clock}
}

// do performs a request and decodes a JSON response into out (if non-nil).
func do(t *testing.T, router *gin.Engine, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

// signedScore authorizes score for player and returns the submit body.
func (a *api) signedScore(t *testing.T, player string, score uint64) SubmitRequest {
	t.Helper()
	auth, err := a.signer.Authorize(context.Background(), player, score)
	require.NoError(t, err)
	return SubmitRequest{
		Player:    player,
		Score:     score,
		Timestamp: auth.Timestamp,
		Nonce:     auth.Nonce.Hex(),
		Signature: auth.Signature,
	}
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

