package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hiscore/internal/config"
	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/model"
)

func TestSession_WriterOutlivesOpenContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess, err := openSession(ctx, config.Default(), tempDB(t), slog.Default())
	require.NoError(t, err)

	// A signal cancels ctx while HTTP requests are still draining.
	cancel()
	assert.Never(t, func() bool {
		select {
		case <-sess.done:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond, "ledger writer stopped with its open context")

	receipt, err := sess.ledger.GrantSkin(context.Background(), model.SkinGrant{
		Player: model.MustParseAddress(testPlayer),
		SkinID: 1,
	})
	require.NoError(t, err)
	assert.True(t, receipt.Granted)

	sess.Close()
	select {
	case <-sess.done:
	default:
		t.Fatal("Close returned before the writer stopped")
	}

	_, err = sess.ledger.GrantSkin(context.Background(), model.SkinGrant{
		Player: model.MustParseAddress(otherPlay),
		SkinID: 1,
	})
	assert.ErrorIs(t, err, ledger.ErrStopped)
}
