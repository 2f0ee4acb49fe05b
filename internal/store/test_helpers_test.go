package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/hiscore/internal/model"
)

var (
	alice = model.MustParseAddress("0x1111111111111111111111111111111111111111")
	bob   = model.MustParseAddress("0x2222222222222222222222222222222222222222")
	carol = model.MustParseAddress("0x3333333333333333333333333333333333333333")
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustEvent fills in the content address.
func mustEvent(t *testing.T, ev model.Event) model.Event {
	t.Helper()
	ev, err := ev.WithID()
	if err != nil {
		t.Fatalf("WithID() failed: %v", err)
	}
	return ev
}

// commitScore writes the rows a ledger commit produces for a new best score,
// without the ledger's validation. seq is advanced by the number of events.
func commitScore(t *testing.T, s *Store, addr model.Address, score uint64, seq *int64) {
	t.Helper()
	ctx := context.Background()
	txID := "tx-" + addr.Hex()[2:8]

	err := s.WithTx(ctx, func(tx *Tx) error {
		rec, found, err := tx.Player(ctx, addr)
		if err != nil {
			return err
		}
		old := uint64(0)
		if !found {
			idx, err := tx.NextRegistryIndex(ctx)
			if err != nil {
				return err
			}
			*seq++
			rec = model.PlayerRecord{Address: addr, BestScore: score, RegistryIndex: idx}
			if err := tx.InsertPlayer(ctx, rec, *seq); err != nil {
				return err
			}
			if err := tx.AppendEvent(ctx, mustEvent(t, model.NewFirstAppearance(*seq, txID, addr, score))); err != nil {
				return err
			}
		} else {
			old = rec.BestScore
			if err := tx.RaiseBestScore(ctx, addr, score, *seq+1); err != nil {
				return err
			}
		}
		*seq++
		return tx.AppendEvent(ctx, mustEvent(t, model.NewScoreImproved(*seq, txID, addr, score, old)))
	})
	if err != nil {
		t.Fatalf("commitScore(%s, %d) failed: %v", addr.Hex(), score, err)
	}
}
