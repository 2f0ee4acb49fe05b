package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/hiscore/internal/model"
)

func TestWithTx_RollbackLeavesNoMutation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	nonce := model.Keccak256([]byte("nonce-1"))
	reject := model.NewScoreNotHigher(10, 5)

	err := s.WithTx(ctx, func(tx *Tx) error {
		rec := model.PlayerRecord{Address: alice, BestScore: 10}
		if err := tx.InsertPlayer(ctx, rec, 1); err != nil {
			return err
		}
		if err := tx.ConsumeNonce(ctx, nonce, alice, "tx-1", 1); err != nil {
			return err
		}
		return reject
	})
	if !errors.Is(err, model.ErrScoreNotHigher) {
		t.Fatalf("WithTx() error = %v, want ScoreNotHigher", err)
	}

	count, err := s.PlayerCount(ctx)
	if err != nil {
		t.Fatalf("PlayerCount() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("PlayerCount() = %d after rollback, want 0", count)
	}
	used, err := s.NonceUsed(ctx, nonce)
	if err != nil {
		t.Fatalf("NonceUsed() failed: %v", err)
	}
	if used {
		t.Error("nonce consumed by a rolled-back transaction")
	}
}

func TestConsumeNonce_DuplicateFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	var seq int64
	commitScore(t, s, alice, 10, &seq)
	nonce := model.Keccak256([]byte("nonce-1"))

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.ConsumeNonce(ctx, nonce, alice, "tx-1", 3)
	})
	if err != nil {
		t.Fatalf("first ConsumeNonce() failed: %v", err)
	}

	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.ConsumeNonce(ctx, nonce, alice, "tx-2", 4)
	})
	if err == nil {
		t.Fatal("second ConsumeNonce() succeeded, want primary key violation")
	}
}

func TestConsumeNonce_RequiresRegisteredPlayer(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.ConsumeNonce(ctx, model.Keccak256([]byte("n")), bob, "tx-1", 1)
	})
	if err == nil {
		t.Fatal("ConsumeNonce() for unknown player succeeded, want foreign key violation")
	}
}

func TestRaiseBestScore_RefusesToLower(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	var seq int64
	commitScore(t, s, alice, 100, &seq)

	for _, score := range []uint64{100, 50} {
		err := s.WithTx(ctx, func(tx *Tx) error {
			return tx.RaiseBestScore(ctx, alice, score, 10)
		})
		if err == nil {
			t.Errorf("RaiseBestScore(%d) succeeded over best 100", score)
		}
	}

	rec, _, err := s.ReadPlayer(ctx, alice)
	if err != nil {
		t.Fatalf("ReadPlayer() failed: %v", err)
	}
	if rec.BestScore != 100 {
		t.Errorf("BestScore = %d, want 100", rec.BestScore)
	}
}

func TestInsertPlayer_RejectsZeroScore(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertPlayer(ctx, model.PlayerRecord{Address: alice}, 1)
	})
	if err == nil {
		t.Fatal("InsertPlayer() with best_score 0 succeeded, want CHECK violation")
	}
}

func TestInsertPlayer_DuplicateAddressFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	var seq int64
	commitScore(t, s, alice, 10, &seq)

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertPlayer(ctx, model.PlayerRecord{Address: alice, BestScore: 20, RegistryIndex: 1}, 9)
	})
	if err == nil {
		t.Fatal("InsertPlayer() duplicate address succeeded")
	}
}

func TestGrantSkin_SecondGrantIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var first, second bool
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		first, err = tx.GrantSkin(ctx, alice, 1, 1)
		if err != nil {
			return err
		}
		second, err = tx.GrantSkin(ctx, alice, 1, 2)
		return err
	})
	if err != nil {
		t.Fatalf("GrantSkin() failed: %v", err)
	}
	if !first {
		t.Error("first GrantSkin() inserted = false, want true")
	}
	if second {
		t.Error("second GrantSkin() inserted = true, want false")
	}

	owned, err := s.HasSkin(ctx, alice, 1)
	if err != nil {
		t.Fatalf("HasSkin() failed: %v", err)
	}
	if !owned {
		t.Error("HasSkin() = false after grant")
	}
}

func TestAppendEvent_RequiresID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.AppendEvent(ctx, model.NewFirstAppearance(1, "tx-1", alice, 10))
	})
	if err == nil {
		t.Fatal("AppendEvent() without id succeeded")
	}
}

func TestRecordPurchase(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.GrantSkin(ctx, bob, 2, 1); err != nil {
			return err
		}
		return tx.RecordPurchase(ctx, "tx-1", bob, 2, 500, 700, 1)
	})
	if err != nil {
		t.Fatalf("RecordPurchase() failed: %v", err)
	}

	purchases, err := s.ReadPurchases(ctx)
	if err != nil {
		t.Fatalf("ReadPurchases() failed: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("len(purchases) = %d, want 1", len(purchases))
	}
	want := Purchase{TxID: "tx-1", Player: bob, SkinID: 2, Price: 500, Payment: 700, Seq: 1}
	if purchases[0] != want {
		t.Errorf("purchase = %+v, want %+v", purchases[0], want)
	}
}
