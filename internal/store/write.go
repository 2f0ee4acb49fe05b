package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hiscore/internal/model"
)

// Tx is a single ledger transaction. Obtain one through WithTx.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside one SQLite transaction.
// If fn returns an error (including a *model.Error rejection) every write
// made through the Tx is rolled back and the error is returned unchanged.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Player reads a registry entry inside the transaction.
// found is false if the player never committed a score.
func (t *Tx) Player(ctx context.Context, addr model.Address) (rec model.PlayerRecord, found bool, err error) {
	return scanPlayer(t.tx.QueryRowContext(ctx, `
		SELECT address, best_score, registry_index
		FROM players
		WHERE address = ?
	`, addr.Hex()))
}

// NonceUsed reports whether nonce was already consumed.
func (t *Tx) NonceUsed(ctx context.Context, nonce model.Hash) (bool, error) {
	var count int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM nonces WHERE nonce = ?
	`, nonce.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check nonce: %w", err)
	}
	return count > 0, nil
}

// NextRegistryIndex returns the slot the next new player will occupy.
// Uses the UNIQUE index on registry_index, so it does not scan the table.
func (t *Tx) NextRegistryIndex(ctx context.Context) (uint64, error) {
	var next int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(registry_index) + 1, 0) FROM players
	`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next registry index: %w", err)
	}
	return uint64(next), nil
}

// InsertPlayer appends a player to the registry.
// A duplicate address or registry index fails the transaction.
func (t *Tx) InsertPlayer(ctx context.Context, rec model.PlayerRecord, seq int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO players
		(address, best_score, registry_index, first_seq, updated_seq)
		VALUES (?, ?, ?, ?, ?)
	`,
		rec.Address.Hex(),
		int64(rec.BestScore),
		int64(rec.RegistryIndex),
		seq,
		seq,
	)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// RaiseBestScore sets a new best score. The WHERE clause refuses to lower it,
// so a caller bug surfaces as an error instead of a silent regression.
func (t *Tx) RaiseBestScore(ctx context.Context, addr model.Address, score uint64, seq int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE players
		SET best_score = ?, updated_seq = ?
		WHERE address = ? AND best_score < ?
	`, int64(score), seq, addr.Hex(), int64(score))
	if err != nil {
		return fmt.Errorf("raise best score: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("raise best score: rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("raise best score: %s not raised to %d", addr.Hex(), score)
	}
	return nil
}

// ConsumeNonce records nonce as redeemed. The primary key makes a second
// insert of the same nonce fail the transaction.
func (t *Tx) ConsumeNonce(ctx context.Context, nonce model.Hash, player model.Address, txID string, seq int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO nonces (nonce, player, tx_id, seq)
		VALUES (?, ?, ?, ?)
	`, nonce.Hex(), player.Hex(), txID, seq)
	if err != nil {
		return fmt.Errorf("consume nonce: %w", err)
	}
	return nil
}

// HasSkin reports entitlement inside the transaction.
func (t *Tx) HasSkin(ctx context.Context, addr model.Address, skinID uint64) (bool, error) {
	return hasSkin(ctx, t.tx, addr, skinID)
}

// GrantSkin marks a skin owned.
// Uses ON CONFLICT DO NOTHING; inserted is false if it was already owned.
func (t *Tx) GrantSkin(ctx context.Context, addr model.Address, skinID uint64, seq int64) (inserted bool, err error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO skins (address, skin_id, seq)
		VALUES (?, ?, ?)
		ON CONFLICT(address, skin_id) DO NOTHING
	`, addr.Hex(), int64(skinID), seq)
	if err != nil {
		return false, fmt.Errorf("grant skin: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant skin: rows affected: %w", err)
	}
	return n > 0, nil
}

// RecordPurchase appends to the payment trail for a paid skin grant.
func (t *Tx) RecordPurchase(ctx context.Context, txID string, addr model.Address, skinID, price, payment uint64, seq int64) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO skin_purchases (tx_id, address, skin_id, price, payment, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, txID, addr.Hex(), int64(skinID), int64(price), int64(payment), seq)
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	return nil
}

// AppendEvent writes an event to the log. The event must carry its ID.
func (t *Tx) AppendEvent(ctx context.Context, ev model.Event) error {
	if ev.ID == "" {
		return errors.New("append event: missing content id")
	}

	attrs, err := marshalAttrs(ev.Attrs)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO events (seq, id, tx_id, kind, player, attrs)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.Seq, ev.ID, ev.TxID, string(ev.Kind), ev.Player.Hex(), attrs)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
