package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hiscore/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadPlayer returns a registry entry. found is false if the player never
// committed a score; rec is then the zero record for addr.
func (s *Store) ReadPlayer(ctx context.Context, addr model.Address) (rec model.PlayerRecord, found bool, err error) {
	rec, found, err = scanPlayer(s.rdb.QueryRowContext(ctx, `
		SELECT address, best_score, registry_index
		FROM players
		WHERE address = ?
	`, addr.Hex()))
	if !found {
		rec.Address = addr
	}
	return rec, found, err
}

// PlayerCount returns the registry length.
// Registry indexes are dense, so MAX+1 is the count without a table scan.
func (s *Store) PlayerCount(ctx context.Context) (uint64, error) {
	var count int64
	err := s.rdb.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(registry_index) + 1, 0) FROM players
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("player count: %w", err)
	}
	return uint64(count), nil
}

// ReadRegistry returns the full registry in insertion order.
// A single SELECT is a consistent snapshot.
//
// Returns an empty slice (not nil) when the registry is empty.
func (s *Store) ReadRegistry(ctx context.Context) ([]model.PlayerRecord, error) {
	return readRegistry(ctx, s.rdb)
}

func readRegistry(ctx context.Context, q queryer) ([]model.PlayerRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT address, best_score, registry_index
		FROM players
		ORDER BY registry_index ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query registry: %w", err)
	}
	return collectPlayers(rows)
}

// ReadRegistryPage returns at most limit players starting at offset, in
// insertion order. Uses the registry_index index, so cost is O(limit).
//
// Returns an empty slice (not nil) when offset is past the end.
func (s *Store) ReadRegistryPage(ctx context.Context, offset, limit uint64) ([]model.PlayerRecord, error) {
	if limit == 0 {
		return []model.PlayerRecord{}, nil
	}

	rows, err := s.rdb.QueryContext(ctx, `
		SELECT address, best_score, registry_index
		FROM players
		WHERE registry_index >= ?
		ORDER BY registry_index ASC
		LIMIT ?
	`, clampInt64(offset), clampInt64(limit))
	if err != nil {
		return nil, fmt.Errorf("query registry page: %w", err)
	}
	return collectPlayers(rows)
}

// HasSkin reports whether addr owns skinID.
func (s *Store) HasSkin(ctx context.Context, addr model.Address, skinID uint64) (bool, error) {
	return hasSkin(ctx, s.rdb, addr, skinID)
}

// NonceUsed reports whether nonce was already consumed.
func (s *Store) NonceUsed(ctx context.Context, nonce model.Hash) (bool, error) {
	var count int
	err := s.rdb.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM nonces WHERE nonce = ?
	`, nonce.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check nonce: %w", err)
	}
	return count > 0, nil
}

// LastSeq returns the highest event seq, or 0 for an empty log.
// Used to resume the ledger's logical clock after a restart.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.rdb.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// ReadEvents returns up to limit events with seq > afterSeq, ordered by seq ASC.
// A limit of 0 returns every remaining event.
//
// Returns an empty slice (not nil) if no events match.
func (s *Store) ReadEvents(ctx context.Context, afterSeq int64, limit uint64) ([]model.Event, error) {
	return readEvents(ctx, s.rdb, afterSeq, limit)
}

func readEvents(ctx context.Context, q queryer, afterSeq int64, limit uint64) ([]model.Event, error) {
	query := `
		SELECT seq, id, tx_id, kind, player, attrs
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
	`
	args := []any{afterSeq}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, clampInt64(limit))
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Purchase is one row of the paid skin trail.
type Purchase struct {
	TxID    string        `json:"tx_id"`
	Player  model.Address `json:"player"`
	SkinID  uint64        `json:"skin_id"`
	Price   uint64        `json:"price"`
	Payment uint64        `json:"payment"`
	Seq     int64         `json:"seq"`
}

// ReadPurchases returns the payment trail ordered by seq ASC.
func (s *Store) ReadPurchases(ctx context.Context) ([]Purchase, error) {
	rows, err := s.rdb.QueryContext(ctx, `
		SELECT tx_id, address, skin_id, price, payment, seq
		FROM skin_purchases
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		var addr string
		var skinID, price, payment int64
		if err := rows.Scan(&p.TxID, &addr, &skinID, &price, &payment, &p.Seq); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		a, err := model.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.Player = a
		p.SkinID, p.Price, p.Payment = uint64(skinID), uint64(price), uint64(payment)
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return purchases, nil
}

func hasSkin(ctx context.Context, q queryer, addr model.Address, skinID uint64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM skins WHERE address = ? AND skin_id = ?
	`, addr.Hex(), int64(skinID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check skin: %w", err)
	}
	return count > 0, nil
}

// scanPlayer scans a single players row. sql.ErrNoRows maps to found=false.
func scanPlayer(row *sql.Row) (model.PlayerRecord, bool, error) {
	var rec model.PlayerRecord
	var addr string
	var best, idx int64

	if err := row.Scan(&addr, &best, &idx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, false, nil
		}
		return rec, false, fmt.Errorf("scan player: %w", err)
	}

	a, err := model.ParseAddress(addr)
	if err != nil {
		return rec, false, fmt.Errorf("scan player: %w", err)
	}
	rec.Address = a
	rec.BestScore = uint64(best)
	rec.RegistryIndex = uint64(idx)
	rec.HasPlayed = true
	return rec, true, nil
}

// collectPlayers drains and closes rows.
func collectPlayers(rows *sql.Rows) ([]model.PlayerRecord, error) {
	defer rows.Close()

	players := []model.PlayerRecord{}
	for rows.Next() {
		var addr string
		var best, idx int64
		if err := rows.Scan(&addr, &best, &idx); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		a, err := model.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, model.PlayerRecord{
			Address:       a,
			BestScore:     uint64(best),
			HasPlayed:     true,
			RegistryIndex: uint64(idx),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

// scanEvent scans one events row.
func scanEvent(rows *sql.Rows) (model.Event, error) {
	var ev model.Event
	var kind, player, attrs string

	if err := rows.Scan(&ev.Seq, &ev.ID, &ev.TxID, &kind, &player, &attrs); err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}

	a, err := model.ParseAddress(player)
	if err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}
	parsed, err := unmarshalAttrs(attrs)
	if err != nil {
		return ev, fmt.Errorf("scan event %d: %w", ev.Seq, err)
	}

	ev.Kind = model.EventKind(kind)
	ev.Player = a
	ev.Attrs = parsed
	return ev, nil
}

// clampInt64 bounds a uint64 query argument to SQLite's signed range.
func clampInt64(v uint64) int64 {
	if v > uint64(1<<63-1) {
		return 1<<63 - 1
	}
	return int64(v)
}
